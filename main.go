package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"strakmachine/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.WithFields(log.Fields{"err": err}).Error("strak failed")
		os.Exit(1)
	}
}
