package logger

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// log file name, relative names are placed in Dir; empty disables the file
	File string
	Dir  string
}

// Init configures the standard logrus logger. The returned closer flushes
// the rotating file.
func Init(opts Options) io.Closer {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	lvl, err := log.ParseLevel(opts.Level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		name := opts.File
		if !filepath.IsAbs(name) && opts.Dir != "" {
			name = filepath.Join(opts.Dir, name)
		}
		lj := &lumberjack.Logger{
			Filename:   name,
			MaxSize:    16, // MB
			MaxBackups: 3,
		}
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}
	log.SetOutput(w)

	if err != nil {
		log.WithFields(log.Fields{"level": opts.Level}).Warn("invalid log level, using info")
	}
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
