package config

import (
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"strakmachine/strakerr"
)

const DefaultPath = "conf/strak.ini"

type Config struct {
	BuildDir string `validate:"required"`
	Params   string `validate:"required"`
	Template string

	PolarWorker string `validate:"required"`
	Optimizer   string `validate:"required"`
	// seconds, 0 disables the timeout
	Timeout int `validate:"gte=0"`

	LogLevel string `validate:"oneof=trace debug info warn warning error"`
	LogFile  string

	Addr string `validate:"required"`

	AlphaMin  float64
	AlphaMax  float64 `validate:"gtfield=AlphaMin"`
	AlphaStep float64 `validate:"gt=0"`
}

var validate = validator.New()

// Load reads the ini file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, strakerr.Wrap(strakerr.BadConfig, path, err, "cannot read configuration")
		}
		log.WithFields(log.Fields{"file": path}).Warn("configuration file not found, using defaults")
		file = ini.Empty()
	}
	return loadCfg(file)
}

// Parse reads configuration from ini text.
func Parse(b []byte) (*Config, error) {
	file, err := ini.Load(b)
	if err != nil {
		return nil, strakerr.Wrap(strakerr.BadConfig, nil, err, "cannot parse configuration")
	}
	return loadCfg(file)
}

func loadCfg(file *ini.File) (*Config, error) {
	cfg := &Config{
		BuildDir: file.Section("paths").Key("build_dir").MustString("build"),
		Params:   file.Section("paths").Key("params").MustString("ressources/strak_machineParams.txt"),
		Template: file.Section("paths").Key("template").MustString(""),

		PolarWorker: file.Section("tools").Key("polar_worker").MustString("xfoil_worker"),
		Optimizer:   file.Section("tools").Key("optimizer").MustString("xoptfoil-jx"),
		Timeout:     file.Section("tools").Key("timeout").MustInt(0),

		LogLevel: file.Section("log").Key("level").MustString("info"),
		LogFile:  file.Section("log").Key("file").MustString("strak.log"),

		Addr: file.Section("server").Key("addr").MustString(":9000"),

		AlphaMin:  file.Section("polar").Key("alpha_min").MustFloat64(-20),
		AlphaMax:  file.Section("polar").Key("alpha_max").MustFloat64(20),
		AlphaStep: file.Section("polar").Key("alpha_step").MustFloat64(0.25),
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, strakerr.New(strakerr.BadConfig, verrs[0].Value(), "configuration %s fails %s", verrs[0].Field(), verrs[0].Tag())
		}
		return nil, strakerr.Wrap(strakerr.BadConfig, nil, err, "configuration")
	}
	return cfg, nil
}
