package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// config is the optional TOML file passed with -config, ex.
//
//	[log]
//	level = "debug"
//	format = "json"
type config struct {
	Log logConfig `toml:"log"`
}

type logConfig struct {
	// Level is a zap level name such as "debug" or "warn". Defaults to "info".
	Level string `toml:"level"`
	// Format is "console" or "json". Defaults to "console".
	Format string `toml:"format"`
}

func defaultConfig() *config {
	return &config{Log: logConfig{Level: "info", Format: "console"}}
}

// loadConfig reads the config at path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (*config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	md, err := toml.Decode(string(b), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys %v", undecoded)
	}
	return c, nil
}

// newLogger returns a logger writing to w as configured.
func (c *config) newLogger(w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch c.Log.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level)), nil
}
