package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadConfig(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		c, err := loadConfig("")
		require.NoError(t, err)
		require.Equal(t, defaultConfig(), c)
	})
	t.Run("partial", func(t *testing.T) {
		c, err := loadConfig(writeFile(t, "c.toml", "[log]\nformat = \"json\"\n"))
		require.NoError(t, err)
		require.Equal(t, &config{Log: logConfig{Level: "info", Format: "json"}}, c)
	})
	t.Run("invalid toml", func(t *testing.T) {
		_, err := loadConfig(writeFile(t, "c.toml", "[log\n"))
		require.Error(t, err)
	})
}

func TestConfig_newLogger(t *testing.T) {
	tests := []struct {
		name     string
		log      logConfig
		expected string
	}{
		{name: "console", log: logConfig{Level: "debug", Format: "console"}, expected: "DEBUG\thello"},
		{name: "json", log: logConfig{Level: "info", Format: "json"}, expected: `"msg":"hello"`},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := (&config{Log: tc.log}).newLogger(&buf)
			require.NoError(t, err)

			logger.Info("hello")
			logger.Debug("hello")
			require.NoError(t, logger.Sync())
			require.Contains(t, buf.String(), tc.expected)
			if tc.log.Level != zapcore.DebugLevel.String() {
				require.NotContains(t, buf.String(), "debug")
			}
		})
	}

	t.Run("invalid level", func(t *testing.T) {
		_, err := (&config{Log: logConfig{Level: "loud", Format: "console"}}).newLogger(&bytes.Buffer{})
		require.Error(t, err)
	})
	t.Run("invalid format", func(t *testing.T) {
		_, err := (&config{Log: logConfig{Level: "info", Format: "xml"}}).newLogger(&bytes.Buffer{})
		require.EqualError(t, err, `invalid log format "xml"`)
	})
}
