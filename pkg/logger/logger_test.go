package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/config"
)

func TestNew_JSONFormat(t *testing.T) {
	log := New(&config.Config{Env: "development", LogLevel: "info", LogFormat: "json"})
	require.NotNil(t, log)

	// chained loggers must be usable without touching the original
	child := log.WithField("component", "test").WithFields(map[string]interface{}{"a": 1})
	require.NotNil(t, child)
	child.Info("hello")
}

func TestNew_ConsoleFormat(t *testing.T) {
	log := New(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"})
	require.NotNil(t, log)
	log.Debug("console output")
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warn":     zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"fatal":    zerolog.FatalLevel,
		"anything": zerolog.InfoLevel,
		"":         zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestZerolog_ChildLogger(t *testing.T) {
	log := New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})

	child := log.Zerolog().With().Str("component", "unit").Logger()
	child.Info().Msg("suppressed at error level")
}
