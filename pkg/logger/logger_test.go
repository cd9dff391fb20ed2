package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"shouty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		l := New(Config{Level: tt.level, Out: &bytes.Buffer{}})
		assert.Equal(t, tt.want, l.GetLevel(), tt.level)
	}
}

func TestNew_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Out: &buf})
	l.Debug().Msg("hidden")
	l.Info().Str("symbol", "AAPL").Msg("scored")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scored", line["message"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.Equal(t, "trendsentinel", line["app"])
	assert.Contains(t, line, "time")
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Pretty: true, Out: &buf})
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestSetGlobalLogger(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	SetGlobalLogger(New(Config{Out: &buf}))
	log.Info().Msg("global")
	assert.Contains(t, buf.String(), "global")
}
