package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		" Warn ":  zapcore.WarnLevel,
	}
	for in, want := range tests {
		require.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew(t *testing.T) {
	log, err := New("debug", "event-tracker")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))

	child := log.Named("ingest").WithRequest("req-1", "conv-1")
	require.NotNil(t, child.Logger)
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	require.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewForFormat(t *testing.T) {
	log, err := NewForFormat(FormatConsole, "warn", "event-tracker")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.InfoLevel))
	require.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = NewForFormat("yaml", "info", "event-tracker")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
