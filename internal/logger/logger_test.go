package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"Error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"xyzzy", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		log, err := New("debug", format)
		require.NoError(t, err)
		require.True(t, log.Core().Enabled(zapcore.DebugLevel))
	}

	log, err := New("warn", "json")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.InfoLevel))
}
