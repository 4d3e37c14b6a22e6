package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":       zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewFileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mover.log")
	logger, err := NewFile("debug", path)
	require.NoError(t, err)

	logger.Debug("persisted", zap.String("preset", "alpha"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"persisted"`)
	assert.Contains(t, string(data), `"preset":"alpha"`)
	assert.Contains(t, string(data), `"logger":"prompt-mover"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", false)
	assert.Error(t, err)
}
