package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osms-business/osms_server/config"
)

func TestInit_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	err := Init(&config.LogConfig{
		Level:      "debug",
		Filename:   path,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())

	Log.Info("payment confirmed", zap.Int64("intent_id", 1))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "payment confirmed")
	assert.Contains(t, string(data), `"intent_id":1`)
}

func TestInit_ReplacesGlobals(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "info"}))
	defer zap.ReplaceGlobals(zap.NewNop())

	assert.Same(t, Log, zap.L())
}

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(&config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
