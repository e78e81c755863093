package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lixenwraith/perfgov/config"
)

func TestSetupLogging_DisabledByDefault(t *testing.T) {
	logDir = t.TempDir()

	logger, err := setupLogging(config.Default(), false)
	require.NoError(t, err)
	logger.Info("not written anywhere")

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel), "stderr fallback only carries warnings")
	_, err = os.Stat(filepath.Join(logDir, logFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestSetupLogging_EnabledWithDebug(t *testing.T) {
	logDir = filepath.Join(t.TempDir(), "logs")

	logger, err := setupLogging(config.Default(), true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger.Debug("test log message")
	_ = logger.Sync()

	info, err := os.Stat(filepath.Join(logDir, logFileName))
	require.NoError(t, err, "log file created under the log directory")
	assert.Positive(t, info.Size())
}

func TestSetupLogging_InvalidLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"

	_, err := setupLogging(cfg, false)
	assert.Error(t, err)
}
