package main

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/config"
	"github.com/lixenwraith/perfgov/logging"
)

const (
	logFileName = "sandbox.log"
	maxLogSize  = 10 // MB before rotation
)

// logDir is a variable so tests can redirect it
var logDir = "logs"

// setupLogging keeps the terminal clean: with debug on, everything at debug level
// goes to a rotated file under logDir; otherwise the configured log section applies
func setupLogging(cfg *config.Config, debug bool) (*zap.Logger, error) {
	lc := cfg.Log
	if debug {
		lc.Level = "debug"
		lc.File = filepath.Join(logDir, logFileName)
		lc.MaxSizeMB = maxLogSize
		lc.Console = false
	}
	return logging.New(lc)
}
