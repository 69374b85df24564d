package config

import (
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/logging"
)

// setLogger builds the logger for env and replaces the zap globals with it
func setLogger(env string) (*zap.Logger, error) {
	logger, err := logging.New(env)
	if err != nil {
		return nil, err
	}
	_ = zap.ReplaceGlobals(logger)
	return logger, nil
}

// SetLogger swaps the global logger for env, e.g. after a command line override
func SetLogger(env string) error {
	_, err := setLogger(env)
	return err
}
