// Package logger provides structured logging for feedbot.
//
// It wraps the zerolog library behind a small Logger interface with support
// for leveled logging, structured fields, console and file output, and a
// global instance for easy access.
//
// Basic usage:
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	if err := logger.Initialize(cfg); err != nil {
//	    // handle error
//	}
//
//	logger.Info("session started")
//	logger.WithField("target", "#golang").Info("collecting feed")
//	logger.WithError(err).Error("action failed")
//
// TestLogger captures log messages in memory for assertions in tests.
package logger
