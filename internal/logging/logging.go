// Package logging configures the process logger. The terminal board owns
// stdout, so logs go to a rotating file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nhle/crafthub/internal/model"
)

// New builds a logger writing JSON lines to the configured rotating file.
// When alsoStderr is set, entries are mirrored to stderr.
func New(cfg model.LogConfig, alsoStderr bool) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})

	var out io.Writer = io.Discard
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}
	if alsoStderr {
		out = io.MultiWriter(out, os.Stderr)
	}
	logger.SetOutput(out)

	logger.WithField("file", cfg.File).Debug("logger initialized")
	return logger, nil
}
