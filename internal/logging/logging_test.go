package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nhle/crafthub/internal/model"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "crafthub.log")
	logger, err := New(model.LogConfig{File: path, Level: "info", MaxSizeMB: 1}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.WithField("task_id", "t1").Info("task write failed")
	logger.Debug("hidden")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"task_id":"t1"`) || !strings.Contains(out, "task write failed") {
		t.Errorf("log output = %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %s", logger.GetLevel())
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(model.LogConfig{Level: "loud"}, false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
