package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"layercast/logger"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"":        logger.INFO,
		"warning": logger.WARN,
		" error ": logger.ERROR,
	}
	for name, want := range cases {
		got, err := logger.ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := logger.ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelFilterAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	if err := logger.Init(path, false, logger.WARN); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var console bytes.Buffer
	logger.SetOutput(&console)

	logger.Info("dropped")
	logger.Warnf("kept %d", 1)
	logger.Close()
	logger.SetOutput(nil)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "dropped") {
		t.Error("INFO line written at WARN level")
	}
	if !strings.Contains(string(data), "[WARN]") || !strings.Contains(string(data), "kept 1") {
		t.Errorf("file log missing warning: %q", data)
	}
	if !strings.Contains(console.String(), "kept 1") {
		t.Errorf("console missing warning: %q", console.String())
	}
}

func TestInitRequiresOutput(t *testing.T) {
	if err := logger.Init("", false, logger.INFO); err == nil {
		t.Error("expected error with no destination")
	}
}
