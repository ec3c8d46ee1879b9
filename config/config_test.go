package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"layercast/config"
)

func TestDataDirPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LAYERCAST_DATA_DIR", dir)

	paths := map[string]string{
		"credentials": config.GetCredentialsDBPath(),
		"failures":    config.GetFailuresDBPath(),
		"success":     config.GetSuccessDBPath(),
		"queue":       config.GetQueueDBPath(),
		"renders":     config.GetRenderDir(),
	}
	for name, p := range paths {
		if filepath.Dir(p) != dir {
			t.Errorf("%s path %s not under %s", name, p, dir)
		}
	}
	if got := config.GetQueueDBPath(); got != filepath.Join(dir, "queue.db") {
		t.Errorf("queue path = %s", got)
	}
}

func TestDataDirDefault(t *testing.T) {
	t.Setenv("LAYERCAST_DATA_DIR", "")
	if got := config.GetDataDir(); got != "./data" {
		t.Errorf("default data dir = %s", got)
	}
}

func TestWorkerCount(t *testing.T) {
	t.Setenv("LAYERCAST_WORKERS", "3")
	if got := config.GetWorkerCount(); got != 3 {
		t.Errorf("workers = %d, want 3", got)
	}
	for _, bad := range []string{"0", "-2", "many"} {
		t.Setenv("LAYERCAST_WORKERS", bad)
		if got := config.GetWorkerCount(); got != runtime.NumCPU() {
			t.Errorf("workers for %q = %d, want NumCPU", bad, got)
		}
	}
}

func TestRetention(t *testing.T) {
	t.Setenv("LAYERCAST_RETENTION", "72h")
	if got := config.GetRetention(); got != 72*time.Hour {
		t.Errorf("retention = %v", got)
	}
	t.Setenv("LAYERCAST_RETENTION", "soon")
	if got := config.GetRetention(); got != 30*24*time.Hour {
		t.Errorf("invalid retention should fall back to 30 days, got %v", got)
	}
}

func TestDefaults(t *testing.T) {
	for _, k := range []string{"LAYERCAST_ENCODER", "LAYERCAST_FFMPEG", "LAYERCAST_ADDR", "LAYERCAST_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	if got := config.GetEncoderName(); got != "ffmpeg" {
		t.Errorf("encoder = %s", got)
	}
	if got := config.GetFFmpegPath(); got != "ffmpeg" {
		t.Errorf("ffmpeg = %s", got)
	}
	if got := config.GetListenAddr(); got != ":8080" {
		t.Errorf("addr = %s", got)
	}
	if got := config.GetLogLevel(); got != "info" {
		t.Errorf("log level = %s", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("LAYERCAST_TEST_FROM_FILE=loaded\nLAYERCAST_TEST_PRESET=file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LAYERCAST_TEST_PRESET", "env")
	t.Setenv("LAYERCAST_TEST_FROM_FILE", "")
	os.Unsetenv("LAYERCAST_TEST_FROM_FILE")

	if err := config.LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("LAYERCAST_TEST_FROM_FILE"); got != "loaded" {
		t.Errorf("LAYERCAST_TEST_FROM_FILE = %q", got)
	}
	if got := os.Getenv("LAYERCAST_TEST_PRESET"); got != "env" {
		t.Errorf("existing variable overridden: %q", got)
	}

	if err := config.LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should not be an error: %v", err)
	}
}
