package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DATA_DIR is the directory where layercast stores its databases.
// Defaults to "./data" relative to the working directory.
var DATA_DIR = getDataDir()

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// getDataDir determines the data directory path from environment or default.
// Priority: LAYERCAST_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	if dir := os.Getenv("LAYERCAST_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDataDir returns the current data directory path. The environment is
// consulted on every call so tests and long-running servers see changes.
func GetDataDir() string {
	return getDataDir()
}

// GetCredentialsDBPath returns the path of the storage credentials database.
// Path: {DATA_DIR}/credentials.db
func GetCredentialsDBPath() string {
	return filepath.Join(GetDataDir(), "credentials.db")
}

// GetFailuresDBPath returns the path of the failed-run database.
// Path: {DATA_DIR}/failures.db
func GetFailuresDBPath() string {
	return filepath.Join(GetDataDir(), "failures.db")
}

// GetSuccessDBPath returns the path of the completed-run database.
// Path: {DATA_DIR}/success.db
func GetSuccessDBPath() string {
	return filepath.Join(GetDataDir(), "success.db")
}

// GetQueueDBPath returns the path of the durable merge queue.
// Path: {DATA_DIR}/queue.db
func GetQueueDBPath() string {
	return filepath.Join(GetDataDir(), "queue.db")
}

// GetDirectServeBaseDir returns the directory finished videos are published
// into for direct serving. Configurable via LAYERCAST_SERVE_DIR, never by
// end users. Defaults to "./serve".
func GetDirectServeBaseDir() string {
	if dir := os.Getenv("LAYERCAST_SERVE_DIR"); dir != "" {
		return dir
	}
	return "./serve"
}

// GetListenAddr returns the HTTP listen address (LAYERCAST_ADDR, default ":8080").
func GetListenAddr() string {
	if addr := os.Getenv("LAYERCAST_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// GetJWTSecret returns the HMAC secret merge tokens are verified with.
func GetJWTSecret() []byte {
	return []byte(os.Getenv("LAYERCAST_JWT_SECRET"))
}

// GetJWTIssuer returns the expected token issuer, empty to accept any.
func GetJWTIssuer() string {
	return os.Getenv("LAYERCAST_JWT_ISSUER")
}

// GetWorkerCount returns the compositing worker count. Invalid or
// non-positive values fall back to the number of CPUs.
func GetWorkerCount() int {
	if v := os.Getenv("LAYERCAST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

// GetEncoderName returns the default encoder registry name.
func GetEncoderName() string {
	if name := os.Getenv("LAYERCAST_ENCODER"); name != "" {
		return name
	}
	return "ffmpeg"
}

// GetFFmpegPath returns the ffmpeg binary used by the encoders.
func GetFFmpegPath() string {
	if p := os.Getenv("LAYERCAST_FFMPEG"); p != "" {
		return p
	}
	return "ffmpeg"
}

// GetLogLevel returns the configured log level name (default "info").
func GetLogLevel() string {
	if lvl := os.Getenv("LAYERCAST_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}

// GetLogFile returns the optional log file path.
func GetLogFile() string {
	return os.Getenv("LAYERCAST_LOG_FILE")
}

// GetRetention returns how long success and failure records are kept.
func GetRetention() time.Duration {
	if v := os.Getenv("LAYERCAST_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return 30 * 24 * time.Hour
}

// GetRenderDir returns where the server writes videos before publishing.
// Path: {DATA_DIR}/renders
func GetRenderDir() string {
	return filepath.Join(GetDataDir(), "renders")
}
