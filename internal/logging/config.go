// Package logging provides structured file logging for chat-intray.
package logging

import (
	"os"
	"path/filepath"

	"github.com/cristianoliveira/chat-intray/internal/config"
)

// Config holds logging configuration.
type Config struct {
	Enabled  bool
	Level    string
	MaxFiles int
	// Dir is where log files are written; empty means LogDir.
	Dir     string
	Command string
	PID     int
	// Secrets are literal values scrubbed from every message and field.
	Secrets []string
}

// DefaultConfig returns a disabled Config for the running process.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		MaxFiles: 10,
		Command:  filepath.Base(os.Args[0]),
		PID:      os.Getpid(),
	}
}

// FromGlobalConfig reads logging_* keys. debug forces the debug level;
// quiet forces error unless debug is also set. The backend and events
// tokens are registered as secrets.
func FromGlobalConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = config.GetBool("logging_enabled", false)
	cfg.Level = config.Get("logging_level", "info")
	cfg.MaxFiles = config.GetInt("logging_max_files", 10)
	switch {
	case config.GetBool("debug", false):
		cfg.Level = "debug"
	case config.GetBool("quiet", false):
		cfg.Level = "error"
	}
	for _, key := range []string{"api_token", "events_token"} {
		if v := config.Get(key, ""); v != "" {
			cfg.Secrets = append(cfg.Secrets, v)
		}
	}
	return cfg
}

// LogDir returns {state_dir}/logs when it is writable and falls back to
// {TMPDIR}/chat-intray/logs.
func LogDir() (string, error) {
	if stateDir := config.Get("state_dir", ""); stateDir != "" {
		dir := filepath.Join(stateDir, "logs")
		if writable(dir) {
			return dir, nil
		}
	}
	dir := filepath.Join(os.TempDir(), "chat-intray", "logs")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
