package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/storage/sqlite"
)

const (
	// BackendJSON selects one JSON file per key.
	BackendJSON = "json"
	// BackendSQLite selects SQLite-backed storage.
	BackendSQLite = "sqlite"

	dbFileName = "chat-intray.db"
)

var _ KV = (*sqlite.KV)(nil)

// NewFromConfig creates the backend named by storage_backend under state_dir.
func NewFromConfig() (KV, error) {
	return NewForBackend(config.Get("storage_backend", BackendJSON), GetStateDir())
}

// NewForBackend creates a backend rooted at stateDir. Unknown names and a
// failing SQLite database fall back to JSON files with a warning.
func NewForBackend(backend, stateDir string) (KV, error) {
	if strings.TrimSpace(stateDir) == "" {
		return nil, fmt.Errorf("storage initialization failed: state_dir not configured")
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		return NewFileKV(filepath.Join(stateDir, kvDirName))
	case BackendSQLite:
		kv, err := sqlite.NewKV(filepath.Join(stateDir, dbFileName))
		if err != nil {
			colors.Warning(fmt.Sprintf("failed to initialize sqlite backend, falling back to json: %v", err))
			return NewFileKV(filepath.Join(stateDir, kvDirName))
		}
		return kv, nil
	default:
		colors.Warning(fmt.Sprintf("unknown storage backend '%s', falling back to json", backend))
		return NewFileKV(filepath.Join(stateDir, kvDirName))
	}
}
