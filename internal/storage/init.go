package storage

import (
	"os"

	"github.com/cristianoliveira/chat-intray/internal/config"
)

// File permission constants
const (
	// FileModeDir is the permission for directories (rwxr-xr-x)
	FileModeDir os.FileMode = 0755
	// FileModeFile is the permission for data files (rw-------)
	FileModeFile os.FileMode = 0600
)

// GetStateDir returns the state directory path.
func GetStateDir() string {
	return config.Get("state_dir", "")
}
