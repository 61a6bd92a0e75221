package storage

import (
	"fmt"
	"strings"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	json "github.com/goccy/go-json"
)

// UploadedKeyPrefix prefixes the key of every channel's uploaded collection.
const UploadedKeyPrefix = "uploaded-files-"

// UploadedKey returns the storage key of channelID's uploaded collection.
func UploadedKey(channelID string) string {
	return UploadedKeyPrefix + channelID
}

// UploadedFiles persists per-channel uploaded collections as JSON arrays.
type UploadedFiles struct {
	kv KV
}

// NewUploadedFiles wraps kv.
func NewUploadedFiles(kv KV) *UploadedFiles {
	return &UploadedFiles{kv: kv}
}

// Load returns the uploaded collection of channelID, empty if none is stored.
func (u *UploadedFiles) Load(channelID string) ([]domain.QueuedFile, error) {
	raw, ok, err := u.kv.Get(UploadedKey(channelID))
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var files []domain.QueuedFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("decode uploaded files for %s: %w", channelID, err)
	}
	return files, nil
}

// Save replaces the uploaded collection of channelID. An empty collection
// removes the key.
func (u *UploadedFiles) Save(channelID string, files []domain.QueuedFile) error {
	if len(files) == 0 {
		return u.kv.Delete(UploadedKey(channelID))
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("encode uploaded files for %s: %w", channelID, err)
	}
	return u.kv.Put(UploadedKey(channelID), raw)
}

// Channels lists the channels that have a stored uploaded collection.
func (u *UploadedFiles) Channels() ([]string, error) {
	keys, err := u.kv.Keys(UploadedKeyPrefix)
	if err != nil {
		return nil, err
	}
	channels := make([]string, 0, len(keys))
	for _, k := range keys {
		channels = append(channels, strings.TrimPrefix(k, UploadedKeyPrefix))
	}
	return channels, nil
}
