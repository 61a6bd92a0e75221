package domain

import (
	"fmt"
	"io"
)

// UploadStatus is the lifecycle state of a queued file.
type UploadStatus string

const (
	StatusUploading UploadStatus = "uploading"
	StatusUploaded  UploadStatus = "uploaded"
	StatusError     UploadStatus = "error"
)

// IsValid checks if the status is one of the known states.
func (s UploadStatus) IsValid() bool {
	switch s {
	case StatusUploading, StatusUploaded, StatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s UploadStatus) String() string {
	return string(s)
}

// QueuedFile is one attachment of a pending message.
type QueuedFile struct {
	ID               string       `json:"id"`
	ChannelID        string       `json:"channel_id"`
	FileName         string       `json:"file_name"`
	SizeBytes        int64        `json:"size_bytes"`
	EnqueuedAtMillis int64        `json:"enqueued_at_millis"`
	Status           UploadStatus `json:"status"`
	ProgressPercent  int          `json:"progress_percent"`
	ServerFileID     string       `json:"server_file_id,omitempty"`
	ServerFileURL    string       `json:"server_file_url,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// HasServerFile reports whether the backend holds a copy of the file.
func (f QueuedFile) HasServerFile() bool {
	return f.ServerFileID != ""
}

// Validate checks the invariants of a stored uploaded file.
func (f QueuedFile) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("file id cannot be empty")
	}
	if !f.Status.IsValid() {
		return fmt.Errorf("invalid upload status: %s", f.Status)
	}
	if f.Status == StatusUploaded && f.ServerFileID == "" {
		return fmt.Errorf("uploaded file %s has no server file id", f.ID)
	}
	if f.ProgressPercent < 0 || f.ProgressPercent > 100 {
		return fmt.Errorf("invalid progress for %s: %d", f.ID, f.ProgressPercent)
	}
	return nil
}

// ClampPercent converts an upload fraction into a 0-100 percentage.
func ClampPercent(fraction float64) int {
	p := int(fraction * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// RawFile is a file the user attaches before it is uploaded.
type RawFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Destination tells the backend where an uploaded file belongs.
type Destination struct {
	ChannelID string
	Folder    string
}

// UploadedFile is the backend's answer to a successful upload.
type UploadedFile struct {
	ServerFileID  string `json:"file_id"`
	ServerFileURL string `json:"file_url"`
}
