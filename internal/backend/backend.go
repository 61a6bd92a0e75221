// Package backend defines the chat backend operations the client consumes
// and an HTTP implementation of them.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianoliveira/chat-intray/internal/domain"
)

// UnreadSource reports server-side unread counts.
type UnreadSource interface {
	// GetUnreadCounts returns the unread entry of every channel the user belongs to.
	GetUnreadCounts(ctx context.Context) ([]domain.ChannelUnread, error)
	// GetUnreadCountForChannel returns the unread entry of a single channel.
	GetUnreadCountForChannel(ctx context.Context, channelID string) (domain.ChannelUnread, error)
}

// FileService uploads and deletes attachments.
type FileService interface {
	// UploadFile sends the file and calls onProgress with the fraction sent so far.
	UploadFile(ctx context.Context, file domain.RawFile, dest domain.Destination, onProgress func(float64)) (domain.UploadedFile, error)
	// DeleteFile removes a previously uploaded file.
	DeleteFile(ctx context.Context, serverFileID string) error
}

// MessageService creates chat messages.
type MessageService interface {
	CreateMessage(ctx context.Context, channelID string, payload domain.MessagePayload) (domain.MessageRecord, error)
}

// Client is the full set of backend operations.
type Client interface {
	UnreadSource
	FileService
	MessageService
}

// ErrEmptyID is returned when a request needs an id that was not provided.
var ErrEmptyID = errors.New("empty id")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
