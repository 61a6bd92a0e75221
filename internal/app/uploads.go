package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/format"
	"github.com/cristianoliveira/chat-intray/internal/upload"
	"go.uber.org/multierr"
)

// UploadClient is the part of the upload queue the CLI drives.
type UploadClient interface {
	Attach(ctx context.Context, channelID string, raws []domain.RawFile) []string
	Wait()
	Files(channelID string) []domain.QueuedFile
	Remove(ctx context.Context, channelID, id string) error
	Send(ctx context.Context, channelID string) error
}

// ErrUploadsFailed is returned when at least one attached file failed.
var ErrUploadsFailed = errors.New("uploads failed")

// AttachUseCase uploads local files into a channel's pending message.
type AttachUseCase struct {
	client UploadClient
}

// NewAttachUseCase creates an attach use-case.
func NewAttachUseCase(client UploadClient) *AttachUseCase {
	if client == nil {
		panic("NewAttachUseCase: client dependency cannot be nil")
	}
	return &AttachUseCase{client: client}
}

// Execute opens every path, uploads them and waits for the uploads to
// settle. Paths that cannot be opened are reported without stopping the
// others.
func (u *AttachUseCase) Execute(ctx context.Context, channelID string, paths []string) ([]domain.QueuedFile, error) {
	var openErr error
	var raws []domain.RawFile
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			openErr = multierr.Append(openErr, fmt.Errorf("attach: %w", err))
			continue
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			openErr = multierr.Append(openErr, fmt.Errorf("attach: %w", err))
			continue
		}
		if info.IsDir() {
			openErr = multierr.Append(openErr, fmt.Errorf("attach: %s is a directory", p))
			continue
		}
		raws = append(raws, domain.RawFile{Name: filepath.Base(p), Size: info.Size(), Content: f})
	}
	if len(raws) == 0 {
		if openErr == nil {
			openErr = fmt.Errorf("attach: no files given")
		}
		return nil, openErr
	}

	ids := u.client.Attach(ctx, channelID, raws)
	u.client.Wait()

	byID := make(map[string]domain.QueuedFile)
	for _, f := range u.client.Files(channelID) {
		byID[f.ID] = f
	}
	result := make([]domain.QueuedFile, 0, len(ids))
	failed := 0
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			continue
		}
		if f.Status == domain.StatusError {
			failed++
		}
		result = append(result, f)
	}
	if failed > 0 {
		openErr = multierr.Append(openErr, fmt.Errorf("attach: %d of %d: %w", failed, len(ids), ErrUploadsFailed))
	}
	return result, openErr
}

// FilesUseCase prints a channel's pending attachments.
type FilesUseCase struct {
	client UploadClient
}

// NewFilesUseCase creates a files use-case.
func NewFilesUseCase(client UploadClient) *FilesUseCase {
	if client == nil {
		panic("NewFilesUseCase: client dependency cannot be nil")
	}
	return &FilesUseCase{client: client}
}

// Execute writes the files of channelID in the requested format.
func (u *FilesUseCase) Execute(channelID string, formatName string, w io.Writer) error {
	ft, err := format.ParseFormatterType(formatName)
	if err != nil {
		return fmt.Errorf("files: %w", err)
	}
	files := u.client.Files(channelID)
	if len(files) == 0 && ft != format.FormatterTypeJSON {
		colors.Info(fmt.Sprintf("No pending files for %s", channelID))
		return nil
	}
	return format.NewFormatter(ft).FormatFiles(files, w)
}

// RemoveUseCase drops an attachment from a channel's pending message.
type RemoveUseCase struct {
	client UploadClient
}

// NewRemoveUseCase creates a remove use-case.
func NewRemoveUseCase(client UploadClient) *RemoveUseCase {
	if client == nil {
		panic("NewRemoveUseCase: client dependency cannot be nil")
	}
	return &RemoveUseCase{client: client}
}

// Execute removes the file. The record is gone even when the returned error
// reports a failed server delete.
func (u *RemoveUseCase) Execute(ctx context.Context, channelID, id string) error {
	err := u.client.Remove(ctx, channelID, id)
	if errors.Is(err, upload.ErrEmptyChannel) {
		return fmt.Errorf("remove: %w", err)
	}
	if err != nil {
		colors.Warning(fmt.Sprintf("file %s removed locally: %v", id, err))
		return nil
	}
	colors.Success(fmt.Sprintf("File %s removed", id))
	return nil
}

// SendUseCase posts one message per uploaded attachment.
type SendUseCase struct {
	client UploadClient
}

// NewSendUseCase creates a send use-case.
func NewSendUseCase(client UploadClient) *SendUseCase {
	if client == nil {
		panic("NewSendUseCase: client dependency cannot be nil")
	}
	return &SendUseCase{client: client}
}

// Execute sends the uploaded files of channelID.
func (u *SendUseCase) Execute(ctx context.Context, channelID string) error {
	uploaded := 0
	for _, f := range u.client.Files(channelID) {
		if f.Status == domain.StatusUploaded {
			uploaded++
		}
	}
	if uploaded == 0 {
		colors.Info(fmt.Sprintf("Nothing to send for %s", channelID))
		return nil
	}
	if err := u.client.Send(ctx, channelID); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	colors.Success(fmt.Sprintf("Sent %d file(s) to %s", uploaded, channelID))
	return nil
}
