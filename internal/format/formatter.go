// Package format renders queued attachments for the files command.
package format

import (
	"fmt"
	"io"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	json "github.com/goccy/go-json"
)

// Formatter defines the interface for attachment formatters.
type Formatter interface {
	// FormatFiles formats queued files and writes to the writer.
	FormatFiles(files []domain.QueuedFile, writer io.Writer) error
}

// FormatterType represents the type of formatter to use.
type FormatterType string

const (
	// FormatterTypeTable displays files in a table with headers.
	FormatterTypeTable FormatterType = "table"

	// FormatterTypeSimple displays one "id status name" line per file.
	FormatterTypeSimple FormatterType = "simple"

	// FormatterTypeJSON displays files as a JSON array.
	FormatterTypeJSON FormatterType = "json"
)

// ParseFormatterType validates a formatter name.
func ParseFormatterType(name string) (FormatterType, error) {
	switch t := FormatterType(name); t {
	case FormatterTypeTable, FormatterTypeSimple, FormatterTypeJSON:
		return t, nil
	case "":
		return FormatterTypeTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", name)
	}
}

// NewFormatter creates a new formatter of the specified type.
func NewFormatter(formatterType FormatterType) Formatter {
	switch formatterType {
	case FormatterTypeSimple:
		return simpleFormatter{}
	case FormatterTypeJSON:
		return jsonFormatter{}
	default:
		return NewTableFormatter()
	}
}

type simpleFormatter struct{}

func (simpleFormatter) FormatFiles(files []domain.QueuedFile, writer io.Writer) error {
	for _, f := range files {
		if _, err := fmt.Fprintf(writer, "%s %s %s\n", f.ID, statusLabel(f), f.FileName); err != nil {
			return err
		}
	}
	return nil
}

type jsonFormatter struct{}

func (jsonFormatter) FormatFiles(files []domain.QueuedFile, writer io.Writer) error {
	if files == nil {
		files = []domain.QueuedFile{}
	}
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(files)
}

// statusLabel shows progress while uploading and the message on failure.
func statusLabel(f domain.QueuedFile) string {
	switch f.Status {
	case domain.StatusUploading:
		return fmt.Sprintf("uploading(%d%%)", f.ProgressPercent)
	case domain.StatusError:
		if f.Error != "" {
			return "error: " + f.Error
		}
		return "error"
	default:
		return f.Status.String()
	}
}
