package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/dustin/go-humanize"
)

// TableConfig holds configuration for table formatting.
type TableConfig struct {
	// ShowHeaders determines whether to show column headers.
	ShowHeaders bool

	// HeaderColor is the color to use for headers.
	HeaderColor string

	// ColumnWidths defines the width for each column.
	ColumnWidths map[string]int

	// ColumnAlignments defines the alignment for each column (left, right, center).
	ColumnAlignments map[string]string
}

// DefaultTableConfig returns a default table configuration.
func DefaultTableConfig() *TableConfig {
	return &TableConfig{
		ShowHeaders: true,
		HeaderColor: colors.Blue,
		ColumnWidths: map[string]int{
			"ID":     36,
			"Name":   28,
			"Size":   9,
			"Status": 16,
		},
		ColumnAlignments: map[string]string{
			"Size": "right",
		},
	}
}

// TableColumn represents a column in a table.
type TableColumn struct {
	// Name is the column name displayed in the header.
	Name string

	// Width is the column width in characters.
	Width int

	// Extractor extracts the cell value from a file.
	Extractor func(domain.QueuedFile) string
}

// TableFormatter prints queued files as aligned columns.
type TableFormatter struct {
	config  *TableConfig
	columns []TableColumn
}

// NewTableFormatter creates a TableFormatter with the default columns.
func NewTableFormatter() *TableFormatter {
	config := DefaultTableConfig()
	col := func(name string, value func(domain.QueuedFile) string) TableColumn {
		width := config.ColumnWidths[name]
		align := config.ColumnAlignments[name]
		return TableColumn{
			Name:  name,
			Width: width,
			Extractor: func(f domain.QueuedFile) string {
				return formatString(value(f), width, align)
			},
		}
	}
	return &TableFormatter{
		config: config,
		columns: []TableColumn{
			col("ID", func(f domain.QueuedFile) string { return f.ID }),
			{
				Name:  "Name",
				Width: config.ColumnWidths["Name"],
				Extractor: func(f domain.QueuedFile) string {
					return truncateString(f.FileName, config.ColumnWidths["Name"])
				},
			},
			col("Size", func(f domain.QueuedFile) string { return humanize.Bytes(uint64(max(f.SizeBytes, 0))) }),
			col("Status", statusLabel),
		},
	}
}

// FormatFiles formats files as a table. Nothing is written for an empty list.
func (f *TableFormatter) FormatFiles(files []domain.QueuedFile, writer io.Writer) error {
	if len(files) == 0 {
		return nil
	}

	if f.config.ShowHeaders {
		if err := f.writeHeader(writer); err != nil {
			return err
		}
		if err := f.writeSeparator(writer); err != nil {
			return err
		}
	}

	for _, file := range files {
		if err := f.writeRow(file, writer); err != nil {
			return err
		}
	}
	return nil
}

// writeHeader writes the table header.
func (f *TableFormatter) writeHeader(writer io.Writer) error {
	cells := make([]string, len(f.columns))
	for i, col := range f.columns {
		cells[i] = formatString(col.Name, col.Width, "left")
	}
	_, err := fmt.Fprintf(writer, "%s%s%s\n", f.config.HeaderColor, strings.TrimRight(strings.Join(cells, "  "), " "), colors.Reset)
	return err
}

// writeSeparator writes the table separator.
func (f *TableFormatter) writeSeparator(writer io.Writer) error {
	cells := make([]string, len(f.columns))
	for i, col := range f.columns {
		cells[i] = strings.Repeat("-", col.Width)
	}
	_, err := fmt.Fprintln(writer, strings.Join(cells, "  "))
	return err
}

// writeRow writes a single table row.
func (f *TableFormatter) writeRow(file domain.QueuedFile, writer io.Writer) error {
	cells := make([]string, len(f.columns))
	for i, col := range f.columns {
		cells[i] = col.Extractor(file)
	}
	_, err := fmt.Fprintln(writer, strings.TrimRight(strings.Join(cells, "  "), " "))
	return err
}

// formatString formats a string with the specified width and alignment.
func formatString(s string, width int, alignment string) string {
	if len(s) >= width {
		return s[:width]
	}

	switch alignment {
	case "right":
		return strings.Repeat(" ", width-len(s)) + s
	case "center":
		left := (width - len(s)) / 2
		right := width - len(s) - left
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
	default: // left
		return s + strings.Repeat(" ", width-len(s))
	}
}

// truncateString truncates a string to the specified width, adding "..." if truncated.
func truncateString(s string, width int) string {
	if len(s) <= width {
		return s + strings.Repeat(" ", width-len(s))
	}
	if width < 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
