// Package report renders tabular data as spreadsheet or PDF downloads.
// It knows nothing about components or movements; callers project their
// rows into a Table first.
package report

import (
	"context"
	"fmt"
	"io"
)

// Column is a table column. XLSXWidth is in spreadsheet character units and
// PDFWidth in points.
type Column struct {
	Header    string
	XLSXWidth float64
	PDFWidth  float64
}

// Table is a titled grid of preformatted cells.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

// Format is an export format.
type Format string

// Formats.
const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatXLSX, FormatPDF:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render writes t to w in format f.
func Render(ctx context.Context, w io.Writer, t *Table, f Format) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatPDF:
		return WritePDF(w, t, PDFOptions{})
	}
	return fmt.Errorf("unknown report format %q", f)
}
