package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// PDF layout, in points.
const (
	pdfMargin       = 30.0
	pdfBottomMargin = 50.0
	pdfRowHeight    = 16.0
	pdfFontSize     = 9.0
)

// PDFOptions tweaks PDF output.
type PDFOptions struct {
	// Uncompressed disables stream compression so the text can be inspected.
	Uncompressed bool
}

// WritePDF writes t as an A4 table. Columns keep their PDFWidth unless the
// table is wider than the printable area, in which case they shrink
// proportionally to fit. Rows that would cross the bottom margin start a new
// page, which repeats the header.
func WritePDF(w io.Writer, t *Table, opts PDFOptions) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfBottomMargin)
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetTitle(t.Title, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, pageHeight := pdf.GetPageSize()
	widths := fitWidths(t.Columns, pageWidth-2*pdfMargin)

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range t.Columns {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(col.Header), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 24, tr(t.Title), "", 1, "C", false, 0, "")
	pdf.Ln(6)
	header()

	for _, row := range t.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-pdfBottomMargin {
			pdf.AddPage()
			header()
		}
		for i := range t.Columns {
			value := ""
			if i < len(row) {
				value = truncate(pdf, tr(row[i]), widths[i]-4)
			}
			pdf.CellFormat(widths[i], pdfRowHeight, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

// fitWidths returns the column widths, scaled down proportionally when their
// sum exceeds available.
func fitWidths(cols []Column, available float64) []float64 {
	widths := make([]float64, len(cols))
	var total float64
	for i, col := range cols {
		widths[i] = col.PDFWidth
		total += col.PDFWidth
	}
	if total <= available {
		return widths
	}
	scale := available / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}

// truncate shortens s so it fits in width points at the current font.
// s is already translated to the single-byte font encoding.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	b := []byte(s)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"...") > width {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}
