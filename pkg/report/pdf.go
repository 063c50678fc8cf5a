package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// A4 portrait in millimetres.
const (
	pageHeight   = 297.0
	marginLeft   = 10.0
	marginTop    = 10.0
	marginBottom = 10.0
	linePitch    = 10.0
)

// Paginate splits the lines into pages so that no baseline crosses the
// bottom margin.
func Paginate(lines []Line) [][]Line {
	var pages [][]Line
	var current []Line
	y := marginTop
	for _, line := range lines {
		if y > pageHeight-marginBottom {
			pages = append(pages, current)
			current = nil
			y = marginTop
		}
		current = append(current, line)
		y += linePitch
	}
	if len(current) > 0 || len(pages) == 0 {
		pages = append(pages, current)
	}
	return pages
}

// RenderPDF writes the document as an A4 PDF with a fixed line pitch.
func RenderPDF(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetTitle("Receita", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range Paginate(doc.Lines) {
		pdf.AddPage()
		y := marginTop
		for _, line := range page {
			if line.Text != "" {
				pdf.SetFont("Helvetica", "", line.FontSize)
				pdf.Text(marginLeft, y, tr(line.Text))
			}
			y += linePitch
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}
