package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SlipField is one labelled line on a printed gate pass slip.
type SlipField struct {
	Label string
	Value string
}

// SlipExporter renders a single gate pass as a compact A5 slip for printing
// at the front desk.
type SlipExporter struct{}

// NewSlipExporter constructs a slip exporter.
func NewSlipExporter() *SlipExporter {
	return &SlipExporter{}
}

// Render produces the slip PDF. The heading is the pass number, followed by
// the labelled fields in order.
func (e *SlipExporter) Render(heading, subheading string, fields []SlipField) ([]byte, error) {
	if heading == "" {
		return nil, fmt.Errorf("slip requires a heading")
	}
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, heading, "", 1, "C", false, 0, "")
	if subheading != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, subheading, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(12, pdf.GetY(), 136, pdf.GetY())
	pdf.Ln(4)

	for _, field := range fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(42, 7, field.Label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, field.Value, "", "", false)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(60, 7, "Issued by: ____________________", "", 0, "", false, 0, "")
	pdf.CellFormat(0, 7, "Gate: ____________________", "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render slip: %w", err)
	}
	return buf.Bytes(), nil
}
