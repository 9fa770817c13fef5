package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const pageBreakY = 270

// PDF renders a single-column A4 report with passive and active sections.
func PDF(data Data) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("WebScan Report - "+data.target(), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("WebScan Report - "+data.target()), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s UTC", data.generatedAt().Format(time.RFC3339)), "", 1, "", false, 0, "")
	pdf.Ln(4)

	breakIfNeeded := func() {
		if pdf.GetY() > pageBreakY {
			pdf.AddPage()
		}
	}

	if len(data.Passive) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Passive Findings:", "", 1, "", false, 0, "")
		for _, f := range data.Passive {
			breakIfNeeded()
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("- %s (%s)", f.Title, f.Severity)), "", "", false)
			if f.Remediation != "" {
				pdf.SetFont("Arial", "I", 9)
				pdf.SetX(pdf.GetX() + 8)
				pdf.MultiCell(0, 5, tr("Remediation: "+f.Remediation), "", "", false)
			}
		}
		pdf.Ln(3)
	}

	if ports := data.ports(); len(ports) > 0 {
		breakIfNeeded()
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Active Findings:", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, p := range ports {
			breakIfNeeded()
			pdf.MultiCell(0, 5, tr("- "+p.Raw), "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
