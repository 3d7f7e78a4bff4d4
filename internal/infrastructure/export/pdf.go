package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
)

// PdfExporter renders SOA snapshots as PDF documents
type PdfExporter struct {
	logger *zap.Logger
}

// NewPdfExporter creates a new PdfExporter
func NewPdfExporter(logger *zap.Logger) port.SnapshotExporter {
	return &PdfExporter{logger: logger}
}

// Format returns the PDF format
func (e *PdfExporter) Format() entity.ExportFormat {
	return entity.FormatPDF
}

// Render produces the PDF artifact for the snapshot
func (e *PdfExporter) Render(snapshot *entity.SoaSnapshot) (*entity.Artifact, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Statement of Account Export", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	info := [][2]string{
		{"Batch ID", snapshot.BatchID.String()},
		{"Title", snapshot.BatchTitle},
		{"Status", snapshot.BatchStatus.String()},
		{"Created", snapshot.CreatedAt.Format("2006-01-02 15:04")},
	}
	if snapshot.SubmittedAt != nil {
		info = append(info, [2]string{"Submitted", snapshot.SubmittedAt.Format("2006-01-02 15:04")})
	}
	if snapshot.CompletedAt != nil {
		info = append(info, [2]string{"Completed", snapshot.CompletedAt.Format("2006-01-02 15:04")})
	}
	for _, pair := range info {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(30, 6, pair[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, pair[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Request table
	widths := []float64{45, 25, 18, 42, 28, 32}
	headers := []string{"Beneficiary", "Amount", "Ccy", "Purpose", "Status", "Latest SOA"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(221, 221, 221)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range snapshot.Rows {
		latest := "-"
		if n := len(r.Versions); n > 0 {
			v := r.Versions[n-1]
			latest = fmt.Sprintf("v%d (%s)", v.VersionNumber, v.Source)
		}
		cells := []string{
			r.BeneficiaryName,
			r.Amount.StringFixed(2),
			r.Currency,
			r.Purpose,
			r.Status.String(),
			latest,
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, truncate(c, 34), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Batch Total: %s", snapshot.BatchTotal.StringFixed(2)), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Exported on %s", snapshot.ExportedAt.UTC().Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		e.logger.Error("Failed to render PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	return &entity.Artifact{
		Filename:    artifactName(snapshot.BatchTitle, snapshot.ExportedAt, "pdf"),
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	}, nil
}

// truncate shortens cell text so rows stay on one line
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// Verify interface compliance
var _ port.SnapshotExporter = (*PdfExporter)(nil)
