// Package export renders captured SOA snapshots into immutable artifacts.
// Renderers are pure I/O: every business rule has already been applied by
// the time a snapshot reaches them.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
)

// ExcelExporter renders SOA snapshots as spreadsheets
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new ExcelExporter
func NewExcelExporter(logger *zap.Logger) port.SnapshotExporter {
	return &ExcelExporter{logger: logger}
}

// Format returns the spreadsheet format
func (e *ExcelExporter) Format() entity.ExportFormat {
	return entity.FormatSpreadsheet
}

// Render produces the spreadsheet artifact for the snapshot
func (e *ExcelExporter) Render(snapshot *entity.SoaSnapshot) (*entity.Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "SOA Export"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	row := 1
	setCell := func(col int, value interface{}) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			e.logger.Warn("Failed to set cell value", zap.String("cell", cell), zap.Error(err))
		}
	}

	// Batch header block
	setCell(1, "Batch Information")
	row++
	setCell(1, "Batch ID")
	setCell(2, snapshot.BatchID.String())
	row++
	setCell(1, "Title")
	setCell(2, snapshot.BatchTitle)
	row++
	setCell(1, "Status")
	setCell(2, snapshot.BatchStatus.String())
	row++
	setCell(1, "Created")
	setCell(2, snapshot.CreatedAt.Format("2006-01-02 15:04"))
	row += 2

	// Request table
	setCell(1, "Payment Requests & SOA")
	row++
	headers := []string{
		"Beneficiary", "Amount", "Currency", "Purpose", "Status",
		"SOA Version", "SOA Source", "SOA Uploaded At",
	}
	for col, h := range headers {
		setCell(col+1, h)
	}
	start, _ := excelize.CoordinatesToCellName(1, row)
	end, _ := excelize.CoordinatesToCellName(len(headers), row)
	if err := f.SetCellStyle(sheet, start, end, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	row++

	writeBase := func(r entity.SoaSnapshotRow) {
		setCell(1, r.BeneficiaryName)
		setCell(2, r.Amount.InexactFloat64())
		setCell(3, r.Currency)
		setCell(4, r.Purpose)
		setCell(5, r.Status.String())
	}

	for _, r := range snapshot.Rows {
		if len(r.Versions) == 0 {
			writeBase(r)
			setCell(6, "—")
			setCell(7, "—")
			setCell(8, "—")
			row++
			continue
		}
		for _, v := range r.Versions {
			writeBase(r)
			setCell(6, v.VersionNumber)
			setCell(7, v.Source)
			setCell(8, v.UploadedAt.Format("2006-01-02 15:04"))
			row++
		}
	}

	row++
	setCell(1, "Batch Total")
	setCell(2, snapshot.BatchTotal.InexactFloat64())
	row++
	setCell(1, fmt.Sprintf("Exported on %s", snapshot.ExportedAt.UTC().Format("2006-01-02 15:04 UTC")))

	if err := f.SetColWidth(sheet, "A", "H", 18); err != nil {
		return nil, fmt.Errorf("failed to set column widths: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	return &entity.Artifact{
		Filename:    artifactName(snapshot.BatchTitle, snapshot.ExportedAt, "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
	}, nil
}

// artifactName builds the dated export filename
func artifactName(title string, exportedAt time.Time, ext string) string {
	return fmt.Sprintf("soa_export_%s_%s.%s",
		strings.ReplaceAll(title, " ", "_"),
		exportedAt.UTC().Format("20060102_1504"),
		ext)
}

// Verify interface compliance
var _ port.SnapshotExporter = (*ExcelExporter)(nil)
