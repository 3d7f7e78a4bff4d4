package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payops/payment-workflow/internal/domain/lifecycle"
)

// SOA document sources.
const (
	SoaSourceUpload    = "UPLOAD"
	SoaSourceGenerated = "GENERATED"
)

// SOAVersion is one version of a request's Statement of Account document.
// Versions start at 1, increase without gaps and are never deleted; the
// highest version is the request's live document.
type SOAVersion struct {
	ID                uuid.UUID  `json:"id"`
	RequestID         uuid.UUID  `json:"request_id"`
	VersionNumber     int        `json:"version_number"`
	DocumentReference string     `json:"document_reference"`
	Source            string     `json:"source"`
	UploadedAt        time.Time  `json:"uploaded_at"`
	UploadedBy        *uuid.UUID `json:"uploaded_by,omitempty"`
}

// SoaSummary is the live SOA view for one request, always computed from the
// current maximum version.
type SoaSummary struct {
	RequestID        uuid.UUID  `json:"request_id"`
	HasSoa           bool       `json:"has_soa"`
	LatestVersion    int        `json:"latest_version"`
	LatestUploadedAt *time.Time `json:"latest_uploaded_at,omitempty"`
}

// Export formats for SOA snapshots.
type ExportFormat string

const (
	FormatPDF         ExportFormat = "pdf"
	FormatSpreadsheet ExportFormat = "xlsx"
)

// IsValid returns true if the format is supported
func (f ExportFormat) IsValid() bool {
	return f == FormatPDF || f == FormatSpreadsheet
}

// SoaSnapshot is the point-in-time data an export is rendered from. It is a
// pure function of batch, request and SOA state at the instant of capture;
// the rendered artifact never changes once handed to the caller.
type SoaSnapshot struct {
	BatchID     uuid.UUID
	BatchTitle  string
	BatchStatus lifecycle.BatchStatus
	CreatedAt   time.Time
	SubmittedAt *time.Time
	CompletedAt *time.Time
	Rows        []SoaSnapshotRow
	BatchTotal  decimal.Decimal
	ExportedAt  time.Time
}

// SoaSnapshotRow is one request line in a snapshot, with its full SOA
// version history at capture time.
type SoaSnapshotRow struct {
	RequestID       uuid.UUID
	BeneficiaryName string
	Amount          decimal.Decimal
	Currency        string
	Purpose         string
	Status          lifecycle.RequestStatus
	Versions        []SOAVersion
}

// Artifact is an opaque immutable export handed to the caller: a named,
// dated rendering the engine makes no further guarantees about.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}
