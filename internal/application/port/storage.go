package port

import (
	"context"

	"github.com/payops/payment-workflow/internal/domain/entity"
)

// FileStorage persists SOA document content. Paths are relative to the
// storage root; documents are written once and never rewritten.
type FileStorage interface {
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// SnapshotExporter renders a captured SOA snapshot into an immutable
// artifact for one format.
type SnapshotExporter interface {
	Format() entity.ExportFormat
	Render(snapshot *entity.SoaSnapshot) (*entity.Artifact, error)
}
