package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
)

// BatchRepository defines persistence operations for Batch.
// Getters return (nil, nil) when the id is unknown; services map that to
// errs.ErrNotFound. Status updates are version-locked: a mismatch between
// the stored and expected version fails with errs.ErrConflict.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Batch, error)
	// List returns batches newest first. A zero createdBy lists all.
	List(ctx context.Context, createdBy uuid.UUID, limit, offset int) ([]*entity.Batch, error)
	// UpdateStatus applies a state change with optimistic locking on version.
	// submittedAt/completedAt are written only when non-nil.
	UpdateStatus(ctx context.Context, id uuid.UUID, status lifecycle.BatchStatus, submittedAt, completedAt *time.Time, version int64) error
	// Total derives the batch total from current request amounts.
	Total(ctx context.Context, batchID uuid.UUID) (decimal.Decimal, error)
}

// RequestRepository defines persistence operations for Request
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Request, error)
	// ListByBatch returns requests in insertion order.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entity.Request, error)
	// ListByStatus feeds the approval queue, oldest first.
	ListByStatus(ctx context.Context, status lifecycle.RequestStatus, limit, offset int) ([]*entity.Request, error)
	// UpdateFields persists edited payload fields with optimistic locking.
	UpdateFields(ctx context.Context, req *entity.Request) error
	// UpdateStatus applies a state change with optimistic locking on version.
	UpdateStatus(ctx context.Context, id uuid.UUID, status lifecycle.RequestStatus, version int64) error
}

// ApprovalRepository defines persistence operations for ApprovalRecord
type ApprovalRepository interface {
	Create(ctx context.Context, record *entity.ApprovalRecord) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.ApprovalRecord, error)
}

// AuditRepository is the append-only audit trail. No update or delete
// operation exists.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	// Query applies the filter's set fields conjunctively and returns
	// entries in a stable order (occurred_at, then insertion).
	Query(ctx context.Context, filter entity.AuditFilter, limit, offset int) ([]*entity.AuditEntry, error)
	// CountByEntity counts entries recorded for one entity.
	CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int, error)
}

// SoaRepository defines persistence operations for SOAVersion. Versions are
// append-only.
type SoaRepository interface {
	Create(ctx context.Context, version *entity.SOAVersion) error
	// MaxVersion returns 0 when the request has no versions yet.
	MaxVersion(ctx context.Context, requestID uuid.UUID) (int, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.SOAVersion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SOAVersion, error)
	// Summaries computes the live SOA summary for every request in the
	// batch from the current maximum versions.
	Summaries(ctx context.Context, batchID uuid.UUID) ([]*entity.SoaSummary, error)
	// HasGenerated reports whether any request in the batch already has a
	// system-generated version.
	HasGenerated(ctx context.Context, batchID uuid.UUID) (bool, error)
}

// ActorRepository defines persistence operations for Actor
type ActorRepository interface {
	Create(ctx context.Context, actor *entity.Actor) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Actor, error)
}

// TransactionManager scopes a function to one database transaction. The
// derived context carries the transaction; repositories route their
// statements through it, so a state change and its audit entry commit or
// roll back as a unit.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
