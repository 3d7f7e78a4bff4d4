package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payops/payment-workflow/internal/domain/lifecycle"
)

// Batch groups payment requests for collective submission and approval.
// A batch exclusively owns its requests: they are created through it and
// cannot be reparented. Version is bumped on every state change and used
// for optimistic locking.
type Batch struct {
	ID          uuid.UUID             `json:"id"`
	Title       string                `json:"title"`
	Status      lifecycle.BatchStatus `json:"status"`
	CreatedBy   uuid.UUID             `json:"created_by"`
	CreatedAt   time.Time             `json:"created_at"`
	SubmittedAt *time.Time            `json:"submitted_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Version     int64                 `json:"version"`
}

// IsCreator reports whether the actor created this batch. Ownership is
// plain identity equality; there is no delegation.
func (b *Batch) IsCreator(actorID uuid.UUID) bool {
	return b.CreatedBy == actorID
}

// BatchTotal sums request amounts. The total is always derived from the
// current requests, never stored where it could drift.
func BatchTotal(requests []*Request) decimal.Decimal {
	total := decimal.Zero
	for _, r := range requests {
		total = total.Add(r.Amount)
	}
	return total
}
