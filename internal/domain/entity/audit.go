package entity

import (
	"time"

	"github.com/google/uuid"
)

// Entity types recorded in the audit trail.
const (
	EntityBatch      = "PaymentBatch"
	EntityRequest    = "PaymentRequest"
	EntitySoaVersion = "SOAVersion"
)

// Audit event types.
const (
	EventBatchCreated     = "BATCH_CREATED"
	EventBatchSubmitted   = "BATCH_SUBMITTED"
	EventBatchCancelled   = "BATCH_CANCELLED"
	EventBatchProcessing  = "BATCH_PROCESSING"
	EventBatchCompleted   = "BATCH_COMPLETED"
	EventRequestCreated   = "REQUEST_CREATED"
	EventRequestUpdated   = "REQUEST_UPDATED"
	EventRequestSubmitted = "REQUEST_SUBMITTED"
	EventApprovalRecorded = "APPROVAL_RECORDED"
	EventRequestPaid      = "REQUEST_PAID"
	EventSoaUploaded      = "SOA_UPLOADED"
	EventSoaGenerated     = "SOA_GENERATED"
)

// AuditEntry is one immutable record in the append-only audit trail.
// ActorID is nil for system transitions. PreviousState is nil for creation
// events. Entries are written synchronously inside the transaction that
// applies the transition, which keeps OccurredAt non-decreasing per entity.
type AuditEntry struct {
	ID            uuid.UUID  `json:"id"`
	EventType     string     `json:"event_type"`
	EntityType    string     `json:"entity_type"`
	EntityID      uuid.UUID  `json:"entity_id"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
	PreviousState *string    `json:"previous_state,omitempty"`
	NewState      string     `json:"new_state"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// AuditFilter narrows an audit query. All set fields are combined with AND;
// zero values mean "no constraint".
type AuditFilter struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    uuid.UUID
	From       time.Time
	To         time.Time
}
