package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/pkg/database"
)

// ApprovalRepository implements port.ApprovalRepository on sqlite
type ApprovalRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *database.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

// Create records an approval decision. The UNIQUE constraint on request_id
// guarantees at most one decision per request.
func (r *ApprovalRepository) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (id, request_id, approver, decision, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		record.ID.String(),
		record.RequestID.String(),
		record.Approver.String(),
		record.Decision,
		record.Comment,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval record",
			zap.String("request_id", record.RequestID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}
	return nil
}

// GetByRequestID retrieves the decision for a request, (nil, nil) when none
func (r *ApprovalRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.ApprovalRecord, error) {
	query := `
		SELECT id, request_id, approver, decision, comment, created_at
		FROM approval_records
		WHERE request_id = ?
	`

	var (
		record          entity.ApprovalRecord
		id, reqID, appr string
		comment         sql.NullString
	)
	err := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, requestID.String()).
		Scan(&id, &reqID, &appr, &record.Decision, &comment, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval record: %w", err)
	}

	if record.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if record.RequestID, err = uuid.Parse(reqID); err != nil {
		return nil, err
	}
	if record.Approver, err = uuid.Parse(appr); err != nil {
		return nil, err
	}
	record.Comment = comment.String
	return &record, nil
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
