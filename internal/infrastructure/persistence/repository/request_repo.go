package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
	"github.com/payops/payment-workflow/internal/errs"
	"github.com/payops/payment-workflow/pkg/database"
)

// RequestRepository implements port.RequestRepository on sqlite
type RequestRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *database.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{db: db, logger: logger}
}

const requestColumns = `id, batch_id, amount, currency, beneficiary_name,
	beneficiary_account, purpose, status, created_by, created_at, updated_at, version`

// Create inserts a new request
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	query := `
		INSERT INTO payment_requests (
			id, batch_id, amount, currency, beneficiary_name,
			beneficiary_account, purpose, status, created_by,
			created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		req.ID.String(),
		req.BatchID.String(),
		req.Amount.String(),
		req.Currency,
		req.BeneficiaryName,
		req.BeneficiaryAccount,
		req.Purpose,
		req.Status.String(),
		req.CreatedBy.String(),
		req.CreatedAt,
		req.UpdatedAt,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetByID retrieves a request by id, (nil, nil) when unknown
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id = ?`

	row := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, id.String())
	req, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListByBatch returns the batch's requests in insertion order
func (r *RequestRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE batch_id = ? ORDER BY rowid ASC`

	rows, err := r.db.ExecutorFrom(ctx).QueryContext(ctx, query, batchID.String())
	if err != nil {
		r.logger.Error("Failed to list requests", zap.String("batch_id", batchID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListByStatus returns requests in the given status, oldest first
func (r *RequestRepository) ListByStatus(ctx context.Context, status lifecycle.RequestStatus, limit, offset int) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM payment_requests
		WHERE status = ?
		ORDER BY created_at ASC, rowid ASC
		LIMIT ? OFFSET ?`

	rows, err := r.db.ExecutorFrom(ctx).QueryContext(ctx, query,
		status.String(), normalizeLimit(limit), offset)
	if err != nil {
		r.logger.Error("Failed to list requests by status",
			zap.String("status", status.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list requests by status: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// UpdateFields persists edited payload fields with optimistic locking
func (r *RequestRepository) UpdateFields(ctx context.Context, req *entity.Request) error {
	query := `
		UPDATE payment_requests
		SET amount = ?, currency = ?, beneficiary_name = ?,
			beneficiary_account = ?, purpose = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		req.Amount.String(),
		req.Currency,
		req.BeneficiaryName,
		req.BeneficiaryAccount,
		req.Purpose,
		req.UpdatedAt,
		req.ID.String(),
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %s version %d", errs.ErrConflict, req.ID, req.Version)
	}
	return nil
}

// UpdateStatus applies a version-locked state change
func (r *RequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status lifecycle.RequestStatus, version int64) error {
	query := `
		UPDATE payment_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		status.String(), id.String(), version)
	if err != nil {
		r.logger.Error("Failed to update request status",
			zap.String("id", id.String()),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update request status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %s version %d", errs.ErrConflict, id, version)
	}
	return nil
}

func collectRequests(rows *sql.Rows) ([]*entity.Request, error) {
	var requests []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(scan func(dest ...interface{}) error) (*entity.Request, error) {
	var (
		req                    entity.Request
		id, batchID, createdBy string
		amount, status         string
	)

	err := scan(&id, &batchID, &amount, &req.Currency, &req.BeneficiaryName,
		&req.BeneficiaryAccount, &req.Purpose, &status, &createdBy,
		&req.CreatedAt, &req.UpdatedAt, &req.Version)
	if err != nil {
		return nil, err
	}

	if req.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if req.BatchID, err = uuid.Parse(batchID); err != nil {
		return nil, err
	}
	if req.CreatedBy, err = uuid.Parse(createdBy); err != nil {
		return nil, err
	}
	if req.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	req.Status = lifecycle.RequestStatus(status)
	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
