package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
	"github.com/payops/payment-workflow/internal/errs"
	"github.com/payops/payment-workflow/pkg/database"
)

// BatchRepository implements port.BatchRepository on sqlite
type BatchRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB, logger *zap.Logger) port.BatchRepository {
	return &BatchRepository{db: db, logger: logger}
}

// Create inserts a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *entity.Batch) error {
	query := `
		INSERT INTO payment_batches (id, title, status, created_by, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		batch.ID.String(),
		batch.Title,
		batch.Status.String(),
		batch.CreatedBy.String(),
		batch.CreatedAt,
		batch.Version,
	)
	if err != nil {
		r.logger.Error("Failed to create batch", zap.Error(err))
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch by id, (nil, nil) when unknown
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
	query := `
		SELECT id, title, status, created_by, created_at, submitted_at, completed_at, version
		FROM payment_batches
		WHERE id = ?
	`

	row := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, id.String())
	batch, err := scanBatch(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get batch", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return batch, nil
}

// List returns batches newest first, scoped to createdBy when non-zero
func (r *BatchRepository) List(ctx context.Context, createdBy uuid.UUID, limit, offset int) ([]*entity.Batch, error) {
	query := `
		SELECT id, title, status, created_by, created_at, submitted_at, completed_at, version
		FROM payment_batches
	`
	var args []interface{}
	if createdBy != uuid.Nil {
		query += " WHERE created_by = ?"
		args = append(args, createdBy.String())
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, normalizeLimit(limit), offset)

	rows, err := r.db.ExecutorFrom(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list batches", zap.Error(err))
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*entity.Batch
	for rows.Next() {
		batch, err := scanBatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// UpdateStatus applies a version-locked state change
func (r *BatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status lifecycle.BatchStatus, submittedAt, completedAt *time.Time, version int64) error {
	query := `
		UPDATE payment_batches
		SET status = ?,
			submitted_at = COALESCE(?, submitted_at),
			completed_at = COALESCE(?, completed_at),
			version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		status.String(),
		nullTime(submittedAt),
		nullTime(completedAt),
		id.String(),
		version,
	)
	if err != nil {
		r.logger.Error("Failed to update batch status",
			zap.String("id", id.String()),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: batch %s version %d", errs.ErrConflict, id, version)
	}
	return nil
}

// Total derives the batch total from current request amounts
func (r *BatchRepository) Total(ctx context.Context, batchID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT amount FROM payment_requests WHERE batch_id = ?`

	rows, err := r.db.ExecutorFrom(ctx).QueryContext(ctx, query, batchID.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute batch total: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func scanBatch(scan func(dest ...interface{}) error) (*entity.Batch, error) {
	var (
		batch                    entity.Batch
		id, createdBy            string
		status                   string
		submittedAt, completedAt sql.NullTime
	)

	err := scan(&id, &batch.Title, &status, &createdBy, &batch.CreatedAt,
		&submittedAt, &completedAt, &batch.Version)
	if err != nil {
		return nil, err
	}

	batch.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	batch.CreatedBy, err = uuid.Parse(createdBy)
	if err != nil {
		return nil, err
	}
	batch.Status = lifecycle.BatchStatus(status)
	if submittedAt.Valid {
		t := submittedAt.Time
		batch.SubmittedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		batch.CompletedAt = &t
	}
	return &batch, nil
}

// Verify interface compliance
var _ port.BatchRepository = (*BatchRepository)(nil)
