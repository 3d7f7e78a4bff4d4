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

// AuditRepository implements port.AuditRepository on sqlite. The table
// carries triggers rejecting UPDATE and DELETE, so append-only holds even
// against raw SQL.
type AuditRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Append writes one audit entry
func (r *AuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (
			id, event_type, entity_type, entity_id, actor_id,
			previous_state, new_state, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var previous sql.NullString
	if entry.PreviousState != nil {
		previous = sql.NullString{String: *entry.PreviousState, Valid: true}
	}

	_, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		entry.ID.String(),
		entry.EventType,
		entry.EntityType,
		entry.EntityID.String(),
		nullUUID(entry.ActorID),
		previous,
		entry.NewState,
		entry.OccurredAt,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("event_type", entry.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filter, ordered by occurred_at then
// insertion so repeated identical queries never reorder.
func (r *AuditRepository) Query(ctx context.Context, filter entity.AuditFilter, limit, offset int) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, event_type, entity_type, entity_id, actor_id,
			previous_state, new_state, occurred_at
		FROM audit_logs
		WHERE 1=1
	`
	var args []interface{}

	if filter.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != uuid.Nil {
		query += " AND entity_id = ?"
		args = append(args, filter.EntityID.String())
	}
	if filter.ActorID != uuid.Nil {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID.String())
	}
	if !filter.From.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		query += " AND occurred_at <= ?"
		args = append(args, filter.To)
	}

	query += " ORDER BY occurred_at ASC, rowid ASC LIMIT ? OFFSET ?"
	args = append(args, normalizeLimit(limit), offset)

	rows, err := r.db.ExecutorFrom(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query audit log", zap.Error(err))
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var (
			entry        entity.AuditEntry
			id, entityID string
			actorID      sql.NullString
			previous     sql.NullString
		)
		err := rows.Scan(&id, &entry.EventType, &entry.EntityType, &entityID,
			&actorID, &previous, &entry.NewState, &entry.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if entry.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if entry.EntityID, err = uuid.Parse(entityID); err != nil {
			return nil, err
		}
		if entry.ActorID, err = parseNullUUID(actorID); err != nil {
			return nil, err
		}
		if previous.Valid {
			s := previous.String
			entry.PreviousState = &s
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// CountByEntity counts entries recorded for one entity
func (r *AuditRepository) CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM audit_logs WHERE entity_type = ? AND entity_id = ?`

	var count int
	err := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, entityType, entityID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
