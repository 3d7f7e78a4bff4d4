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

// ActorRepository implements port.ActorRepository on sqlite
type ActorRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewActorRepository creates a new actor repository
func NewActorRepository(db *database.DB, logger *zap.Logger) port.ActorRepository {
	return &ActorRepository{db: db, logger: logger}
}

// Create inserts a new actor
func (r *ActorRepository) Create(ctx context.Context, actor *entity.Actor) error {
	query := `
		INSERT INTO actors (id, display_name, role, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		actor.ID.String(),
		actor.DisplayName,
		actor.Role.String(),
		actor.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create actor", zap.Error(err))
		return fmt.Errorf("failed to create actor: %w", err)
	}
	return nil
}

// GetByID retrieves an actor by id, (nil, nil) when unknown
func (r *ActorRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Actor, error) {
	query := `SELECT id, display_name, role, created_at FROM actors WHERE id = ?`

	var (
		actor   entity.Actor
		actorID string
		role    string
	)
	err := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, id.String()).
		Scan(&actorID, &actor.DisplayName, &role, &actor.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get actor", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}

	if actor.ID, err = uuid.Parse(actorID); err != nil {
		return nil, err
	}
	actor.Role = entity.Role(role)
	return &actor, nil
}

// Verify interface compliance
var _ port.ActorRepository = (*ActorRepository)(nil)
