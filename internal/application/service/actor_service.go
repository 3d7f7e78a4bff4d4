package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/errs"
	"github.com/payops/payment-workflow/pkg/utils"
)

// ActorService resolves and registers actor identities. Authentication
// itself happens outside the engine; the engine trusts the (id, role) pairs
// it stores here.
type ActorService interface {
	Register(ctx context.Context, displayName string, role entity.Role) (*entity.Actor, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Actor, error)
}

type actorServiceImpl struct {
	actorRepo port.ActorRepository
	logger    Logger
}

// NewActorService creates a new ActorService
func NewActorService(actorRepo port.ActorRepository, logger Logger) ActorService {
	return &actorServiceImpl{actorRepo: actorRepo, logger: logger}
}

// Register creates a new actor with the given role
func (s *actorServiceImpl) Register(ctx context.Context, displayName string, role entity.Role) (*entity.Actor, error) {
	if err := utils.ValidateNonEmpty("display_name", displayName); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", errs.ErrValidation, role)
	}

	actor := &entity.Actor{
		ID:          uuid.New(),
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	if err := s.actorRepo.Create(ctx, actor); err != nil {
		s.logger.Error("Failed to register actor", "error", err)
		return nil, err
	}

	s.logger.Info("Actor registered", "actor_id", actor.ID, "role", role)
	return actor, nil
}

// Get resolves an actor by id
func (s *actorServiceImpl) Get(ctx context.Context, id uuid.UUID) (*entity.Actor, error) {
	actor, err := s.actorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, fmt.Errorf("%w: actor %s", errs.ErrNotFound, id)
	}
	return actor, nil
}
