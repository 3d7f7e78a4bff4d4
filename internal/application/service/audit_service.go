package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/errs"
)

// AuditService is the read side of the audit trail. The trail itself is only
// ever written by WorkflowService and SoaService inside their transactions.
type AuditService interface {
	// Query applies the filter's set fields conjunctively. Results come back
	// in a stable order across identical queries.
	Query(ctx context.Context, filter entity.AuditFilter, limit, offset int) ([]*entity.AuditEntry, error)

	// EntityHistory returns every entry recorded for one entity.
	EntityHistory(ctx context.Context, entityType string, entityID uuid.UUID) ([]*entity.AuditEntry, error)

	// CountByEntity counts the entries recorded for one entity.
	CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int, error)
}

type auditServiceImpl struct {
	auditRepo port.AuditRepository
	logger    Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo port.AuditRepository, logger Logger) AuditService {
	return &auditServiceImpl{auditRepo: auditRepo, logger: logger}
}

// Query retrieves audit entries matching the filter
func (s *auditServiceImpl) Query(ctx context.Context, filter entity.AuditFilter, limit, offset int) ([]*entity.AuditEntry, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	entries, err := s.auditRepo.Query(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("Failed to query audit trail", "error", err)
		return nil, err
	}
	return entries, nil
}

// EntityHistory returns the full recorded history of one entity
func (s *auditServiceImpl) EntityHistory(ctx context.Context, entityType string, entityID uuid.UUID) ([]*entity.AuditEntry, error) {
	filter := entity.AuditFilter{EntityType: entityType, EntityID: entityID}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.auditRepo.Query(ctx, filter, 0, 0)
}

// CountByEntity counts entries for one entity
func (s *auditServiceImpl) CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int, error) {
	return s.auditRepo.CountByEntity(ctx, entityType, entityID)
}

func validateFilter(filter entity.AuditFilter) error {
	switch filter.EntityType {
	case "", entity.EntityBatch, entity.EntityRequest, entity.EntitySoaVersion:
	default:
		return fmt.Errorf("%w: unknown entity type %q", errs.ErrValidation, filter.EntityType)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return fmt.Errorf("%w: audit range end precedes start", errs.ErrValidation)
	}
	return nil
}
