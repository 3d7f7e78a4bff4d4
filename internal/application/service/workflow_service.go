package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
	"github.com/payops/payment-workflow/internal/domain/policy"
	"github.com/payops/payment-workflow/internal/errs"
	"github.com/payops/payment-workflow/pkg/utils"
)

// ExecutePayload carries the optional payload of an Execute call. Comment is
// read by approve/reject, Fields by edit; other actions ignore it.
type ExecutePayload struct {
	Comment string
	Fields  *entity.RequestFields
}

// QueueItem is one approval-queue row: a pending or approved request plus
// the ownership-independent actions available on it.
type QueueItem struct {
	Request *entity.Request    `json:"request"`
	Actions []lifecycle.Action `json:"actions"`
}

// SoaGenerator produces system-generated SOA versions for a completed batch.
// Implemented by SoaService.
type SoaGenerator interface {
	GenerateForBatch(ctx context.Context, batchID uuid.UUID) error
}

// WorkflowService is the single write path of the engine. Every mutation is
// gated on the authorization policy, checked against the transition tables,
// and persisted together with its audit entry in one transaction.
type WorkflowService interface {
	CreateBatch(ctx context.Context, actor *entity.Actor, title string) (*entity.Batch, error)
	AddRequest(ctx context.Context, actor *entity.Actor, batchID uuid.UUID, fields entity.RequestFields) (*entity.Request, error)

	// Execute dispatches a lifecycle action against a batch or request.
	// Structural validity is checked before the permission gate: repeating
	// an already-applied transition fails as InvalidTransition, not
	// Forbidden. Returns the updated entity.
	Execute(ctx context.Context, actor *entity.Actor, entityType string, entityID uuid.UUID, action lifecycle.Action, payload ExecutePayload) (interface{}, error)

	// GetPermittedActions evaluates the policy fresh for one entity.
	GetPermittedActions(ctx context.Context, actor *entity.Actor, entityType string, entityID uuid.UUID) ([]lifecycle.Action, error)

	GetBatch(ctx context.Context, id uuid.UUID) (*entity.Batch, error)
	ListBatches(ctx context.Context, actor *entity.Actor, limit, offset int) ([]*entity.Batch, error)
	ListBatchRequests(ctx context.Context, batchID uuid.UUID) ([]*entity.Request, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*entity.Request, error)
	BatchTotal(ctx context.Context, batchID uuid.UUID) (string, error)

	// ApprovalQueue lists requests awaiting approver attention across all
	// open batches. Only APPROVER may call it.
	ApprovalQueue(ctx context.Context, actor *entity.Actor, limit, offset int) ([]*QueueItem, error)

	// ProcessBatch and CompleteBatch are the external batch driver's entry
	// points. Their audit entries carry no actor.
	ProcessBatch(ctx context.Context, batchID uuid.UUID) (*entity.Batch, error)
	CompleteBatch(ctx context.Context, batchID uuid.UUID) (*entity.Batch, error)
}

type workflowServiceImpl struct {
	batchRepo    port.BatchRepository
	requestRepo  port.RequestRepository
	approvalRepo port.ApprovalRepository
	auditRepo    port.AuditRepository
	txManager    port.TransactionManager
	soaGen       SoaGenerator
	logger       Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	batchRepo port.BatchRepository,
	requestRepo port.RequestRepository,
	approvalRepo port.ApprovalRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	soaGen SoaGenerator,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		batchRepo:    batchRepo,
		requestRepo:  requestRepo,
		approvalRepo: approvalRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		soaGen:       soaGen,
		logger:       logger,
	}
}

// CreateBatch creates a new batch in DRAFT owned by the actor
func (s *workflowServiceImpl) CreateBatch(ctx context.Context, actor *entity.Actor, title string) (*entity.Batch, error) {
	if actor.Role != entity.RoleCreator {
		return nil, fmt.Errorf("%w: only creators may create batches", errs.ErrForbidden)
	}
	if err := utils.ValidateTitle(title); err != nil {
		return nil, err
	}

	batch := &entity.Batch{
		ID:        uuid.New(),
		Title:     title,
		Status:    lifecycle.BatchDraft,
		CreatedBy: actor.ID,
		CreatedAt: time.Now(),
		Version:   1,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.batchRepo.Create(txCtx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		return s.appendAudit(txCtx, entity.EventBatchCreated, entity.EntityBatch,
			batch.ID, &actor.ID, nil, batch.Status.String())
	})
	if err != nil {
		s.logger.Error("Failed to create batch", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Batch created", "batch_id", batch.ID, "actor_id", actor.ID)
	return batch, nil
}

// AddRequest creates a new request inside a DRAFT batch
func (s *workflowServiceImpl) AddRequest(ctx context.Context, actor *entity.Actor, batchID uuid.UUID, fields entity.RequestFields) (*entity.Request, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	permitted := policy.PermittedBatchActions(batch, actor.ID, actor.Role)
	if !policy.Allows(permitted, lifecycle.ActionAddRequest) {
		return nil, fmt.Errorf("%w: addRequest not permitted on batch %s", errs.ErrForbidden, batchID)
	}

	req, err := buildRequest(batchID, actor.ID, fields)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return s.appendAudit(txCtx, entity.EventRequestCreated, entity.EntityRequest,
			req.ID, &actor.ID, nil, req.Status.String())
	})
	if err != nil {
		s.logger.Error("Failed to add request", "error", err, "batch_id", batchID)
		return nil, err
	}

	s.logger.Info("Request added", "request_id", req.ID, "batch_id", batchID)
	return req, nil
}

// Execute dispatches a lifecycle action. Batch actions: submit, cancel.
// Request actions: edit, approve, reject, markPaid.
func (s *workflowServiceImpl) Execute(ctx context.Context, actor *entity.Actor, entityType string, entityID uuid.UUID, action lifecycle.Action, payload ExecutePayload) (interface{}, error) {
	if action.IsSystem() {
		return nil, fmt.Errorf("%w: %s is reserved to the system", errs.ErrForbidden, action)
	}

	switch entityType {
	case entity.EntityBatch:
		switch action {
		case lifecycle.ActionSubmit:
			return s.submitBatch(ctx, actor, entityID)
		case lifecycle.ActionCancel:
			return s.cancelBatch(ctx, actor, entityID)
		}
		return nil, fmt.Errorf("%w: %s is not a dispatchable batch action", errs.ErrValidation, action)
	case entity.EntityRequest:
		switch action {
		case lifecycle.ActionEdit:
			return s.editRequest(ctx, actor, entityID, payload.Fields)
		case lifecycle.ActionApprove:
			return s.decideRequest(ctx, actor, entityID, lifecycle.ActionApprove, payload.Comment)
		case lifecycle.ActionReject:
			return s.decideRequest(ctx, actor, entityID, lifecycle.ActionReject, payload.Comment)
		case lifecycle.ActionMarkPaid:
			return s.markPaid(ctx, actor, entityID)
		}
		return nil, fmt.Errorf("%w: %s is not a dispatchable request action", errs.ErrValidation, action)
	}
	return nil, fmt.Errorf("%w: unknown entity type %q", errs.ErrValidation, entityType)
}

// GetPermittedActions evaluates the policy for one entity. VIEWER and ADMIN
// always receive an empty set; closed batches and terminal requests yield an
// empty set for everyone.
func (s *workflowServiceImpl) GetPermittedActions(ctx context.Context, actor *entity.Actor, entityType string, entityID uuid.UUID) ([]lifecycle.Action, error) {
	switch entityType {
	case entity.EntityBatch:
		batch, err := s.loadBatch(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return policy.PermittedBatchActions(batch, actor.ID, actor.Role), nil
	case entity.EntityRequest:
		req, err := s.loadRequest(ctx, entityID)
		if err != nil {
			return nil, err
		}
		batch, err := s.loadBatch(ctx, req.BatchID)
		if err != nil {
			return nil, err
		}
		return policy.PermittedRequestActions(req, batch, actor.ID, actor.Role), nil
	}
	return nil, fmt.Errorf("%w: unknown entity type %q", errs.ErrValidation, entityType)
}

// GetBatch retrieves a batch by id
func (s *workflowServiceImpl) GetBatch(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
	return s.loadBatch(ctx, id)
}

// ListBatches lists batches visible to the actor. Creators see their own
// batches; approvers, viewers and admins see all.
func (s *workflowServiceImpl) ListBatches(ctx context.Context, actor *entity.Actor, limit, offset int) ([]*entity.Batch, error) {
	createdBy := uuid.Nil
	if actor.Role == entity.RoleCreator {
		createdBy = actor.ID
	}
	batches, err := s.batchRepo.List(ctx, createdBy, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list batches", "error", err)
		return nil, err
	}
	return batches, nil
}

// ListBatchRequests lists the batch's requests in insertion order
func (s *workflowServiceImpl) ListBatchRequests(ctx context.Context, batchID uuid.UUID) ([]*entity.Request, error) {
	if _, err := s.loadBatch(ctx, batchID); err != nil {
		return nil, err
	}
	return s.requestRepo.ListByBatch(ctx, batchID)
}

// GetRequest retrieves a request by id
func (s *workflowServiceImpl) GetRequest(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
	return s.loadRequest(ctx, id)
}

// BatchTotal returns the derived batch total as a decimal string
func (s *workflowServiceImpl) BatchTotal(ctx context.Context, batchID uuid.UUID) (string, error) {
	if _, err := s.loadBatch(ctx, batchID); err != nil {
		return "", err
	}
	total, err := s.batchRepo.Total(ctx, batchID)
	if err != nil {
		return "", err
	}
	return total.String(), nil
}

// ApprovalQueue lists pending and approved requests across open batches
func (s *workflowServiceImpl) ApprovalQueue(ctx context.Context, actor *entity.Actor, limit, offset int) ([]*QueueItem, error) {
	if actor.Role != entity.RoleApprover {
		return nil, fmt.Errorf("%w: approval queue is approver-only", errs.ErrForbidden)
	}

	pending, err := s.requestRepo.ListByStatus(ctx, lifecycle.RequestPendingApproval, 0, 0)
	if err != nil {
		return nil, err
	}
	approved, err := s.requestRepo.ListByStatus(ctx, lifecycle.RequestApproved, 0, 0)
	if err != nil {
		return nil, err
	}

	batches := make(map[uuid.UUID]*entity.Batch)
	items := make([]*QueueItem, 0, len(pending)+len(approved))
	for _, req := range append(pending, approved...) {
		batch, ok := batches[req.BatchID]
		if !ok {
			if batch, err = s.loadBatch(ctx, req.BatchID); err != nil {
				return nil, err
			}
			batches[req.BatchID] = batch
		}
		if batch.Status.IsClosed() {
			continue
		}
		items = append(items, &QueueItem{
			Request: req,
			Actions: policy.QueueActions(req.Status),
		})
	}

	// Paginate the merged, filtered view so pages stay full-sized even when
	// closed batches drop rows.
	if offset >= len(items) {
		return []*QueueItem{}, nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ProcessBatch moves a submitted batch into PROCESSING
func (s *workflowServiceImpl) ProcessBatch(ctx context.Context, batchID uuid.UUID) (*entity.Batch, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Batch.Next(batch.Status, lifecycle.ActionProcessBatch)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.batchRepo.UpdateStatus(txCtx, batch.ID, next, nil, nil, batch.Version); err != nil {
			return err
		}
		prev := batch.Status.String()
		return s.appendAudit(txCtx, entity.EventBatchProcessing, entity.EntityBatch,
			batch.ID, nil, &prev, next.String())
	})
	if err != nil {
		s.logger.Error("Failed to process batch", "error", err, "batch_id", batchID)
		return nil, err
	}

	batch.Status = next
	batch.Version++
	s.logger.Info("Batch processing", "batch_id", batchID)
	return batch, nil
}

// CompleteBatch closes a PROCESSING batch once every request is settled,
// then triggers generated-SOA creation
func (s *workflowServiceImpl) CompleteBatch(ctx context.Context, batchID uuid.UUID) (*entity.Batch, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Batch.Next(batch.Status, lifecycle.ActionCompleteBatch)
	if err != nil {
		return nil, err
	}

	requests, err := s.requestRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		if !req.Status.IsSettled() {
			return nil, fmt.Errorf("%w: request %s is still %s", errs.ErrInvalidTransition, req.ID, req.Status)
		}
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.batchRepo.UpdateStatus(txCtx, batch.ID, next, nil, &now, batch.Version); err != nil {
			return err
		}
		prev := batch.Status.String()
		return s.appendAudit(txCtx, entity.EventBatchCompleted, entity.EntityBatch,
			batch.ID, nil, &prev, next.String())
	})
	if err != nil {
		s.logger.Error("Failed to complete batch", "error", err, "batch_id", batchID)
		return nil, err
	}

	batch.Status = next
	batch.CompletedAt = &now
	batch.Version++
	s.logger.Info("Batch completed", "batch_id", batchID)

	s.generateSoa(ctx, batchID)
	return batch, nil
}

// submitBatch fires the submission cascade: the batch moves to SUBMITTED and
// every contained request moves DRAFT -> SUBMITTED -> PENDING_APPROVAL, all
// in one transaction. One audit entry per request covers the full hop.
func (s *workflowServiceImpl) submitBatch(ctx context.Context, actor *entity.Actor, batchID uuid.UUID) (*entity.Batch, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Batch.Next(batch.Status, lifecycle.ActionSubmit)
	if err != nil {
		return nil, err
	}

	permitted := policy.PermittedBatchActions(batch, actor.ID, actor.Role)
	if !policy.Allows(permitted, lifecycle.ActionSubmit) {
		return nil, fmt.Errorf("%w: submit not permitted on batch %s", errs.ErrForbidden, batchID)
	}

	requests, err := s.requestRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: batch has no requests to submit", errs.ErrValidation)
	}
	for _, req := range requests {
		if req.Status != lifecycle.RequestDraft {
			return nil, fmt.Errorf("%w: request %s is %s, not DRAFT", errs.ErrValidation, req.ID, req.Status)
		}
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, req := range requests {
			submitted, err := lifecycle.Request.Next(req.Status, lifecycle.ActionSubmitForApproval)
			if err != nil {
				return err
			}
			pending, err := lifecycle.Request.Next(submitted, lifecycle.ActionBeginApproval)
			if err != nil {
				return err
			}
			if err := s.requestRepo.UpdateStatus(txCtx, req.ID, pending, req.Version); err != nil {
				return err
			}
			prev := req.Status.String()
			if err := s.appendAudit(txCtx, entity.EventRequestSubmitted, entity.EntityRequest,
				req.ID, &actor.ID, &prev, pending.String()); err != nil {
				return err
			}
		}

		if err := s.batchRepo.UpdateStatus(txCtx, batch.ID, next, &now, nil, batch.Version); err != nil {
			return err
		}
		prev := batch.Status.String()
		return s.appendAudit(txCtx, entity.EventBatchSubmitted, entity.EntityBatch,
			batch.ID, &actor.ID, &prev, next.String())
	})
	if err != nil {
		s.logger.Error("Failed to submit batch", "error", err, "batch_id", batchID)
		return nil, err
	}

	batch.Status = next
	batch.SubmittedAt = &now
	batch.Version++
	s.logger.Info("Batch submitted", "batch_id", batchID, "requests", len(requests))
	return batch, nil
}

// cancelBatch cancels a DRAFT batch
func (s *workflowServiceImpl) cancelBatch(ctx context.Context, actor *entity.Actor, batchID uuid.UUID) (*entity.Batch, error) {
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Batch.Next(batch.Status, lifecycle.ActionCancel)
	if err != nil {
		return nil, err
	}

	permitted := policy.PermittedBatchActions(batch, actor.ID, actor.Role)
	if !policy.Allows(permitted, lifecycle.ActionCancel) {
		return nil, fmt.Errorf("%w: cancel not permitted on batch %s", errs.ErrForbidden, batchID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.batchRepo.UpdateStatus(txCtx, batch.ID, next, nil, nil, batch.Version); err != nil {
			return err
		}
		prev := batch.Status.String()
		return s.appendAudit(txCtx, entity.EventBatchCancelled, entity.EntityBatch,
			batch.ID, &actor.ID, &prev, next.String())
	})
	if err != nil {
		s.logger.Error("Failed to cancel batch", "error", err, "batch_id", batchID)
		return nil, err
	}

	batch.Status = next
	batch.Version++
	s.logger.Info("Batch cancelled", "batch_id", batchID)
	return batch, nil
}

// editRequest applies a partial payload edit to a DRAFT request
func (s *workflowServiceImpl) editRequest(ctx context.Context, actor *entity.Actor, requestID uuid.UUID, fields *entity.RequestFields) (*entity.Request, error) {
	if fields == nil {
		return nil, fmt.Errorf("%w: edit requires a payload", errs.ErrValidation)
	}

	req, batch, err := s.loadRequestWithBatch(ctx, requestID)
	if err != nil {
		return nil, err
	}

	permitted := policy.PermittedRequestActions(req, batch, actor.ID, actor.Role)
	if !policy.Allows(permitted, lifecycle.ActionEdit) {
		return nil, fmt.Errorf("%w: edit not permitted on request %s", errs.ErrForbidden, requestID)
	}

	before := fieldSnapshot(req, *fields)
	if err := applyFields(req, *fields); err != nil {
		return nil, err
	}
	after := fieldSnapshot(req, *fields)
	req.UpdatedAt = time.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.UpdateFields(txCtx, req); err != nil {
			return err
		}
		return s.appendAudit(txCtx, entity.EventRequestUpdated, entity.EntityRequest,
			req.ID, &actor.ID, &before, after)
	})
	if err != nil {
		s.logger.Error("Failed to edit request", "error", err, "request_id", requestID)
		return nil, err
	}

	req.Version++
	s.logger.Info("Request edited", "request_id", requestID)
	return req, nil
}

// decideRequest records an approve or reject decision
func (s *workflowServiceImpl) decideRequest(ctx context.Context, actor *entity.Actor, requestID uuid.UUID, action lifecycle.Action, comment string) (*entity.Request, error) {
	req, batch, err := s.loadRequestWithBatch(ctx, requestID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Request.Next(req.Status, action)
	if err != nil {
		return nil, err
	}

	permitted := policy.PermittedRequestActions(req, batch, actor.ID, actor.Role)
	if !policy.Allows(permitted, action) {
		return nil, fmt.Errorf("%w: %s not permitted on request %s", errs.ErrForbidden, action, requestID)
	}

	decision := entity.DecisionApproved
	if action == lifecycle.ActionReject {
		decision = entity.DecisionRejected
	}
	record := &entity.ApprovalRecord{
		ID:        uuid.New(),
		RequestID: req.ID,
		Approver:  actor.ID,
		Decision:  decision,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.UpdateStatus(txCtx, req.ID, next, req.Version); err != nil {
			return err
		}
		if err := s.approvalRepo.Create(txCtx, record); err != nil {
			return err
		}
		prev := req.Status.String()
		return s.appendAudit(txCtx, entity.EventApprovalRecorded, entity.EntityRequest,
			req.ID, &actor.ID, &prev, next.String())
	})
	if err != nil {
		s.logger.Error("Failed to record decision", "error", err,
			"request_id", requestID, "decision", decision)
		return nil, err
	}

	req.Status = next
	req.Version++
	s.logger.Info("Decision recorded", "request_id", requestID, "decision", decision)
	return req, nil
}

// markPaid settles an approved request. When that settles the last request
// of a PROCESSING batch, the batch auto-completes in the same transaction.
func (s *workflowServiceImpl) markPaid(ctx context.Context, actor *entity.Actor, requestID uuid.UUID) (*entity.Request, error) {
	req, batch, err := s.loadRequestWithBatch(ctx, requestID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Request.Next(req.Status, lifecycle.ActionMarkPaid)
	if err != nil {
		return nil, err
	}

	permitted := policy.PermittedRequestActions(req, batch, actor.ID, actor.Role)
	if !policy.Allows(permitted, lifecycle.ActionMarkPaid) {
		return nil, fmt.Errorf("%w: markPaid not permitted on request %s", errs.ErrForbidden, requestID)
	}

	completed := false
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.UpdateStatus(txCtx, req.ID, next, req.Version); err != nil {
			return err
		}
		prev := req.Status.String()
		if err := s.appendAudit(txCtx, entity.EventRequestPaid, entity.EntityRequest,
			req.ID, &actor.ID, &prev, next.String()); err != nil {
			return err
		}

		if batch.Status != lifecycle.BatchProcessing {
			return nil
		}
		siblings, err := s.requestRepo.ListByBatch(txCtx, batch.ID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if !sib.Status.IsSettled() {
				return nil
			}
		}

		done, err := lifecycle.Batch.Next(batch.Status, lifecycle.ActionCompleteBatch)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := s.batchRepo.UpdateStatus(txCtx, batch.ID, done, nil, &now, batch.Version); err != nil {
			return err
		}
		batchPrev := batch.Status.String()
		if err := s.appendAudit(txCtx, entity.EventBatchCompleted, entity.EntityBatch,
			batch.ID, nil, &batchPrev, done.String()); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to mark request paid", "error", err, "request_id", requestID)
		return nil, err
	}

	req.Status = next
	req.Version++
	s.logger.Info("Request paid", "request_id", requestID)

	if completed {
		s.logger.Info("Batch auto-completed", "batch_id", batch.ID)
		s.generateSoa(ctx, batch.ID)
	}
	return req, nil
}

// generateSoa creates system-generated SOA versions for a completed batch.
// Generation runs after the completing transaction; a failure here is logged
// and repaired by re-running the idempotent generator, never by rolling back
// the completion.
func (s *workflowServiceImpl) generateSoa(ctx context.Context, batchID uuid.UUID) {
	if s.soaGen == nil {
		return
	}
	if err := s.soaGen.GenerateForBatch(ctx, batchID); err != nil {
		s.logger.Error("Failed to generate SOA for completed batch",
			"error", err, "batch_id", batchID)
	}
}

func (s *workflowServiceImpl) loadBatch(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %s", errs.ErrNotFound, id)
	}
	return batch, nil
}

func (s *workflowServiceImpl) loadRequest(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", errs.ErrNotFound, id)
	}
	return req, nil
}

func (s *workflowServiceImpl) loadRequestWithBatch(ctx context.Context, id uuid.UUID) (*entity.Request, *entity.Batch, error) {
	req, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	batch, err := s.loadBatch(ctx, req.BatchID)
	if err != nil {
		return nil, nil, err
	}
	return req, batch, nil
}

func (s *workflowServiceImpl) appendAudit(ctx context.Context, eventType, entityType string, entityID uuid.UUID, actorID *uuid.UUID, prev *string, newState string) error {
	entry := &entity.AuditEntry{
		ID:            uuid.New(),
		EventType:     eventType,
		EntityType:    entityType,
		EntityID:      entityID,
		ActorID:       actorID,
		PreviousState: prev,
		NewState:      newState,
		OccurredAt:    time.Now(),
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// buildRequest validates and assembles a new DRAFT request. All payload
// fields are required on creation.
func buildRequest(batchID, createdBy uuid.UUID, fields entity.RequestFields) (*entity.Request, error) {
	if fields.Amount == nil || fields.Currency == nil || fields.BeneficiaryName == nil ||
		fields.BeneficiaryAccount == nil || fields.Purpose == nil {
		return nil, fmt.Errorf("%w: all request fields are required on creation", errs.ErrValidation)
	}

	now := time.Now()
	req := &entity.Request{
		ID:        uuid.New(),
		BatchID:   batchID,
		Status:    lifecycle.RequestDraft,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := applyFields(req, fields); err != nil {
		return nil, err
	}
	return req, nil
}

// fieldSnapshot serializes the request's current values for the fields a
// payload touches. An edit's audit entry records the snapshot before and
// after the change.
func fieldSnapshot(req *entity.Request, fields entity.RequestFields) string {
	snap := make(map[string]string)
	if fields.Amount != nil {
		snap["amount"] = req.Amount.String()
	}
	if fields.Currency != nil {
		snap["currency"] = req.Currency
	}
	if fields.BeneficiaryName != nil {
		snap["beneficiary_name"] = req.BeneficiaryName
	}
	if fields.BeneficiaryAccount != nil {
		snap["beneficiary_account"] = req.BeneficiaryAccount
	}
	if fields.Purpose != nil {
		snap["purpose"] = req.Purpose
	}
	data, _ := json.Marshal(snap)
	return string(data)
}

// applyFields copies non-nil payload fields onto the request, validating
// each one
func applyFields(req *entity.Request, fields entity.RequestFields) error {
	if fields.Amount != nil {
		if err := utils.ValidateAmount(*fields.Amount); err != nil {
			return err
		}
		req.Amount = *fields.Amount
	}
	if fields.Currency != nil {
		code := utils.NormalizeCurrency(*fields.Currency)
		if err := utils.ValidateCurrency(code); err != nil {
			return err
		}
		req.Currency = code
	}
	if fields.BeneficiaryName != nil {
		if err := utils.ValidateNonEmpty("beneficiary_name", *fields.BeneficiaryName); err != nil {
			return err
		}
		req.BeneficiaryName = *fields.BeneficiaryName
	}
	if fields.BeneficiaryAccount != nil {
		if err := utils.ValidateNonEmpty("beneficiary_account", *fields.BeneficiaryAccount); err != nil {
			return err
		}
		req.BeneficiaryAccount = *fields.BeneficiaryAccount
	}
	if fields.Purpose != nil {
		if err := utils.ValidateNonEmpty("purpose", *fields.Purpose); err != nil {
			return err
		}
		req.Purpose = *fields.Purpose
	}
	return nil
}
