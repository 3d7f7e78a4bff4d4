package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/service"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
	"github.com/payops/payment-workflow/pkg/database"
)

// Full workflow runs against the real schema and repositories, so CHECK
// constraints and optimistic locking are exercised, not mocked away.

type integrationEnv struct {
	db       *database.DB
	workflow service.WorkflowService
	actors   service.ActorService
	batches  *BatchRepository
	requests *RequestRepository
	audits   *AuditRepository
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "engine_test.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.Run("../../../../migrations"))

	batchRepo := NewBatchRepository(db, logger)
	requestRepo := NewRequestRepository(db, logger)
	approvalRepo := NewApprovalRepository(db, logger)
	auditRepo := NewAuditRepository(db, logger)
	actorRepo := NewActorRepository(db, logger)

	svcLogger := service.NewZapLogger(logger)
	return &integrationEnv{
		db: db,
		workflow: service.NewWorkflowService(batchRepo, requestRepo, approvalRepo,
			auditRepo, db, nil, svcLogger),
		actors:   service.NewActorService(actorRepo, svcLogger),
		batches:  batchRepo.(*BatchRepository),
		requests: requestRepo.(*RequestRepository),
		audits:   auditRepo.(*AuditRepository),
	}
}

func (e *integrationEnv) registerActor(t *testing.T, name string, role entity.Role) *entity.Actor {
	t.Helper()
	actor, err := e.actors.Register(context.Background(), name, role)
	require.NoError(t, err)
	return actor
}

func requestFields() entity.RequestFields {
	amount := decimal.RequireFromString("1250.50")
	currency := "USD"
	name := "Acme Ltd"
	account := "GB29NWBK60161331926819"
	purpose := "Consulting services"
	return entity.RequestFields{
		Amount:             &amount,
		Currency:           &currency,
		BeneficiaryName:    &name,
		BeneficiaryAccount: &account,
		Purpose:            &purpose,
	}
}

func TestIntegration_SubmitApprovePayLifecycle(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	creator := env.registerActor(t, "Alice", entity.RoleCreator)
	approver := env.registerActor(t, "Bob", entity.RoleApprover)

	batch, err := env.workflow.CreateBatch(ctx, creator, "March payouts")
	require.NoError(t, err)

	req, err := env.workflow.AddRequest(ctx, creator, batch.ID, requestFields())
	require.NoError(t, err)

	_, err = env.workflow.Execute(ctx, creator,
		entity.EntityBatch, batch.ID, lifecycle.ActionSubmit, service.ExecutePayload{})
	require.NoError(t, err)

	stored, err := env.batches.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.BatchSubmitted, stored.Status)
	assert.NotNil(t, stored.SubmittedAt)

	storedReq, err := env.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RequestPendingApproval, storedReq.Status)

	_, err = env.workflow.ProcessBatch(ctx, batch.ID)
	require.NoError(t, err)

	_, err = env.workflow.Execute(ctx, approver,
		entity.EntityRequest, req.ID, lifecycle.ActionApprove,
		service.ExecutePayload{Comment: "looks right"})
	require.NoError(t, err)

	_, err = env.workflow.Execute(ctx, approver,
		entity.EntityRequest, req.ID, lifecycle.ActionMarkPaid, service.ExecutePayload{})
	require.NoError(t, err)

	// Settling the only request auto-completes the batch
	stored, err = env.batches.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.BatchCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	storedReq, err = env.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RequestPaid, storedReq.Status)

	total, err := env.batches.Total(ctx, batch.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("1250.50")))

	batchCount, err := env.audits.CountByEntity(ctx, entity.EntityBatch, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, batchCount, "created, submitted, processing, completed")

	requestCount, err := env.audits.CountByEntity(ctx, entity.EntityRequest, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, requestCount, "created, submitted, approved, paid")
}

func TestIntegration_CancelDraftBatch(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	creator := env.registerActor(t, "Alice", entity.RoleCreator)

	batch, err := env.workflow.CreateBatch(ctx, creator, "Abandoned payouts")
	require.NoError(t, err)

	// Cancellation writes neither submitted_at nor completed_at and must
	// still satisfy the schema's CHECK constraints
	result, err := env.workflow.Execute(ctx, creator,
		entity.EntityBatch, batch.ID, lifecycle.ActionCancel, service.ExecutePayload{})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.BatchCancelled, result.(*entity.Batch).Status)

	stored, err := env.batches.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.BatchCancelled, stored.Status)
	assert.Nil(t, stored.SubmittedAt)
	assert.Nil(t, stored.CompletedAt)

	count, err := env.audits.CountByEntity(ctx, entity.EntityBatch, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "created, cancelled")
}
