package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
	"github.com/payops/payment-workflow/internal/domain/policy"
	"github.com/payops/payment-workflow/internal/errs"
	"github.com/payops/payment-workflow/pkg/utils"
)

// SoaService manages versioned Statement of Account documents and their
// exports. Versions are append-only: the highest version is the request's
// live document, older versions are retained forever.
type SoaService interface {
	// Upload appends a new version for the request. Versions are assigned
	// max+1 inside the transaction, so they stay gapless under concurrency.
	Upload(ctx context.Context, actor *entity.Actor, requestID uuid.UUID, filename string, content []byte) (*entity.SOAVersion, error)

	ListVersions(ctx context.Context, requestID uuid.UUID) ([]*entity.SOAVersion, error)

	// Download returns the stored document content for one version.
	Download(ctx context.Context, versionID uuid.UUID) (*entity.Artifact, error)

	// LiveSummary computes the current per-request SOA summary for a batch.
	LiveSummary(ctx context.Context, batchID uuid.UUID) ([]*entity.SoaSummary, error)

	// Export captures a point-in-time snapshot of the batch's SOA state and
	// renders it in the requested format. The artifact is immutable; a later
	// export of the same batch may legitimately differ.
	Export(ctx context.Context, batchID uuid.UUID, format entity.ExportFormat) (*entity.Artifact, error)

	// GenerateForBatch creates a system-generated SOA version for every
	// request of a completed batch. Idempotent: a batch that already has a
	// generated version is left untouched.
	GenerateForBatch(ctx context.Context, batchID uuid.UUID) error
}

type soaServiceImpl struct {
	batchRepo   port.BatchRepository
	requestRepo port.RequestRepository
	soaRepo     port.SoaRepository
	auditRepo   port.AuditRepository
	txManager   port.TransactionManager
	storage     port.FileStorage
	exporters   map[entity.ExportFormat]port.SnapshotExporter
	logger      Logger
}

// NewSoaService creates a new SoaService
func NewSoaService(
	batchRepo port.BatchRepository,
	requestRepo port.RequestRepository,
	soaRepo port.SoaRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	storage port.FileStorage,
	exporters []port.SnapshotExporter,
	logger Logger,
) SoaService {
	byFormat := make(map[entity.ExportFormat]port.SnapshotExporter, len(exporters))
	for _, e := range exporters {
		byFormat[e.Format()] = e
	}
	return &soaServiceImpl{
		batchRepo:   batchRepo,
		requestRepo: requestRepo,
		soaRepo:     soaRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		storage:     storage,
		exporters:   byFormat,
		logger:      logger,
	}
}

// Upload appends a new SOA version to a DRAFT request
func (s *soaServiceImpl) Upload(ctx context.Context, actor *entity.Actor, requestID uuid.UUID, filename string, content []byte) (*entity.SOAVersion, error) {
	if err := utils.ValidateNonEmpty("filename", filename); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: document content is empty", errs.ErrValidation)
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", errs.ErrNotFound, requestID)
	}
	batch, err := s.batchRepo.GetByID(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %s", errs.ErrNotFound, req.BatchID)
	}

	permitted := policy.PermittedRequestActions(req, batch, actor.ID, actor.Role)
	if !policy.Allows(permitted, lifecycle.ActionUploadSoa) {
		return nil, fmt.Errorf("%w: uploadSoa not permitted on request %s", errs.ErrForbidden, requestID)
	}

	var version *entity.SOAVersion
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		max, err := s.soaRepo.MaxVersion(txCtx, requestID)
		if err != nil {
			return err
		}

		version = &entity.SOAVersion{
			ID:                uuid.New(),
			RequestID:         requestID,
			VersionNumber:     max + 1,
			DocumentReference: soaDocumentPath(requestID, max+1, filename),
			Source:            entity.SoaSourceUpload,
			UploadedAt:        time.Now(),
			UploadedBy:        &actor.ID,
		}

		if err := s.storage.Save(txCtx, version.DocumentReference, content); err != nil {
			return fmt.Errorf("store document: %w", err)
		}
		if err := s.soaRepo.Create(txCtx, version); err != nil {
			return err
		}

		entry := &entity.AuditEntry{
			ID:         uuid.New(),
			EventType:  entity.EventSoaUploaded,
			EntityType: entity.EntitySoaVersion,
			EntityID:   version.ID,
			ActorID:    &actor.ID,
			NewState:   fmt.Sprintf("v%d", version.VersionNumber),
			OccurredAt: time.Now(),
		}
		return s.auditRepo.Append(txCtx, entry)
	})
	if err != nil {
		s.logger.Error("Failed to upload SOA", "error", err, "request_id", requestID)
		return nil, err
	}

	s.logger.Info("SOA uploaded", "request_id", requestID, "version", version.VersionNumber)
	return version, nil
}

// ListVersions lists all SOA versions for a request, ascending
func (s *soaServiceImpl) ListVersions(ctx context.Context, requestID uuid.UUID) ([]*entity.SOAVersion, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", errs.ErrNotFound, requestID)
	}
	return s.soaRepo.ListByRequest(ctx, requestID)
}

// Download returns the stored document for one SOA version
func (s *soaServiceImpl) Download(ctx context.Context, versionID uuid.UUID) (*entity.Artifact, error) {
	version, err := s.soaRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, fmt.Errorf("%w: SOA version %s", errs.ErrNotFound, versionID)
	}

	content, err := s.storage.Read(ctx, version.DocumentReference)
	if err != nil {
		s.logger.Error("Failed to read SOA document", "error", err,
			"version_id", versionID, "reference", version.DocumentReference)
		return nil, err
	}

	return &entity.Artifact{
		Filename:    path.Base(version.DocumentReference),
		ContentType: "application/octet-stream",
		Content:     content,
	}, nil
}

// LiveSummary computes the current SOA summary for every request in the batch
func (s *soaServiceImpl) LiveSummary(ctx context.Context, batchID uuid.UUID) ([]*entity.SoaSummary, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %s", errs.ErrNotFound, batchID)
	}
	return s.soaRepo.Summaries(ctx, batchID)
}

// Export renders an immutable snapshot of the batch's SOA state
func (s *soaServiceImpl) Export(ctx context.Context, batchID uuid.UUID, format entity.ExportFormat) (*entity.Artifact, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: unsupported export format %q", errs.ErrValidation, format)
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: no exporter registered for %q", errs.ErrValidation, format)
	}

	snapshot, err := s.captureSnapshot(ctx, batchID)
	if err != nil {
		return nil, err
	}

	artifact, err := exporter.Render(snapshot)
	if err != nil {
		s.logger.Error("Failed to render export", "error", err,
			"batch_id", batchID, "format", format)
		return nil, err
	}

	s.logger.Info("SOA exported", "batch_id", batchID,
		"format", format, "filename", artifact.Filename)
	return artifact, nil
}

// GenerateForBatch creates generated SOA versions for every request of a
// completed batch. The rendered batch statement is stored once and each
// request's new version references it.
func (s *soaServiceImpl) GenerateForBatch(ctx context.Context, batchID uuid.UUID) error {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("%w: batch %s", errs.ErrNotFound, batchID)
	}
	if batch.Status != lifecycle.BatchCompleted {
		return fmt.Errorf("%w: batch %s is %s, not completed", errs.ErrInvalidTransition, batchID, batch.Status)
	}

	exists, err := s.soaRepo.HasGenerated(ctx, batchID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("Generated SOA already exists", "batch_id", batchID)
		return nil
	}

	exporter, ok := s.exporters[entity.FormatPDF]
	if !ok {
		return fmt.Errorf("%w: no PDF exporter registered", errs.ErrValidation)
	}

	snapshot, err := s.captureSnapshot(ctx, batchID)
	if err != nil {
		return err
	}
	artifact, err := exporter.Render(snapshot)
	if err != nil {
		return fmt.Errorf("render generated SOA: %w", err)
	}

	reference := path.Join("generated", batchID.String(), artifact.Filename)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.storage.Save(txCtx, reference, artifact.Content); err != nil {
			return fmt.Errorf("store generated SOA: %w", err)
		}

		for _, row := range snapshot.Rows {
			max, err := s.soaRepo.MaxVersion(txCtx, row.RequestID)
			if err != nil {
				return err
			}
			version := &entity.SOAVersion{
				ID:                uuid.New(),
				RequestID:         row.RequestID,
				VersionNumber:     max + 1,
				DocumentReference: reference,
				Source:            entity.SoaSourceGenerated,
				UploadedAt:        time.Now(),
			}
			if err := s.soaRepo.Create(txCtx, version); err != nil {
				return err
			}

			entry := &entity.AuditEntry{
				ID:         uuid.New(),
				EventType:  entity.EventSoaGenerated,
				EntityType: entity.EntitySoaVersion,
				EntityID:   version.ID,
				NewState:   fmt.Sprintf("v%d", version.VersionNumber),
				OccurredAt: time.Now(),
			}
			if err := s.auditRepo.Append(txCtx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to generate SOA", "error", err, "batch_id", batchID)
		return err
	}

	s.logger.Info("Generated SOA created", "batch_id", batchID,
		"requests", len(snapshot.Rows))
	return nil
}

// captureSnapshot reads batch, requests and SOA versions at the instant of
// the call. The snapshot is a pure function of that state.
func (s *soaServiceImpl) captureSnapshot(ctx context.Context, batchID uuid.UUID) (*entity.SoaSnapshot, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %s", errs.ErrNotFound, batchID)
	}

	requests, err := s.requestRepo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	rows := make([]entity.SoaSnapshotRow, 0, len(requests))
	for _, req := range requests {
		versions, err := s.soaRepo.ListByRequest(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		row := entity.SoaSnapshotRow{
			RequestID:       req.ID,
			BeneficiaryName: req.BeneficiaryName,
			Amount:          req.Amount,
			Currency:        req.Currency,
			Purpose:         req.Purpose,
			Status:          req.Status,
		}
		for _, v := range versions {
			row.Versions = append(row.Versions, *v)
		}
		rows = append(rows, row)
	}

	return &entity.SoaSnapshot{
		BatchID:     batch.ID,
		BatchTitle:  batch.Title,
		BatchStatus: batch.Status,
		CreatedAt:   batch.CreatedAt,
		SubmittedAt: batch.SubmittedAt,
		CompletedAt: batch.CompletedAt,
		Rows:        rows,
		BatchTotal:  entity.BatchTotal(requests),
		ExportedAt:  time.Now(),
	}, nil
}

// soaDocumentPath builds the storage path for an uploaded SOA document
func soaDocumentPath(requestID uuid.UUID, version int, filename string) string {
	return path.Join("soa", requestID.String(), fmt.Sprintf("v%d_%s", version, path.Base(filename)))
}

// Verify interface compliance
var _ SoaGenerator = (SoaService)(nil)
