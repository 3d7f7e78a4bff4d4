package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
	"github.com/payops/payment-workflow/internal/errs"
)

type mockSoaRepo struct {
	maxVersionFunc    func(ctx context.Context, requestID uuid.UUID) (int, error)
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*entity.SOAVersion, error)
	listByRequestFunc func(ctx context.Context, requestID uuid.UUID) ([]*entity.SOAVersion, error)
	hasGeneratedFunc  func(ctx context.Context, batchID uuid.UUID) (bool, error)
	created           []*entity.SOAVersion
}

func (m *mockSoaRepo) Create(ctx context.Context, version *entity.SOAVersion) error {
	m.created = append(m.created, version)
	return nil
}

func (m *mockSoaRepo) MaxVersion(ctx context.Context, requestID uuid.UUID) (int, error) {
	if m.maxVersionFunc != nil {
		return m.maxVersionFunc(ctx, requestID)
	}
	return 0, nil
}

func (m *mockSoaRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.SOAVersion, error) {
	if m.listByRequestFunc != nil {
		return m.listByRequestFunc(ctx, requestID)
	}
	return []*entity.SOAVersion{}, nil
}

func (m *mockSoaRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.SOAVersion, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSoaRepo) Summaries(ctx context.Context, batchID uuid.UUID) ([]*entity.SoaSummary, error) {
	return []*entity.SoaSummary{}, nil
}

func (m *mockSoaRepo) HasGenerated(ctx context.Context, batchID uuid.UUID) (bool, error) {
	if m.hasGeneratedFunc != nil {
		return m.hasGeneratedFunc(ctx, batchID)
	}
	return false, nil
}

type mockFileStorage struct {
	readFunc func(ctx context.Context, path string) ([]byte, error)
	saved    map[string][]byte
}

func (m *mockFileStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[path] = content
	return nil
}

func (m *mockFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if m.readFunc != nil {
		return m.readFunc(ctx, path)
	}
	if content, ok := m.saved[path]; ok {
		return content, nil
	}
	return nil, errors.New("not found")
}

func (m *mockFileStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := m.saved[path]
	return ok, nil
}

type mockExporter struct {
	format   entity.ExportFormat
	rendered []*entity.SoaSnapshot
}

func (m *mockExporter) Format() entity.ExportFormat { return m.format }

func (m *mockExporter) Render(snapshot *entity.SoaSnapshot) (*entity.Artifact, error) {
	m.rendered = append(m.rendered, snapshot)
	return &entity.Artifact{
		Filename:    fmt.Sprintf("soa_export_test.%s", m.format),
		ContentType: "application/octet-stream",
		Content:     []byte("rendered"),
	}, nil
}

type soaMocks struct {
	batches  *mockBatchRepo
	requests *mockRequestRepo
	soa      *mockSoaRepo
	audits   *mockAuditRepo
	storage  *mockFileStorage
	pdf      *mockExporter
	xlsx     *mockExporter
}

func newSoaMocks() *soaMocks {
	return &soaMocks{
		batches:  &mockBatchRepo{},
		requests: &mockRequestRepo{},
		soa:      &mockSoaRepo{},
		audits:   &mockAuditRepo{},
		storage:  &mockFileStorage{},
		pdf:      &mockExporter{format: entity.FormatPDF},
		xlsx:     &mockExporter{format: entity.FormatSpreadsheet},
	}
}

func newSoaService(m *soaMocks) SoaService {
	return NewSoaService(m.batches, m.requests, m.soa, m.audits,
		&mockTxManager{}, m.storage,
		[]port.SnapshotExporter{m.pdf, m.xlsx}, &mockLogger{})
}

func TestSoaService_Upload(t *testing.T) {
	actor := creatorActor()
	batch := draftBatch(actor.ID)
	req := draftRequest(batch.ID, actor.ID)

	m := newSoaMocks()
	m.batches.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
		return batch, nil
	}
	m.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
		return req, nil
	}
	m.soa.maxVersionFunc = func(ctx context.Context, requestID uuid.UUID) (int, error) {
		return 2, nil
	}
	svc := newSoaService(m)

	version, err := svc.Upload(context.Background(), actor, req.ID, "statement.pdf", []byte("content"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if version.VersionNumber != 3 {
		t.Errorf("VersionNumber = %d, want 3 (max+1)", version.VersionNumber)
	}
	if version.Source != entity.SoaSourceUpload {
		t.Errorf("Source = %v, want UPLOAD", version.Source)
	}
	if version.UploadedBy == nil || *version.UploadedBy != actor.ID {
		t.Errorf("UploadedBy = %v, want actor", version.UploadedBy)
	}

	wantRef := fmt.Sprintf("soa/%s/v3_statement.pdf", req.ID)
	if version.DocumentReference != wantRef {
		t.Errorf("DocumentReference = %q, want %q", version.DocumentReference, wantRef)
	}
	if !bytes.Equal(m.storage.saved[wantRef], []byte("content")) {
		t.Error("document content not stored at the version's reference")
	}

	if len(m.audits.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(m.audits.entries))
	}
	entry := m.audits.entries[0]
	if entry.EventType != entity.EventSoaUploaded || entry.NewState != "v3" {
		t.Errorf("entry = %+v, want SOA_UPLOADED v3", entry)
	}
}

func TestSoaService_Upload_FirstVersion(t *testing.T) {
	actor := creatorActor()
	batch := draftBatch(actor.ID)
	req := draftRequest(batch.ID, actor.ID)

	m := newSoaMocks()
	m.batches.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
		return batch, nil
	}
	m.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
		return req, nil
	}
	svc := newSoaService(m)

	version, err := svc.Upload(context.Background(), actor, req.ID, "statement.pdf", []byte("content"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if version.VersionNumber != 1 {
		t.Errorf("VersionNumber = %d, want 1 for first upload", version.VersionNumber)
	}
}

func TestSoaService_Upload_Validation(t *testing.T) {
	m := newSoaMocks()
	svc := newSoaService(m)
	actor := creatorActor()

	if _, err := svc.Upload(context.Background(), actor, uuid.New(), "", []byte("x")); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty filename error = %v, want ErrValidation", err)
	}
	if _, err := svc.Upload(context.Background(), actor, uuid.New(), "doc.pdf", nil); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty content error = %v, want ErrValidation", err)
	}
}

func TestSoaService_Upload_Forbidden(t *testing.T) {
	owner := creatorActor()
	batch := draftBatch(owner.ID)
	batch.Status = lifecycle.BatchProcessing
	req := draftRequest(batch.ID, owner.ID)
	req.Status = lifecycle.RequestPendingApproval

	m := newSoaMocks()
	m.batches.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
		return batch, nil
	}
	m.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
		return req, nil
	}
	svc := newSoaService(m)

	_, err := svc.Upload(context.Background(), owner, req.ID, "doc.pdf", []byte("x"))
	if !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("Upload() on pending request error = %v, want ErrForbidden", err)
	}
	if len(m.soa.created) != 0 {
		t.Error("version created despite denied upload")
	}
}

func TestSoaService_Download(t *testing.T) {
	versionID := uuid.New()
	version := &entity.SOAVersion{
		ID:                versionID,
		DocumentReference: "soa/abc/v2_statement.pdf",
	}

	m := newSoaMocks()
	m.soa.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.SOAVersion, error) {
		if id == versionID {
			return version, nil
		}
		return nil, nil
	}
	m.storage.saved = map[string][]byte{version.DocumentReference: []byte("pdf bytes")}
	svc := newSoaService(m)

	artifact, err := svc.Download(context.Background(), versionID)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if artifact.Filename != "v2_statement.pdf" {
		t.Errorf("Filename = %q, want base name", artifact.Filename)
	}
	if !bytes.Equal(artifact.Content, []byte("pdf bytes")) {
		t.Error("Content does not match stored document")
	}

	if _, err := svc.Download(context.Background(), uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Download() unknown id error = %v, want ErrNotFound", err)
	}
}

func TestSoaService_Export(t *testing.T) {
	creator := creatorActor()
	batch := draftBatch(creator.ID)
	req := draftRequest(batch.ID, creator.ID)
	req.BeneficiaryName = "Acme Ltd"

	m := newSoaMocks()
	m.batches.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
		return batch, nil
	}
	m.requests.listByBatchFunc = func(ctx context.Context, batchID uuid.UUID) ([]*entity.Request, error) {
		return []*entity.Request{req}, nil
	}
	svc := newSoaService(m)

	artifact, err := svc.Export(context.Background(), batch.ID, entity.FormatSpreadsheet)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasSuffix(artifact.Filename, string(entity.FormatSpreadsheet)) {
		t.Errorf("Filename = %q, want spreadsheet artifact", artifact.Filename)
	}
	if len(m.xlsx.rendered) != 1 || len(m.pdf.rendered) != 0 {
		t.Error("export routed to the wrong exporter")
	}

	snapshot := m.xlsx.rendered[0]
	if snapshot.BatchID != batch.ID || len(snapshot.Rows) != 1 {
		t.Errorf("snapshot = %+v, want one row for the batch", snapshot)
	}
	if snapshot.Rows[0].BeneficiaryName != "Acme Ltd" {
		t.Errorf("snapshot row beneficiary = %q", snapshot.Rows[0].BeneficiaryName)
	}

	if _, err := svc.Export(context.Background(), batch.ID, entity.ExportFormat("csv")); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Export() unsupported format error = %v, want ErrValidation", err)
	}
}

func TestSoaService_GenerateForBatch(t *testing.T) {
	creator := creatorActor()
	batch := draftBatch(creator.ID)
	batch.Status = lifecycle.BatchCompleted
	first := draftRequest(batch.ID, creator.ID)
	first.Status = lifecycle.RequestPaid
	second := draftRequest(batch.ID, creator.ID)
	second.Status = lifecycle.RequestRejected

	m := newSoaMocks()
	m.batches.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
		return batch, nil
	}
	m.requests.listByBatchFunc = func(ctx context.Context, batchID uuid.UUID) ([]*entity.Request, error) {
		return []*entity.Request{first, second}, nil
	}
	m.soa.maxVersionFunc = func(ctx context.Context, requestID uuid.UUID) (int, error) {
		if requestID == first.ID {
			return 2, nil
		}
		return 0, nil
	}
	svc := newSoaService(m)

	if err := svc.GenerateForBatch(context.Background(), batch.ID); err != nil {
		t.Fatalf("GenerateForBatch() error = %v", err)
	}

	if len(m.pdf.rendered) != 1 {
		t.Fatalf("PDF renders = %d, want 1 shared statement", len(m.pdf.rendered))
	}
	if len(m.storage.saved) != 1 {
		t.Fatalf("stored documents = %d, want 1", len(m.storage.saved))
	}

	if len(m.soa.created) != 2 {
		t.Fatalf("versions created = %d, want one per request", len(m.soa.created))
	}
	byRequest := map[uuid.UUID]*entity.SOAVersion{}
	for _, v := range m.soa.created {
		byRequest[v.RequestID] = v
		if v.Source != entity.SoaSourceGenerated {
			t.Errorf("Source = %v, want GENERATED", v.Source)
		}
		if v.UploadedBy != nil {
			t.Error("generated version should carry no uploader")
		}
		if !strings.HasPrefix(v.DocumentReference, "generated/"+batch.ID.String()) {
			t.Errorf("DocumentReference = %q, want under generated/<batch>", v.DocumentReference)
		}
	}
	if byRequest[first.ID].VersionNumber != 3 {
		t.Errorf("first request version = %d, want 3", byRequest[first.ID].VersionNumber)
	}
	if byRequest[second.ID].VersionNumber != 1 {
		t.Errorf("second request version = %d, want 1", byRequest[second.ID].VersionNumber)
	}

	if len(m.audits.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(m.audits.entries))
	}
	for _, entry := range m.audits.entries {
		if entry.EventType != entity.EventSoaGenerated || entry.ActorID != nil {
			t.Errorf("entry = %+v, want actorless SOA_GENERATED", entry)
		}
	}
}

func TestSoaService_GenerateForBatch_Idempotent(t *testing.T) {
	creator := creatorActor()
	batch := draftBatch(creator.ID)
	batch.Status = lifecycle.BatchCompleted

	m := newSoaMocks()
	m.batches.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
		return batch, nil
	}
	m.soa.hasGeneratedFunc = func(ctx context.Context, batchID uuid.UUID) (bool, error) {
		return true, nil
	}
	svc := newSoaService(m)

	if err := svc.GenerateForBatch(context.Background(), batch.ID); err != nil {
		t.Fatalf("GenerateForBatch() error = %v", err)
	}
	if len(m.soa.created) != 0 || len(m.storage.saved) != 0 || len(m.pdf.rendered) != 0 {
		t.Error("repeated generation must be a no-op")
	}
}

func TestSoaService_GenerateForBatch_NotCompleted(t *testing.T) {
	creator := creatorActor()
	batch := draftBatch(creator.ID)
	batch.Status = lifecycle.BatchProcessing

	m := newSoaMocks()
	m.batches.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.Batch, error) {
		return batch, nil
	}
	svc := newSoaService(m)

	err := svc.GenerateForBatch(context.Background(), batch.ID)
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("GenerateForBatch() error = %v, want ErrInvalidTransition", err)
	}
}

func TestSoaService_ListVersions_UnknownRequest(t *testing.T) {
	m := newSoaMocks()
	svc := newSoaService(m)

	_, err := svc.ListVersions(context.Background(), uuid.New())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("ListVersions() error = %v, want ErrNotFound", err)
	}
}
