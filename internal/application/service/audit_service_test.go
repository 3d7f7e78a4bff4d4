package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/errs"
)

func TestAuditService_Query_FilterValidation(t *testing.T) {
	svc := NewAuditService(&mockAuditRepo{}, &mockLogger{})

	tests := []struct {
		name    string
		filter  entity.AuditFilter
		wantErr bool
	}{
		{"empty filter", entity.AuditFilter{}, false},
		{"batch filter", entity.AuditFilter{EntityType: entity.EntityBatch}, false},
		{"soa filter", entity.AuditFilter{EntityType: entity.EntitySoaVersion}, false},
		{"unknown entity type", entity.AuditFilter{EntityType: "Invoice"}, true},
		{"inverted time range", entity.AuditFilter{
			From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Query(context.Background(), tt.filter, 20, 0)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrValidation) {
					t.Fatalf("Query() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
		})
	}
}

func TestAuditService_EntityHistory(t *testing.T) {
	batchID := uuid.New()
	repo := &mockAuditRepo{entries: []*entity.AuditEntry{
		{ID: uuid.New(), EventType: entity.EventBatchCreated, EntityType: entity.EntityBatch, EntityID: batchID, NewState: "DRAFT"},
		{ID: uuid.New(), EventType: entity.EventBatchSubmitted, EntityType: entity.EntityBatch, EntityID: batchID, NewState: "SUBMITTED"},
	}}
	svc := NewAuditService(repo, &mockLogger{})

	entries, err := svc.EntityHistory(context.Background(), entity.EntityBatch, batchID)
	if err != nil {
		t.Fatalf("EntityHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}

	count, err := svc.CountByEntity(context.Background(), entity.EntityBatch, batchID)
	if err != nil {
		t.Fatalf("CountByEntity() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
