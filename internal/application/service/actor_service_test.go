package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/errs"
)

type mockActorRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*entity.Actor, error)
	created     []*entity.Actor
}

func (m *mockActorRepo) Create(ctx context.Context, actor *entity.Actor) error {
	m.created = append(m.created, actor)
	return nil
}

func (m *mockActorRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Actor, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func TestActorService_Register(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		role        entity.Role
		wantErr     bool
	}{
		{"creator", "Alice", entity.RoleCreator, false},
		{"approver", "Bob", entity.RoleApprover, false},
		{"viewer", "Carol", entity.RoleViewer, false},
		{"admin", "Dave", entity.RoleAdmin, false},
		{"blank name", "  ", entity.RoleCreator, true},
		{"unknown role", "Eve", entity.Role("SUPERUSER"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockActorRepo{}
			svc := NewActorService(repo, &mockLogger{})

			actor, err := svc.Register(context.Background(), tt.displayName, tt.role)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrValidation) {
					t.Fatalf("Register() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			if actor.Role != tt.role || actor.DisplayName != tt.displayName {
				t.Errorf("actor = %+v", actor)
			}
			if len(repo.created) != 1 {
				t.Errorf("created = %d, want 1", len(repo.created))
			}
		})
	}
}

func TestActorService_Get_NotFound(t *testing.T) {
	svc := NewActorService(&mockActorRepo{}, &mockLogger{})

	_, err := svc.Get(context.Background(), uuid.New())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}
