package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payops/payment-workflow/internal/domain/lifecycle"
)

// Request is a single payment instruction within a batch
type Request struct {
	ID                 uuid.UUID               `json:"id"`
	BatchID            uuid.UUID               `json:"batch_id"`
	Amount             decimal.Decimal         `json:"amount"`
	Currency           string                  `json:"currency"`
	BeneficiaryName    string                  `json:"beneficiary_name"`
	BeneficiaryAccount string                  `json:"beneficiary_account"`
	Purpose            string                  `json:"purpose"`
	Status             lifecycle.RequestStatus `json:"status"`
	CreatedBy          uuid.UUID               `json:"created_by"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	Version            int64                   `json:"version"`
}

// RequestFields carries the mutable payload for creating or editing a
// request. Nil pointers on edit mean "leave unchanged".
type RequestFields struct {
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	Currency           *string          `json:"currency,omitempty"`
	BeneficiaryName    *string          `json:"beneficiary_name,omitempty"`
	BeneficiaryAccount *string          `json:"beneficiary_account,omitempty"`
	Purpose            *string          `json:"purpose,omitempty"`
}

// ApprovalRecord captures a single approve/reject decision on a request.
// At most one exists per request.
type ApprovalRecord struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"request_id"`
	Approver  uuid.UUID `json:"approver"`
	Decision  string    `json:"decision"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Approval decisions.
const (
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)
