// Package policy decides which actions an actor may currently take on a
// batch or request. It is the single authoritative copy of the rules: the
// UI consumes it read-only through GetPermittedActions, and every mutation
// is gated on it server-side, so the two can never diverge.
//
// Evaluation is pure and runs fresh on every call; results must not be
// cached across calls because entity state may have changed.
package policy

import (
	"github.com/google/uuid"

	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/internal/domain/lifecycle"
)

// PermittedBatchActions returns the actions the actor may take on the batch.
//
// Rule precedence, first match wins:
//  1. closed batch (COMPLETED/CANCELLED) -> nothing, for everyone
//  2. state+role table: only a batch in DRAFT grants anything, and only to
//     its creator (CREATOR role)
func PermittedBatchActions(batch *entity.Batch, actorID uuid.UUID, role entity.Role) []lifecycle.Action {
	if batch.Status.IsClosed() {
		return nil
	}
	if batch.Status == lifecycle.BatchDraft && role == entity.RoleCreator && batch.IsCreator(actorID) {
		return []lifecycle.Action{lifecycle.ActionAddRequest, lifecycle.ActionCancel, lifecycle.ActionSubmit}
	}
	return nil
}

// PermittedRequestActions returns the actions the actor may take on the
// request, given its owning batch.
//
// Rule precedence, first match wins:
//  1. closed owning batch -> nothing, regardless of request state or role
//  2. terminal request (PAID/REJECTED) -> nothing
//  3. state+role table:
//     DRAFT            + batch creator (CREATOR)  -> edit, uploadSoa
//     PENDING_APPROVAL + APPROVER                 -> approve, reject
//     APPROVED         + CREATOR or APPROVER      -> markPaid
//     SUBMITTED (in flight) and everything else   -> nothing
//
// ADMIN never appears: it is an oversight role with read access only.
func PermittedRequestActions(req *entity.Request, batch *entity.Batch, actorID uuid.UUID, role entity.Role) []lifecycle.Action {
	if batch.Status.IsClosed() {
		return nil
	}
	if req.Status.IsTerminal() {
		return nil
	}

	switch req.Status {
	case lifecycle.RequestDraft:
		if role == entity.RoleCreator && batch.IsCreator(actorID) {
			return []lifecycle.Action{lifecycle.ActionEdit, lifecycle.ActionUploadSoa}
		}
	case lifecycle.RequestPendingApproval:
		if role == entity.RoleApprover {
			return []lifecycle.Action{lifecycle.ActionApprove, lifecycle.ActionReject}
		}
	case lifecycle.RequestApproved:
		if role == entity.RoleCreator || role == entity.RoleApprover {
			return []lifecycle.Action{lifecycle.ActionMarkPaid}
		}
	}
	return nil
}

// QueueActions is the approval-queue variant: ownership-independent, since
// an approver has global authority over any batch's pending requests. The
// queue itself is role-gated at the boundary (only APPROVER may query it),
// so no role parameter appears here.
func QueueActions(status lifecycle.RequestStatus) []lifecycle.Action {
	switch status {
	case lifecycle.RequestPendingApproval:
		return []lifecycle.Action{lifecycle.ActionApprove, lifecycle.ActionReject}
	case lifecycle.RequestApproved:
		return []lifecycle.Action{lifecycle.ActionMarkPaid}
	}
	return nil
}

// Allows reports whether the action is in the permitted set
func Allows(permitted []lifecycle.Action, action lifecycle.Action) bool {
	for _, a := range permitted {
		if a == action {
			return true
		}
	}
	return false
}
