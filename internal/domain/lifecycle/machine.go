// Package lifecycle defines the legal states and transitions for payment
// batches and payment requests. The tables are pure data: looking up a
// transition has no side effects, and any (state, action) pair absent from
// the table fails with errs.ErrInvalidTransition rather than being ignored.
package lifecycle

import (
	"fmt"
	"sort"

	"github.com/payops/payment-workflow/internal/errs"
)

// Table maps (current state, action) -> next state for one entity type.
// A state with no outgoing transitions is terminal.
type Table[S ~string] struct {
	entity      string
	transitions map[S]map[Action]S
}

// NewTable creates an empty transition table for the named entity type
func NewTable[S ~string](entity string) *Table[S] {
	return &Table[S]{
		entity:      entity,
		transitions: make(map[S]map[Action]S),
	}
}

// Permit registers a transition and returns the table for chaining
func (t *Table[S]) Permit(from S, action Action, to S) *Table[S] {
	row, ok := t.transitions[from]
	if !ok {
		row = make(map[Action]S)
		t.transitions[from] = row
	}
	if existing, dup := row[action]; dup {
		panic(fmt.Sprintf("%s: duplicate transition %s + %s (-> %s and %s)",
			t.entity, from, action, existing, to))
	}
	row[action] = to
	return t
}

// Next returns the state reached by firing action from the given state.
// Undefined pairs fail with errs.ErrInvalidTransition.
func (t *Table[S]) Next(from S, action Action) (S, error) {
	if to, ok := t.transitions[from][action]; ok {
		return to, nil
	}
	var zero S
	return zero, fmt.Errorf("%w: %s cannot fire %s from state %s",
		errs.ErrInvalidTransition, t.entity, action, from)
}

// CanFire returns true if the action is defined for the given state
func (t *Table[S]) CanFire(from S, action Action) bool {
	_, ok := t.transitions[from][action]
	return ok
}

// Actions returns the actions defined for the given state, sorted for
// deterministic output
func (t *Table[S]) Actions(from S) []Action {
	row := t.transitions[from]
	actions := make([]Action, 0, len(row))
	for action := range row {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// IsTerminal returns true if no action is defined out of the given state
func (t *Table[S]) IsTerminal(from S) bool {
	return len(t.transitions[from]) == 0
}

// Batch is the transition table for payment batches. Cancellation is defined
// only from DRAFT: a submitted batch cannot be withdrawn through this table.
var Batch = NewTable[BatchStatus]("PaymentBatch").
	Permit(BatchDraft, ActionSubmit, BatchSubmitted).
	Permit(BatchDraft, ActionCancel, BatchCancelled).
	Permit(BatchSubmitted, ActionProcessBatch, BatchProcessing).
	Permit(BatchProcessing, ActionCompleteBatch, BatchCompleted)

// Request is the transition table for payment requests. SUBMITTED is a
// transitional state between batch submission and approval start; no actor
// action is permitted while a request sits in it.
var Request = NewTable[RequestStatus]("PaymentRequest").
	Permit(RequestDraft, ActionSubmitForApproval, RequestSubmitted).
	Permit(RequestSubmitted, ActionBeginApproval, RequestPendingApproval).
	Permit(RequestPendingApproval, ActionApprove, RequestApproved).
	Permit(RequestPendingApproval, ActionReject, RequestRejected).
	Permit(RequestApproved, ActionMarkPaid, RequestPaid)
