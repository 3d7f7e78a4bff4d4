package lifecycle

// Action represents an operation an actor (or the system) can request
// against a batch or a request.
type Action string

// Batch actions.
const (
	ActionSubmit     Action = "submit"
	ActionCancel     Action = "cancel"
	ActionAddRequest Action = "addRequest"

	// System-driven progression, fired by the external batch driver.
	ActionProcessBatch  Action = "processBatch"
	ActionCompleteBatch Action = "completeBatch"
)

// Request actions.
const (
	ActionEdit      Action = "edit"
	ActionUploadSoa Action = "uploadSoa"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionMarkPaid  Action = "markPaid"

	// Submission cascade steps. Fired by the engine when the owning batch
	// is submitted, never granted to an actor directly.
	ActionSubmitForApproval Action = "submitForApproval"
	ActionBeginApproval     Action = "beginApproval"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsSystem returns true for actions reserved to the engine or the external
// batch driver rather than a role-holding actor.
func (a Action) IsSystem() bool {
	switch a {
	case ActionProcessBatch, ActionCompleteBatch, ActionSubmitForApproval, ActionBeginApproval:
		return true
	}
	return false
}
