package lifecycle

// BatchStatus represents a payment batch lifecycle state
type BatchStatus string

const (
	BatchDraft      BatchStatus = "DRAFT"
	BatchSubmitted  BatchStatus = "SUBMITTED"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchCompleted  BatchStatus = "COMPLETED"
	BatchCancelled  BatchStatus = "CANCELLED"
)

var validBatchStatuses = map[BatchStatus]bool{
	BatchDraft:      true,
	BatchSubmitted:  true,
	BatchProcessing: true,
	BatchCompleted:  true,
	BatchCancelled:  true,
}

// IsValid returns true if the status is a defined batch state
func (s BatchStatus) IsValid() bool {
	return validBatchStatuses[s]
}

// IsClosed returns true for COMPLETED and CANCELLED. A closed batch locks
// every contained request regardless of the request's own state.
func (s BatchStatus) IsClosed() bool {
	return s == BatchCompleted || s == BatchCancelled
}

// String returns the string representation of the status
func (s BatchStatus) String() string {
	return string(s)
}

// RequestStatus represents a payment request lifecycle state
type RequestStatus string

const (
	RequestDraft           RequestStatus = "DRAFT"
	RequestSubmitted       RequestStatus = "SUBMITTED"
	RequestPendingApproval RequestStatus = "PENDING_APPROVAL"
	RequestApproved        RequestStatus = "APPROVED"
	RequestRejected        RequestStatus = "REJECTED"
	RequestPaid            RequestStatus = "PAID"
)

var validRequestStatuses = map[RequestStatus]bool{
	RequestDraft:           true,
	RequestSubmitted:       true,
	RequestPendingApproval: true,
	RequestApproved:        true,
	RequestRejected:        true,
	RequestPaid:            true,
}

// IsValid returns true if the status is a defined request state
func (s RequestStatus) IsValid() bool {
	return validRequestStatuses[s]
}

// IsTerminal returns true for PAID and REJECTED
func (s RequestStatus) IsTerminal() bool {
	return s == RequestPaid || s == RequestRejected
}

// IsSettled returns true once a request needs no further approval work.
// APPROVED counts: a batch whose requests are all settled may complete.
func (s RequestStatus) IsSettled() bool {
	return s == RequestApproved || s.IsTerminal()
}

// String returns the string representation of the status
func (s RequestStatus) String() string {
	return string(s)
}
