package production

// BatchStatus is the lifecycle state of a production batch
type BatchStatus string

const (
	BatchStatusScheduled  BatchStatus = "SCHEDULED"
	BatchStatusInProgress BatchStatus = "IN_PROGRESS"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusCancelled  BatchStatus = "CANCELLED"
)

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusScheduled, BatchStatusInProgress, BatchStatusCompleted, BatchStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for COMPLETED and CANCELLED
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusCancelled
}

var allowedTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusScheduled:  {BatchStatusInProgress, BatchStatusCancelled},
	BatchStatusInProgress: {BatchStatusCompleted, BatchStatusCancelled},
}

// CanTransitionTo reports whether the state machine allows s -> target
func (s BatchStatus) CanTransitionTo(target BatchStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// FulfillmentType tells whether a batch line serves an order or stock
type FulfillmentType string

const (
	FulfillmentMakeToOrder FulfillmentType = "MAKE_TO_ORDER"
	FulfillmentMakeToStock FulfillmentType = "MAKE_TO_STOCK"
)
