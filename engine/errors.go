package engine

import "fmt"

// ValidationError reports bad or missing workstream configuration.
// The run aborts before any persistence.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an unknown batch or workstream id.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidStateError reports a lifecycle operation attempted from the
// wrong batch status. No state change happens.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// NoDataError reports that no dataset snapshot has been loaded yet.
type NoDataError struct{}

func (e *NoDataError) Error() string {
	return "no investment data loaded; upload a dataset first"
}

// DeliveryError wraps a per-message mail API failure. It is recorded on
// the message and never aborts the rest of the batch.
type DeliveryError struct {
	Reason string
}

func (e *DeliveryError) Error() string { return e.Reason }
