package sync

import "fmt"

// ConfigError means credentials or endpoint configuration is missing. It is
// fatal: no run is attempted.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "sync configuration invalid: " + e.Reason
}

// ValidationError means an order lacks required production data. The order
// is excluded and the run continues.
type ValidationError struct {
	OrderID int
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order %d failed validation (%d products)", e.OrderID, len(e.Errors))
}

// IDGenerationError means the generator could not produce unique ids within
// its attempt bound. The order is excluded and the run continues.
type IDGenerationError struct {
	OrderID int
	Err     error
}

func (e *IDGenerationError) Error() string {
	return fmt.Sprintf("order %d: id generation failed: %v", e.OrderID, e.Err)
}

func (e *IDGenerationError) Unwrap() error { return e.Err }

// PersistenceError means an order's piece batch failed to commit. The batch
// is rolled back and the run continues with the next order.
type PersistenceError struct {
	OrderID int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order %d: persistence failed: %v", e.OrderID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
