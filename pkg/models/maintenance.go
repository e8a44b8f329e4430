package models

// OperationStatus tags the outcome of a maintenance step.
type OperationStatus string

const (
	OperationSuccess OperationStatus = "success"
	OperationWarning OperationStatus = "warning"
	OperationError   OperationStatus = "error"
)

// OperationResult is the outcome of one maintenance step.
type OperationResult struct {
	Operation string          `json:"operation"`
	Result    string          `json:"result"`
	Status    OperationStatus `json:"status"`
}
