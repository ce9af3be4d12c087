package logging

import "fmt"

// OperationError annotates an infrastructure failure with where it happened.
type OperationError struct {
	Operation    string
	SubmissionID string
	Err          error
}

func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.SubmissionID != "" {
		return fmt.Sprintf("%s (submission_id=%s): %v", e.Operation, e.SubmissionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps err, returning nil when err is nil.
func NewOperationError(operation, submissionID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, SubmissionID: submissionID, Err: err}
}

// Cause returns the innermost error message, skipping OperationError layers.
// Status lines show this rather than the full operation chain.
func Cause(err error) string {
	for {
		opErr, ok := err.(*OperationError)
		if !ok || opErr.Err == nil {
			break
		}
		err = opErr.Err
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
