package usecase

import "errors"

// Kind classifies a failed readiness check or submission attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnconfigured
	KindUnreachable
	KindDegraded
	KindDegradedNoModel
	KindNoFileSelected
	KindBackendNotReady
	KindNetworkError
	KindServiceError
	KindSubmissionInProgress
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindUnconfigured:         "unconfigured",
	KindUnreachable:          "unreachable",
	KindDegraded:             "degraded",
	KindDegradedNoModel:      "degraded_no_model",
	KindNoFileSelected:       "no_file_selected",
	KindBackendNotReady:      "backend_not_ready",
	KindNetworkError:         "network_error",
	KindServiceError:         "service_error",
	KindSubmissionInProgress: "submission_in_progress",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is a client-observable failure. Message is the status line shown to
// the user; Err keeps the underlying cause when there is one.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Kind
	}
	return KindUnknown
}
