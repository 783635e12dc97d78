package services

import "errors"

// Failure classes of the process pipeline. Every error returned by the
// pipeline wraps exactly one of these; callers classify with errors.Is.
var (
	ErrInvalidInput              = errors.New("INVALID_INPUT")
	ErrDataUnavailable           = errors.New("DATA_UNAVAILABLE")
	ErrUpstream                  = errors.New("UPSTREAM_ERROR")
	ErrMalformedUpstreamResponse = errors.New("MALFORMED_UPSTREAM_RESPONSE")
	ErrSchemaMismatch            = errors.New("SCHEMA_MISMATCH")
)

// MalformedResponseError carries the cleaned model output that failed to parse.
type MalformedResponseError struct {
	Cleaned string
	Cause   error
}

func (e *MalformedResponseError) Error() string {
	return "model did not return valid JSON: " + e.Cause.Error()
}

func (e *MalformedResponseError) Unwrap() []error {
	return []error{ErrMalformedUpstreamResponse, e.Cause}
}
