package domain

import "errors"

// Errors surfaced by loading and forecasting. Callers wrap them with context
// and match with errors.Is.
var (
	ErrNoDataFound         = errors.New("no data found")
	ErrSchema              = errors.New("schema mismatch")
	ErrDuplicateTimestamp  = errors.New("duplicate timestamp for station")
	ErrUnknownStation      = errors.New("unknown station")
	ErrTargetNotFound      = errors.New("target timestamp not found")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrMissingValues       = errors.New("window contains missing values")
	ErrNonContiguousWindow = errors.New("window is not contiguous in time")
	ErrDegenerateScale     = errors.New("degenerate scale")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrInferenceFailure    = errors.New("inference failure")
	ErrInvalidSelection    = errors.New("invalid selection")
	ErrInvalidTransition   = errors.New("invalid session transition")
	ErrSessionNotFound     = errors.New("session not found")
)

// Error kinds reported to API clients.
const (
	KindNoDataFound         = "no_data_found"
	KindSchema              = "schema"
	KindDuplicateTimestamp  = "duplicate_timestamp"
	KindUnknownStation      = "unknown_station"
	KindTargetNotFound      = "target_not_found"
	KindInsufficientHistory = "insufficient_history"
	KindMissingValues       = "missing_values"
	KindNonContiguousWindow = "non_contiguous_window"
	KindDegenerateScale     = "degenerate_scale"
	KindModelUnavailable    = "model_unavailable"
	KindInferenceFailure    = "inference_failure"
	KindInvalidSelection    = "invalid_selection"
	KindInvalidTransition   = "invalid_transition"
	KindSessionNotFound     = "session_not_found"
	KindInternal            = "internal"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrNoDataFound, KindNoDataFound},
	{ErrSchema, KindSchema},
	{ErrDuplicateTimestamp, KindDuplicateTimestamp},
	{ErrUnknownStation, KindUnknownStation},
	{ErrTargetNotFound, KindTargetNotFound},
	{ErrInsufficientHistory, KindInsufficientHistory},
	{ErrMissingValues, KindMissingValues},
	{ErrNonContiguousWindow, KindNonContiguousWindow},
	{ErrDegenerateScale, KindDegenerateScale},
	{ErrModelUnavailable, KindModelUnavailable},
	{ErrInferenceFailure, KindInferenceFailure},
	{ErrInvalidSelection, KindInvalidSelection},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrSessionNotFound, KindSessionNotFound},
}

// ErrorKind maps an error to a stable machine-readable kind.
// Unrecognized errors are KindInternal.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
