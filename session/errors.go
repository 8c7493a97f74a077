package session

import "errors"

var (
	// ErrNotPending is returned when an operation targets a proposal id
	// that is unknown or already resolved. Callers are expected to treat
	// it as benign (idempotent UI re-clicks).
	ErrNotPending = errors.New("proposal is not pending")

	// ErrStaleRange is returned when a proposal's live range no longer
	// matches the buffer at accept time, e.g. its target text was
	// deleted by an intervening edit. The proposal is force-rejected as
	// a side effect; it is never applied to the wrong text.
	ErrStaleRange = errors.New("proposal range is stale")
)

// Failure records one proposal that could not be applied during a
// batch accept.
type Failure struct {
	ID  string
	Err error
}

// AcceptAllReport summarizes a batch accept. A nil error from
// AcceptAll does not mean every item succeeded; callers must inspect
// the report.
type AcceptAllReport struct {
	Applied  int
	Failed   int
	Failures []Failure
}
