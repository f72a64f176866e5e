package crossengage

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure mode of the platform client.
// Callers match with errors.Is and abort the run; there is no local recovery.
var (
	ErrAuth              = errors.New("crossengage: authentication failed")
	ErrAmbiguousIdentity = errors.New("crossengage: ambiguous company identity")
	ErrCatalogFetch      = errors.New("crossengage: fetching KPI definitions failed")
	ErrAttributeNotFound = errors.New("crossengage: attribute resolution failed")
	ErrSegmentCreate     = errors.New("crossengage: creating segment failed")
	ErrSegmentCount      = errors.New("crossengage: triggering segment count failed")
	ErrSegmentList       = errors.New("crossengage: listing segment members failed")
	ErrSegmentDelete     = errors.New("crossengage: deleting segment failed")
	ErrOptOutRead        = errors.New("crossengage: reading opt-out status failed")
	ErrOptOutWrite       = errors.New("crossengage: writing opt-out status failed")
	ErrOptOutVerify      = errors.New("crossengage: opt-out status not set after update")
	ErrOptOutWebhook     = errors.New("crossengage: opt-out webhook call failed")
	ErrUnexpectedStatus  = errors.New("crossengage: unexpected response status")
)

// StatusError describes a non-2xx platform response. It unwraps to the
// sentinel classifying the failing call, so callers can use errors.Is for
// the category and errors.As for the status code and body.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
	Kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// newStatusError builds a StatusError with a truncated body excerpt.
func newStatusError(kind error, op string, statusCode int, body []byte) *StatusError {
	const maxBody = 512
	excerpt := string(body)
	if len(excerpt) > maxBody {
		excerpt = excerpt[:maxBody] + "..."
	}
	if kind == nil {
		kind = ErrUnexpectedStatus
	}
	return &StatusError{Op: op, StatusCode: statusCode, Body: excerpt, Kind: kind}
}
