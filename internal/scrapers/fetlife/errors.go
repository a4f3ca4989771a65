package fetlife

import (
	"errors"
	"fmt"
)

// TransportError is a failure to complete an exchange with the site: the connection
// failed, timed out, or the site answered a read with an unexpected status. It is never
// retried here.
type TransportError struct {
	Method string
	Path   string
	// Status is zero when no response was received at all.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetlife transport: %s %s: unexpected status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("fetlife transport: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthenticationError means the site rejected the credentials or no session could be
// derived from its answer. An account that fails this way must not be persisted.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("fetlife authentication: %s", e.Reason)
}

// UnsupportedOperationError is returned for resolution paths that are deliberately not
// implemented, like looking up a profile by nickname.
type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("fetlife: unsupported operation: %s", e.Operation)
}

// InvalidUserIdError is a numeric user id that cannot name anybody: zero or too large
// to be an id.
type InvalidUserIdError struct {
	Raw string
}

func (e *InvalidUserIdError) Error() string {
	return fmt.Sprintf("fetlife: invalid user id %q", e.Raw)
}

var (
	// ErrNotAuthenticated is returned by every read when the account holds no session.
	ErrNotAuthenticated = errors.New("fetlife: not authenticated")
	// ErrSessionExpired is returned when the site bounced a read to the sign in page.
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrNotAuthenticated)
	// ErrNotFound is returned when a single-entity page has none of the expected markup.
	ErrNotFound = errors.New("fetlife: not found")
)

// ExtractionGap describes one listing entry that could not be turned into an entity.
// Gaps are soft, they are returned next to the entities that were extracted and are
// never the error of an operation.
type ExtractionGap struct {
	Kind  string
	Index int
	Href  string
	Err   error
}

func (g ExtractionGap) Error() string {
	return fmt.Sprintf("extract %s #%d (%q): %v", g.Kind, g.Index, g.Href, g.Err)
}

func (g ExtractionGap) Unwrap() error {
	return g.Err
}
