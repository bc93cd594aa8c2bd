package probe

import (
	"errors"
	"fmt"
)

// ErrPageUnavailable is returned when the document can no longer be queried
// at all, for example because the page was closed or the browser went away.
// It is the only failure that Probe and Inspect report to the caller.
var ErrPageUnavailable = errors.New("page unavailable")

// Unavailable wraps cause so that errors.Is(err, ErrPageUnavailable) holds.
func Unavailable(cause error) error {
	switch {
	case cause == nil:
		return ErrPageUnavailable
	case errors.Is(cause, ErrPageUnavailable):
		return cause
	}
	return fmt.Errorf("%w: %w", ErrPageUnavailable, cause)
}

// SelectorError records a selector the query engine rejected.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error {
	return e.Err
}

// ElementReadError records a matched element whose text could not be read,
// typically because it was detached between the query and the read.
type ElementReadError struct {
	Selector string
	Index    int
	Err      error
}

func (e *ElementReadError) Error() string {
	return fmt.Sprintf("selector %q element %d: %v", e.Selector, e.Index, e.Err)
}

func (e *ElementReadError) Unwrap() error {
	return e.Err
}
