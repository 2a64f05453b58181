package hermes

import (
	"errors"
	"fmt"
)

var (
	ErrSessionStart     = errors.New("automation session could not be started")
	ErrElementTimeout   = errors.New("element not interactable before timeout")
	ErrElementNotFound  = errors.New("element not found")
	ErrNoMatchingOption = errors.New("no dropdown option matched")
	ErrNoCube           = errors.New("no usable cube")
	ErrFilterNotApplied = errors.New("entity filter not applied")
	ErrNoResultTable    = errors.New("result table not found")
	ErrMissingColumn    = errors.New("column missing from result table")
	ErrTransport        = errors.New("transport error")
	ErrDecode           = errors.New("decode error")
	ErrRobotsDisallowed = errors.New("crawling is disallowed by robots.txt")
)

// EntityError is the failure of one entity's filter/run/scrape. The run
// carries on without that entity's rows.
type EntityError struct {
	Entity string
	Stage  string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("entity %s (%s): %v", e.Entity, e.Stage, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
