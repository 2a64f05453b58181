package hermes

import (
	"context"
	"fmt"
	"time"
)

type PollState int

const (
	PollRunning PollState = iota
	PollSucceeded
	PollTimedOut
)

func (s PollState) String() string {
	switch s {
	case PollRunning:
		return "running"
	case PollSucceeded:
		return "succeeded"
	default:
		return "timed out"
	}
}

type RunState int

const (
	RunSucceeded RunState = iota // a table with rows was scraped
	RunEmpty                     // the query finished but no table showed up
	RunTimedOut                  // the indicator never cleared and no table showed up
	RunFailed
)

func (s RunState) String() string {
	switch s {
	case RunSucceeded:
		return "succeeded"
	case RunEmpty:
		return "empty"
	case RunTimedOut:
		return "timed out"
	default:
		return "failed"
	}
}

// QueryRun is one query execution for one entity.
type QueryRun struct {
	Entity    string
	StartedAt time.Time
	Waited    time.Duration
	State     RunState
	Rows      int
	Err       error
}

// CompletionPoller watches the remote UI for the end of a query. The UI has
// no completion event, so the only signals are the progress indicator going
// away and the result table appearing.
type CompletionPoller struct {
	session   *Session
	indicator Locator
	interval  time.Duration
}

func (s *Session) completionPoller() *CompletionPoller {
	return &CompletionPoller{
		session:   s,
		indicator: runningIndicator,
		interval:  s.engine.PollInterval,
	}
}

// Await polls until no visible progress indicator remains or bound has been
// spent. Timing out is a state, not an error; only cancellation is.
func (p *CompletionPoller) Await(ctx context.Context, bound time.Duration) (PollState, time.Duration, error) {
	var waited time.Duration
	for waited < bound {
		if !p.indicatorVisible() {
			return PollSucceeded, waited, nil
		}
		if err := pause(ctx, p.interval); err != nil {
			return PollRunning, waited, err
		}
		waited += p.interval
	}
	return PollTimedOut, waited, nil
}

func (p *CompletionPoller) indicatorVisible() bool {
	elements, err := p.session.page.Elements(p.indicator)
	if err != nil {
		// an unreadable page is treated as still busy
		return true
	}
	for _, el := range elements {
		if visible, err := el.Visible(); err == nil && visible {
			return true
		}
	}
	return false
}

// AwaitTable makes up to attempts lookups of a visible table holding more than
// a header row and returns its markup.
func (p *CompletionPoller) AwaitTable(ctx context.Context, loc Locator, attempts int) (string, error) {
	for attempt := 1; attempt <= attempts; attempt++ {
		if html, ok := p.tableReady(loc); ok {
			return html, nil
		}
		if attempt == attempts {
			break
		}
		if err := pause(ctx, p.interval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s after %d attempts", ErrNoResultTable, loc, attempts)
}

func (p *CompletionPoller) tableReady(loc Locator) (string, bool) {
	elements, err := p.session.page.Elements(loc)
	if err != nil || len(elements) == 0 {
		return "", false
	}
	table := elements[0]
	if visible, err := table.Visible(); err != nil || !visible {
		return "", false
	}
	html, err := table.HTML()
	if err != nil {
		return "", false
	}
	rows, err := countTableRows(html)
	if err != nil || rows <= 1 {
		return "", false
	}
	return html, true
}
