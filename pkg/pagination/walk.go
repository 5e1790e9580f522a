package pagination

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/airtable-proxy/pkg/airtable"
	"github.com/Sternrassler/airtable-proxy/pkg/records"
)

// ErrPageNotFound is matched by ExhaustedError.
var ErrPageNotFound = errors.New("page not found")

// ExhaustedError reports a listing that ended before the target page.
type ExhaustedError struct {
	Target int
	Pages  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("page %d not found: listing ended after %d page(s)", e.Target, e.Pages)
}

// Unwrap lets errors.Is match ErrPageNotFound.
func (e *ExhaustedError) Unwrap() error {
	return ErrPageNotFound
}

// State is the phase of a Walk.
type State int

const (
	// AwaitingPage means another upstream page is needed.
	AwaitingPage State = iota
	// Found means the target page was reached.
	Found
	// Exhausted means the listing ended before the target.
	Exhausted
	// Failed means an upstream call failed.
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingPage:
		return "awaiting_page"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Walk tracks progress toward one target page. It performs no I/O.
type Walk struct {
	target int
	state  State
	pages  int
	offset string
	result records.Page
	err    error
}

// NewWalk starts a walk for the zero-based target page. A negative target is
// never reached, so its walk ends Exhausted.
func NewWalk(target int) *Walk {
	return &Walk{target: target}
}

// State returns the current state.
func (w *Walk) State() State { return w.state }

// Offset returns the cursor to send with the next request, empty for the
// first page.
func (w *Walk) Offset() string { return w.offset }

// PagesSeen returns how many upstream pages have been consumed.
func (w *Walk) PagesSeen() int { return w.pages }

// Step applies the outcome of one upstream call and returns the new state.
// Steps after a terminal state are ignored.
func (w *Walk) Step(resp *airtable.ListResponse, err error) State {
	if w.state != AwaitingPage {
		return w.state
	}

	switch {
	case err != nil:
		w.state = Failed
		w.err = err
		return w.state
	case resp == nil:
		w.state = Failed
		w.err = errors.New("empty list response")
		return w.state
	}

	index := w.pages
	w.pages++

	if index == w.target {
		w.state = Found
		w.result = resp.Page()
		return w.state
	}

	if resp.Offset == "" {
		w.state = Exhausted
		w.err = &ExhaustedError{Target: w.target, Pages: w.pages}
		return w.state
	}

	w.offset = resp.Offset
	return w.state
}

// Result returns the page once Found, or the terminal error.
func (w *Walk) Result() (records.Page, error) {
	switch w.state {
	case Found:
		return w.result, nil
	case AwaitingPage:
		return nil, errors.New("walk not finished")
	default:
		return nil, w.err
	}
}
