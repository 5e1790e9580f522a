package pagination

import (
	"errors"
	"testing"

	"github.com/Sternrassler/airtable-proxy/pkg/airtable"
)

func listPage(offset string, ids ...string) *airtable.ListResponse {
	resp := &airtable.ListResponse{Offset: offset}
	for _, id := range ids {
		resp.Records = append(resp.Records, airtable.Record{
			ID:     id,
			Fields: map[string]any{"Name": id},
		})
	}
	return resp
}

func TestWalk_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		target    int
		responses []*airtable.ListResponse
		wantState State
		wantSteps int
	}{
		{
			name:      "first page",
			target:    0,
			responses: []*airtable.ListResponse{listPage("o1", "a")},
			wantState: Found,
			wantSteps: 1,
		},
		{
			name:      "second page",
			target:    1,
			responses: []*airtable.ListResponse{listPage("o1", "a"), listPage("o2", "b")},
			wantState: Found,
			wantSteps: 2,
		},
		{
			name:      "last page without cursor is still found",
			target:    1,
			responses: []*airtable.ListResponse{listPage("o1", "a"), listPage("", "b")},
			wantState: Found,
			wantSteps: 2,
		},
		{
			name:   "beyond the last page",
			target: 5,
			responses: []*airtable.ListResponse{
				listPage("o1", "a"), listPage("o2", "b"), listPage("", "c"),
			},
			wantState: Exhausted,
			wantSteps: 3,
		},
		{
			name:      "negative target",
			target:    -1,
			responses: []*airtable.ListResponse{listPage("o1", "a"), listPage("", "b")},
			wantState: Exhausted,
			wantSteps: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			walk := NewWalk(tt.target)
			steps := 0
			for _, resp := range tt.responses {
				if walk.State() != AwaitingPage {
					break
				}
				walk.Step(resp, nil)
				steps++
			}

			if walk.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", walk.State(), tt.wantState)
			}
			if steps != tt.wantSteps {
				t.Errorf("consumed %d responses, want %d", steps, tt.wantSteps)
			}
		})
	}
}

func TestWalk_OffsetIsCarried(t *testing.T) {
	walk := NewWalk(2)
	if walk.Offset() != "" {
		t.Fatalf("initial Offset() = %q, want empty", walk.Offset())
	}

	walk.Step(listPage("cursor-1", "a"), nil)
	if walk.Offset() != "cursor-1" {
		t.Errorf("Offset() = %q, want cursor-1", walk.Offset())
	}

	walk.Step(listPage("cursor-2", "b"), nil)
	if walk.Offset() != "cursor-2" {
		t.Errorf("Offset() = %q, want cursor-2", walk.Offset())
	}
}

func TestWalk_ResultFound(t *testing.T) {
	walk := NewWalk(0)
	walk.Step(listPage("", "rec1", "rec2"), nil)

	page, err := walk.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if len(page) != 2 || page["rec1"]["Name"] != "rec1" {
		t.Errorf("Result() = %v", page)
	}
}

func TestWalk_ResultExhausted(t *testing.T) {
	walk := NewWalk(3)
	walk.Step(listPage("", "a"), nil)

	_, err := walk.Result()
	if !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("Result() error = %v, want ErrPageNotFound", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error is not *ExhaustedError: %T", err)
	}
	if exhausted.Target != 3 || exhausted.Pages != 1 {
		t.Errorf("ExhaustedError = %+v, want Target 3 Pages 1", exhausted)
	}
}

func TestWalk_FailedIsTerminal(t *testing.T) {
	boom := errors.New("upstream down")
	walk := NewWalk(1)

	if state := walk.Step(nil, boom); state != Failed {
		t.Fatalf("Step() = %v, want Failed", state)
	}
	// Later responses do not revive the walk.
	if state := walk.Step(listPage("o", "a"), nil); state != Failed {
		t.Errorf("Step() after failure = %v, want Failed", state)
	}

	if _, err := walk.Result(); !errors.Is(err, boom) {
		t.Errorf("Result() error = %v, want %v", err, boom)
	}
}

func TestWalk_NilResponse(t *testing.T) {
	walk := NewWalk(0)
	if state := walk.Step(nil, nil); state != Failed {
		t.Errorf("Step(nil, nil) = %v, want Failed", state)
	}
}

func TestWalk_ResultBeforeDone(t *testing.T) {
	if _, err := NewWalk(0).Result(); err == nil {
		t.Error("expected error for unfinished walk")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		AwaitingPage: "awaiting_page",
		Found:        "found",
		Exhausted:    "exhausted",
		Failed:       "failed",
		State(42):    "State(42)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
