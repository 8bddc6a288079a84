package matching

import (
	"errors"
	"testing"

	"github.com/torimichi/guide-match-system/internal/domain/types"
)

func TestAdvance(t *testing.T) {
	tests := []struct {
		name        string
		cur         types.MatchStatus
		verb        Verb
		wantNext    types.MatchStatus
		wantChanged bool
		wantErr     error
	}{
		{"accept pending", types.StatusPending, VerbAccept, types.StatusAccepted, true, nil},
		{"reject pending", types.StatusPending, VerbReject, types.StatusRejected, true, nil},
		{"end accepted", types.StatusAccepted, VerbEnd, types.StatusReviewWait, true, nil},

		// Re-applying a verb that already took effect is absorbed.
		{"accept accepted", types.StatusAccepted, VerbAccept, types.StatusAccepted, false, nil},
		{"reject rejected", types.StatusRejected, VerbReject, types.StatusRejected, false, nil},
		{"end review_wait", types.StatusReviewWait, VerbEnd, types.StatusReviewWait, false, nil},

		{"end pending", types.StatusPending, VerbEnd, types.StatusPending, false, types.ErrInvalidTransition},
		{"accept rejected", types.StatusRejected, VerbAccept, types.StatusRejected, false, types.ErrInvalidTransition},
		{"reject accepted", types.StatusAccepted, VerbReject, types.StatusAccepted, false, types.ErrInvalidTransition},
		{"accept review_wait", types.StatusReviewWait, VerbAccept, types.StatusReviewWait, false, types.ErrInvalidTransition},
		{"reject review_wait", types.StatusReviewWait, VerbReject, types.StatusReviewWait, false, types.ErrInvalidTransition},
		{"unknown verb", types.StatusPending, Verb("archive"), types.StatusPending, false, types.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed, err := advance(tt.cur, tt.verb)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("advance(%s, %s) error = %v, want %v", tt.cur, tt.verb, err, tt.wantErr)
			}
			if changed != tt.wantChanged {
				t.Errorf("advance(%s, %s) changed = %v, want %v", tt.cur, tt.verb, changed, tt.wantChanged)
			}
			if err == nil && changed && next != tt.wantNext {
				t.Errorf("advance(%s, %s) next = %s, want %s", tt.cur, tt.verb, next, tt.wantNext)
			}
		})
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	for _, cur := range []types.MatchStatus{types.StatusRejected, types.StatusReviewWait} {
		for _, v := range []Verb{VerbAccept, VerbReject, VerbEnd} {
			if target[v] == cur {
				continue
			}
			if _, changed, err := advance(cur, v); err == nil && changed {
				t.Errorf("terminal status %s moved via %s", cur, v)
			}
		}
	}
}
