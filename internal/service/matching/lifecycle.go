package matching

import (
	"github.com/torimichi/guide-match-system/internal/domain/types"
)

// Verb is a lifecycle action a participant can take on a request.
type Verb string

const (
	VerbAccept Verb = "accept"
	VerbReject Verb = "reject"
	VerbEnd    Verb = "end"
)

// target maps each verb to the status it drives the request to.
var target = map[Verb]types.MatchStatus{
	VerbAccept: types.StatusAccepted,
	VerbReject: types.StatusRejected,
	VerbEnd:    types.StatusReviewWait,
}

// allowedFrom maps each verb to the one status it may fire from.
var allowedFrom = map[Verb]types.MatchStatus{
	VerbAccept: types.StatusPending,
	VerbReject: types.StatusPending,
	VerbEnd:    types.StatusAccepted,
}

// advance applies verb to the current status. changed=false with nil error is
// the idempotent case: the request already sits at the verb's target, so a
// retried or double-delivered action is absorbed instead of failing.
func advance(cur types.MatchStatus, v Verb) (next types.MatchStatus, changed bool, err error) {
	want, ok := target[v]
	if !ok {
		return cur, false, types.ErrInvalidTransition
	}
	if cur == want {
		return cur, false, nil
	}
	if cur != allowedFrom[v] {
		return cur, false, types.ErrInvalidTransition
	}
	return want, true, nil
}

// eventFor names the audit event a verb produces.
func eventFor(v Verb) types.MatchEvent {
	switch v {
	case VerbAccept:
		return types.EventMatchAccepted
	case VerbReject:
		return types.EventMatchRejected
	default:
		return types.EventChatClosed
	}
}
