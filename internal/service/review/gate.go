package review

import (
	"sync"

	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// promptGate tracks per-user prompt dismissals for the lifetime of the
// process. Dismissal hides the prompt for this session only; after a restart
// an unreviewed finished match prompts again, which is the intended nudge.
type promptGate struct {
	mu        sync.Mutex
	dismissed map[uuid.UUID]map[uuid.UUID]struct{}
}

func newPromptGate() *promptGate {
	return &promptGate{dismissed: make(map[uuid.UUID]map[uuid.UUID]struct{})}
}

func (g *promptGate) Dismiss(userID, matchID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.dismissed[userID]
	if !ok {
		m = make(map[uuid.UUID]struct{})
		g.dismissed[userID] = m
	}
	m[matchID] = struct{}{}
}

func (g *promptGate) Dismissed(userID, matchID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.dismissed[userID][matchID]
	return ok
}
