package chat

import (
	"sort"
	"sync"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// conversationLog is the in-memory view of one conversation. It keeps two
// tiers: durable entries ordered by (CreatedAt, Seq), and a pending overlay
// of optimistic local messages that have no store identity yet. Readers see
// the durable tier followed by the pending tail, so a just-sent message is
// visible immediately and keeps its place once the durable echo lands.
type conversationLog struct {
	mu      sync.Mutex
	matchID uuid.UUID

	entries []models.Message
	pending []models.Message

	seeded  bool
	nextSub int
	subs    map[int]chan models.ChatWebSocketMessage
}

// subscriberBuffer bounds each live feed. A subscriber that stops draining
// loses messages rather than stalling the conversation.
const subscriberBuffer = 64

func newConversationLog(matchID uuid.UUID) *conversationLog {
	return &conversationLog{
		matchID: matchID,
		subs:    make(map[int]chan models.ChatWebSocketMessage),
	}
}

// seed installs the durable backfill. Pending entries survive seeding, any
// that already landed in the backfill are collapsed by client tag.
func (l *conversationLog) seed(history []models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seeded {
		return
	}
	l.entries = append([]models.Message(nil), history...)
	sortEntries(l.entries)
	for _, e := range l.entries {
		l.dropPendingLocked(e.ClientTag)
	}
	l.seeded = true
}

func (l *conversationLog) isSeeded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seeded
}

// appendPending adds an optimistic local message to the tail of the view and
// echoes it to live subscribers.
func (l *conversationLog) appendPending(msg models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = append(l.pending, msg)
	l.broadcastLocked(messageEnvelope(msg))
}

// retract removes an optimistic message whose store write failed and tells
// subscribers to drop it.
func (l *conversationLog) retract(clientTag string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dropPendingLocked(clientTag) {
		l.broadcastLocked(retractEnvelope(l.matchID, clientTag))
	}
}

// commit folds a durable message into the entries tier. When the message is
// the echo of a pending local entry (matched by client tag) the pending copy
// is dropped, so the message moves tiers without ever appearing twice.
// Double delivery of the same durable id is absorbed.
func (l *conversationLog) commit(msg models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.ID == msg.ID {
			return
		}
	}
	l.dropPendingLocked(msg.ClientTag)

	i := sort.Search(len(l.entries), func(i int) bool {
		return entryLess(msg, l.entries[i])
	})
	l.entries = append(l.entries, models.Message{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = msg

	l.broadcastLocked(messageEnvelope(msg))
}

// snapshot returns the merged view: durable entries then the pending tail.
func (l *conversationLog) snapshot() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mergedLocked()
}

// subscribe registers a live feed and returns the snapshot taken under the
// same lock, so the caller sees every message exactly once: history up to the
// snapshot, the channel afterwards.
func (l *conversationLog) subscribe() (history []models.Message, ch <-chan models.ChatWebSocketMessage, cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	c := make(chan models.ChatWebSocketMessage, subscriberBuffer)
	l.subs[id] = c

	return l.mergedLocked(), c, func() { l.unsubscribe(id) }
}

func (l *conversationLog) unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.subs[id]; ok {
		delete(l.subs, id)
		close(c)
	}
}

// close notifies subscribers that the conversation ended and drops them.
func (l *conversationLog) close(env models.ChatWebSocketMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.broadcastLocked(env)
	for id, c := range l.subs {
		delete(l.subs, id)
		close(c)
	}
}

func (l *conversationLog) subscriberCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *conversationLog) mergedLocked() []models.Message {
	out := make([]models.Message, 0, len(l.entries)+len(l.pending))
	out = append(out, l.entries...)
	out = append(out, l.pending...)
	return out
}

func (l *conversationLog) dropPendingLocked(clientTag string) bool {
	if clientTag == "" {
		return false
	}
	for i, p := range l.pending {
		if p.ClientTag == clientTag {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (l *conversationLog) broadcastLocked(env models.ChatWebSocketMessage) {
	for _, c := range l.subs {
		select {
		case c <- env:
		default:
			// Slow consumer, skip rather than block the conversation.
		}
	}
}

// entryLess orders durable messages by creation time, store sequence breaking
// ties. Sender clocks are not trusted to be unique.
func entryLess(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

func sortEntries(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return entryLess(msgs[i], msgs[j])
	})
}
