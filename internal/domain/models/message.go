package models

import (
	"time"

	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// Message is one chat entry. ID and Seq are assigned by the store on insert;
// Seq is the per-conversation arrival order and breaks CreatedAt ties, since
// the two participants' clocks are not assumed synchronized. ClientTag is the
// sender-generated tag that lets an optimistic local copy collapse onto its
// durable echo.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Seq       int64     `json:"seq"`
	MatchID   uuid.UUID `json:"match_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	ClientTag string    `json:"client_tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Pending reports whether the message is still an optimistic local entry
// awaiting its durable id.
func (m Message) Pending() bool {
	return m.ID.IsZero()
}
