package models

import (
	"time"

	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// Review is the traveler's rating for a finished match. MatchID links the
// review back to the request so "was this request reviewed" is answerable
// from stored data.
type Review struct {
	ID        uuid.UUID `json:"id"`
	MatchID   uuid.UUID `json:"match_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"` // 1..5
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewPrompt is one pending "please review this match" surface for a viewer.
type ReviewPrompt struct {
	MatchID   uuid.UUID `json:"match_id"`
	GuideID   uuid.UUID `json:"guide_id"`
	GuideName string    `json:"guide_name,omitempty"`
	Date      string    `json:"date"`
	TimeSlot  string    `json:"time_slot"`
}
