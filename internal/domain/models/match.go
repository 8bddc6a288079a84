package models

import (
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// MatchRequest is one traveler's request for one guide. Never deleted; the
// lifecycle only moves Status forward and stamps UpdatedAt.
type MatchRequest struct {
	ID        uuid.UUID         `json:"id"`
	TouristID uuid.UUID         `json:"tourist_id"`
	GuideID   uuid.UUID         `json:"guide_id"`
	Status    types.MatchStatus `json:"status"`
	Date      string            `json:"date"`      // yyyy-mm-dd
	TimeSlot  string            `json:"time_slot"` // e.g. "10:00-15:00"
	Notes     string            `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Participant reports whether id is one of the two parties of the request.
func (m *MatchRequest) Participant(id uuid.UUID) bool {
	return id == m.TouristID || id == m.GuideID
}

// Counterparty returns the other side of the request relative to id.
func (m *MatchRequest) Counterparty(id uuid.UUID) uuid.UUID {
	if id == m.TouristID {
		return m.GuideID
	}
	return m.TouristID
}

type MatchCreateRequest struct {
	GuideID  uuid.UUID `json:"guide_id"`
	Date     string    `json:"date"`
	TimeSlot string    `json:"time_slot"`
	Notes    string    `json:"notes"`
}
