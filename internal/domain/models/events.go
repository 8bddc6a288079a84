package models

import (
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

/* ======================= broker payloads ======================= */

// MatchStatusMessage rides the match.status.{STATUS} routing keys.
type MatchStatusMessage struct {
	MatchID   uuid.UUID         `json:"match_id"`
	TouristID uuid.UUID         `json:"tourist_id"`
	GuideID   uuid.UUID         `json:"guide_id"`
	OldStatus types.MatchStatus `json:"old_status,omitempty"`
	NewStatus types.MatchStatus `json:"new_status"`
	Timestamp time.Time         `json:"timestamp"`
}

// ChatMessageBroadcast rides the chat.message routing key. It carries the
// durable message so every consumer sees store-assigned id and seq.
type ChatMessageBroadcast struct {
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

/* ======================= audit trail ======================= */

// MatchEventRecord is one row of the append-only lifecycle history.
type MatchEventRecord struct {
	ID        uuid.UUID         `json:"id"`
	MatchID   uuid.UUID         `json:"match_id"`
	ActorID   uuid.UUID         `json:"actor_id"`
	Event     types.MatchEvent  `json:"event"`
	OldStatus types.MatchStatus `json:"old_status,omitempty"`
	NewStatus types.MatchStatus `json:"new_status,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
