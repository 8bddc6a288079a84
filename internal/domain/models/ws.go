package models

import "github.com/torimichi/guide-match-system/internal/domain/types"

type ChatWebSocketMessage struct {
	EventType types.MatchEvent `json:"event_type"`
	Data      any              `json:"data"`
}
