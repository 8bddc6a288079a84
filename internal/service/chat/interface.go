package chat

import (
	"context"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

/*=================Message Repository======================*/

type MessageRepo interface {
	// Insert persists the message and returns it with store-assigned
	// identity: id, seq and created_at.
	Insert(ctx context.Context, msg *models.Message) (*models.Message, error)
	ListByMatch(ctx context.Context, matchID uuid.UUID) ([]models.Message, error)
}

/*=================Match Gate==============================*/

// MatchGate answers whether a conversation accepts writes and who may read
// it. Backed by the matching service.
type MatchGate interface {
	ChatOpen(ctx context.Context, matchID uuid.UUID) (*models.MatchRequest, error)
	Get(ctx context.Context, viewer *models.User, matchID uuid.UUID) (*models.MatchRequest, error)
}

/*=================Broker==================================*/

type MessagePublisher interface {
	PublishChatMessage(ctx context.Context, msg models.ChatMessageBroadcast) error
}
