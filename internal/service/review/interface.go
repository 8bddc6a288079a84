package review

import (
	"context"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

/*=================Review Repository======================*/

type ReviewRepo interface {
	Insert(ctx context.Context, r *models.Review) (*models.Review, error)
	ExistsForMatch(ctx context.Context, matchID, userID uuid.UUID) (bool, error)
	ListByGuide(ctx context.Context, guideID uuid.UUID) ([]models.Review, error)
}

/*=================Match Source===========================*/

type MatchSource interface {
	Get(ctx context.Context, viewer *models.User, matchID uuid.UUID) (*models.MatchRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.MatchRequest, error)
}

/*=================User Lookup============================*/

type UserGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}
