package matching

import (
	"context"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

/*=================Match Repository======================*/

type MatchRepo interface {
	Create(ctx context.Context, m *models.MatchRequest) (*models.MatchRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MatchRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.MatchRequest, error)
	HasOpenRequest(ctx context.Context, touristID, guideID uuid.UUID) (bool, error)

	// SetStatus moves id from old to new and reports whether a row changed.
	// false with nil error means another writer got there first.
	SetStatus(ctx context.Context, id uuid.UUID, old, new types.MatchStatus) (bool, error)
}

/*=================Lifecycle Event Log===================*/

type EventRepo interface {
	Append(ctx context.Context, rec *models.MatchEventRecord) error
}

/*=================Guide Resolver========================*/

// GuideResolver answers whether a guide is currently discoverable. Backed by
// the live directory projection, not the account store.
type GuideResolver interface {
	ResolveTap(ctx context.Context, guideID uuid.UUID) (models.DiscoverableGuide, error)
}

/*=================Broker================================*/

type StatusPublisher interface {
	PublishMatchStatus(ctx context.Context, msg models.MatchStatusMessage) error
}
