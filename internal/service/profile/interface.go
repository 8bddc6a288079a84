package profile

import (
	"context"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

/*=================User Repository======================*/

type UserRepo interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

/*=================Broker===============================*/

type ProfilePublisher interface {
	PublishProfileChanged(ctx context.Context, ev models.ProfileEvent) error
}

/*=================DTO==================================*/

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name      *string         `json:"name,omitempty"`
	Origin    *string         `json:"origin,omitempty"`
	Comment   *string         `json:"comment,omitempty"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	GuideMode *bool           `json:"guide_mode,omitempty"`
	Polygon   *geo.Polygon    `json:"polygon,omitempty"`
	Location  *geo.Coordinate `json:"location,omitempty"`

	// ClearLocation drops the explicit marker location so the anchor falls
	// back to the polygon centroid.
	ClearLocation bool `json:"clear_location,omitempty"`
}
