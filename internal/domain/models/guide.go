package models

import (
	"time"

	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// GuidePresence is the directory's view of one guide: who they are, whether
// they are taking requests, and where their marker should sit. Owned by the
// guide; read by every traveler.
type GuidePresence struct {
	GuideID   uuid.UUID       `json:"guide_id"`
	Name      string          `json:"name"`
	Active    bool            `json:"active"`
	Polygon   geo.Polygon     `json:"polygon,omitempty"`
	Location  *geo.Coordinate `json:"location,omitempty"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Anchor resolves the marker coordinate: the explicit location when set,
// otherwise the centroid of a complete coverage polygon. ok=false means the
// guide has no usable anchor and must not be listed.
func (p GuidePresence) Anchor() (geo.Coordinate, bool) {
	if p.Location != nil {
		return *p.Location, true
	}
	if p.Polygon.Complete() {
		return p.Polygon.Centroid(), true
	}
	return geo.Coordinate{}, false
}

// DiscoverableGuide pairs a presence with its resolved anchor for listing.
type DiscoverableGuide struct {
	GuidePresence
	Anchor geo.Coordinate `json:"anchor"`
}

// ProfileEvent is the raw profile-store change event the directory consumes.
// Role is carried so the directory can drop presences when an account stops
// being a guide.
type ProfileEvent struct {
	UserID    uuid.UUID       `json:"user_id"`
	Role      string          `json:"role"`
	Name      string          `json:"name"`
	Active    bool            `json:"active"`
	Polygon   geo.Polygon     `json:"polygon,omitempty"`
	Location  *geo.Coordinate `json:"location,omitempty"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProfileEventFromUser projects an account row into a change event.
func ProfileEventFromUser(u *User) ProfileEvent {
	return ProfileEvent{
		UserID:    u.ID,
		Role:      u.Role,
		Name:      u.Name,
		Active:    u.GuideMode,
		Polygon:   u.Polygon,
		Location:  u.Location,
		AvatarURL: u.AvatarURL,
		UpdatedAt: u.UpdatedAt,
	}
}
