package models

import (
	"context"
	"time"

	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type UserCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// User is an account. Guide-only fields (Polygon, Location, GuideMode) are
// empty for travelers; the profile photo is an opaque URL handed out by the
// external blob store, never the bytes.
type User struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	passwordHash string          `json:"-"`
	Role         string          `json:"role"`
	Origin       string          `json:"origin,omitempty"`
	Comment      string          `json:"comment,omitempty"`
	AvatarURL    string          `json:"avatar_url,omitempty"`
	GuideMode    bool            `json:"guide_mode,omitempty"`
	Polygon      geo.Polygon     `json:"polygon,omitempty"`
	Location     *geo.Coordinate `json:"location,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at,omitzero"`
}

func (u *User) GetPasswordHash() string {
	return u.passwordHash
}

func (u *User) SetPasswordHash(hash string) {
	u.passwordHash = hash
}

// AnonymousUser is the identity attached to requests without credentials.
func AnonymousUser() *User {
	return &User{}
}

func (u *User) IsAnonymous() bool {
	return u == nil || u.ID.IsZero()
}

type userCtxKey struct{}

// WithUser stores the authenticated user in the context.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}
