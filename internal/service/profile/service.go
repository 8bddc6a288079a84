package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// ProfileService handles account profile edits and guide presence. Every
// committed change is folded into the local directory and published so other
// replicas converge.
type ProfileService struct {
	repo      UserRepo
	publisher ProfilePublisher
	directory DirectorySink
	logger    logger.Logger
}

// DirectorySink receives committed profile changes, usually the live
// directory projection of this process.
type DirectorySink interface {
	Apply(ctx context.Context, ev models.ProfileEvent)
}

func NewProfileService(repo UserRepo, publisher ProfilePublisher, directory DirectorySink, logger logger.Logger) *ProfileService {
	return &ProfileService{
		repo:      repo,
		publisher: publisher,
		directory: directory,
		logger:    logger,
	}
}

// Get returns the caller's own profile.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "get_profile")

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user == nil {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}
	return user, nil
}

// Update applies a partial profile edit. An incomplete polygon (1 or 2
// vertices) may be saved, it just keeps the guide out of discovery until a
// third vertex arrives.
func (s *ProfileService) Update(ctx context.Context, actor *models.User, upd ProfileUpdate) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "update_profile")

	user, err := s.repo.Get(ctx, actor.ID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user == nil {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, wrap.Error(ctx, fmt.Errorf("name cannot be blank"))
		}
		user.Name = name
	}
	if upd.Origin != nil {
		user.Origin = *upd.Origin
	}
	if upd.Comment != nil {
		user.Comment = *upd.Comment
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = *upd.AvatarURL
	}
	if upd.GuideMode != nil {
		if *upd.GuideMode && user.Role != string(types.RoleGuide) {
			return nil, wrap.Error(ctx, types.ErrPermissionDenied)
		}
		user.GuideMode = *upd.GuideMode
	}
	if upd.Polygon != nil {
		user.Polygon = *upd.Polygon
	}
	if upd.ClearLocation {
		user.Location = nil
	} else if upd.Location != nil {
		loc := *upd.Location
		user.Location = &loc
	}

	return s.commit(ctx, user)
}

// SetPresence is the guide-mode toggle: it requires a usable anchor before a
// guide can go discoverable, so travelers never see a marker-less guide.
func (s *ProfileService) SetPresence(ctx context.Context, actor *models.User, active bool) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "set_presence")

	if actor.Role != string(types.RoleGuide) {
		return nil, wrap.Error(ctx, types.ErrPermissionDenied)
	}

	user, err := s.repo.Get(ctx, actor.ID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user == nil {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	if active && user.Location == nil && !user.Polygon.Complete() {
		return nil, wrap.Error(ctx, types.ErrIncompletePolygon)
	}
	user.GuideMode = active

	return s.commit(ctx, user)
}

// AppendVertex adds one vertex to the coverage polygon.
func (s *ProfileService) AppendVertex(ctx context.Context, actor *models.User, vertex geo.Coordinate) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "append_polygon_vertex")
	return s.editPolygon(ctx, actor, func(p geo.Polygon) geo.Polygon {
		return p.Append(vertex)
	})
}

// UndoVertex removes the most recently added vertex.
func (s *ProfileService) UndoVertex(ctx context.Context, actor *models.User) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "undo_polygon_vertex")
	return s.editPolygon(ctx, actor, func(p geo.Polygon) geo.Polygon {
		return p.UndoLast()
	})
}

// ClearPolygon drops the whole coverage polygon.
func (s *ProfileService) ClearPolygon(ctx context.Context, actor *models.User) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "clear_polygon")
	return s.editPolygon(ctx, actor, func(p geo.Polygon) geo.Polygon {
		return p.Clear()
	})
}

func (s *ProfileService) editPolygon(ctx context.Context, actor *models.User, edit func(geo.Polygon) geo.Polygon) (*models.User, error) {
	if actor.Role != string(types.RoleGuide) {
		return nil, wrap.Error(ctx, types.ErrPermissionDenied)
	}

	user, err := s.repo.Get(ctx, actor.ID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user == nil {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	user.Polygon = edit(user.Polygon)
	return s.commit(ctx, user)
}

// commit writes the profile and fans the change out: first to the local
// directory for read-your-writes, then to the broker for everyone else.
func (s *ProfileService) commit(ctx context.Context, user *models.User) (*models.User, error) {
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not update profile: %w", err))
	}

	ev := models.ProfileEventFromUser(updated)
	if s.directory != nil {
		s.directory.Apply(ctx, ev)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishProfileChanged(ctx, ev); err != nil {
			s.logger.Error(ctx, "failed to publish profile change", err, "user_id", updated.ID)
		}
	}
	return updated, nil
}
