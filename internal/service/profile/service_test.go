package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/logger"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

/*=================fakes======================*/

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (r *fakeUserRepo) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) (*models.User, error) {
	cp := *user
	cp.UpdatedAt = time.Now()
	r.users[user.ID] = &cp
	out := cp
	return &out, nil
}

type fakeProfilePublisher struct {
	events []models.ProfileEvent
}

func (p *fakeProfilePublisher) PublishProfileChanged(ctx context.Context, ev models.ProfileEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type fakeSink struct {
	applied []models.ProfileEvent
}

func (s *fakeSink) Apply(ctx context.Context, ev models.ProfileEvent) {
	s.applied = append(s.applied, ev)
}

/*=================fixture======================*/

type profileFixture struct {
	svc       *ProfileService
	repo      *fakeUserRepo
	publisher *fakeProfilePublisher
	sink      *fakeSink
	guide     *models.User
	traveler  *models.User
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()

	guide := &models.User{ID: uuid.MustNew(), Name: "Aliya", Role: string(types.RoleGuide)}
	traveler := &models.User{ID: uuid.MustNew(), Name: "Tomas", Role: string(types.RoleTraveler)}

	repo := &fakeUserRepo{users: map[uuid.UUID]*models.User{
		guide.ID:    guide,
		traveler.ID: traveler,
	}}
	publisher := &fakeProfilePublisher{}
	sink := &fakeSink{}

	svc := NewProfileService(repo, publisher, sink, logger.InitLogger("profile-test", "error"))
	return &profileFixture{svc: svc, repo: repo, publisher: publisher, sink: sink, guide: guide, traveler: traveler}
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

/*=================tests======================*/

func TestUpdate_PartialEdit(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)

	got, err := f.svc.Update(ctx, f.guide, ProfileUpdate{
		Origin:  strptr("Almaty"),
		Comment: strptr("mountains and plov"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Origin != "Almaty" || got.Comment != "mountains and plov" {
		t.Errorf("updated profile = %+v", got)
	}
	if got.Name != "Aliya" {
		t.Errorf("untouched field changed: name = %q", got.Name)
	}

	// Every commit fans out locally and to the broker.
	if len(f.sink.applied) != 1 || len(f.publisher.events) != 1 {
		t.Errorf("fan-out: sink=%d broker=%d, want 1 and 1", len(f.sink.applied), len(f.publisher.events))
	}

	if _, err := f.svc.Update(ctx, f.guide, ProfileUpdate{Name: strptr("  ")}); err == nil {
		t.Error("Update() with blank name succeeded, want error")
	}
}

func TestUpdate_GuideModeRequiresGuideRole(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)

	if _, err := f.svc.Update(ctx, f.traveler, ProfileUpdate{GuideMode: boolptr(true)}); !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("traveler enabling guide mode error = %v, want ErrPermissionDenied", err)
	}
}

func TestSetPresence_NeedsAnchor(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)

	// No polygon, no location: cannot go discoverable.
	if _, err := f.svc.SetPresence(ctx, f.guide, true); !errors.Is(err, types.ErrIncompletePolygon) {
		t.Fatalf("SetPresence() without anchor error = %v, want ErrIncompletePolygon", err)
	}

	// Two vertices are still not a polygon.
	for _, v := range []geo.Coordinate{{Lat: 43, Lng: 76}, {Lat: 43, Lng: 77}} {
		if _, err := f.svc.AppendVertex(ctx, f.guide, v); err != nil {
			t.Fatalf("AppendVertex() error = %v", err)
		}
	}
	if _, err := f.svc.SetPresence(ctx, f.guide, true); !errors.Is(err, types.ErrIncompletePolygon) {
		t.Fatalf("SetPresence() with 2 vertices error = %v, want ErrIncompletePolygon", err)
	}

	// The third vertex completes the polygon.
	if _, err := f.svc.AppendVertex(ctx, f.guide, geo.Coordinate{Lat: 44, Lng: 76.5}); err != nil {
		t.Fatalf("AppendVertex() error = %v", err)
	}
	got, err := f.svc.SetPresence(ctx, f.guide, true)
	if err != nil {
		t.Fatalf("SetPresence() error = %v", err)
	}
	if !got.GuideMode {
		t.Error("guide mode not enabled")
	}

	// An explicit location alone is also a valid anchor.
	f.repo.users[f.guide.ID].Polygon = nil
	f.repo.users[f.guide.ID].GuideMode = false
	f.repo.users[f.guide.ID].Location = &geo.Coordinate{Lat: 43.2, Lng: 76.9}
	if _, err := f.svc.SetPresence(ctx, f.guide, true); err != nil {
		t.Errorf("SetPresence() with location error = %v", err)
	}
}

func TestSetPresence_TravelerDenied(t *testing.T) {
	f := newProfileFixture(t)
	if _, err := f.svc.SetPresence(context.Background(), f.traveler, true); !errors.Is(err, types.ErrPermissionDenied) {
		t.Fatalf("traveler SetPresence() error = %v, want ErrPermissionDenied", err)
	}
}

func TestPolygonEditing(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)

	verts := []geo.Coordinate{{Lat: 43, Lng: 76}, {Lat: 43, Lng: 77}, {Lat: 44, Lng: 76.5}}
	for _, v := range verts {
		if _, err := f.svc.AppendVertex(ctx, f.guide, v); err != nil {
			t.Fatalf("AppendVertex() error = %v", err)
		}
	}

	got, err := f.svc.UndoVertex(ctx, f.guide)
	if err != nil {
		t.Fatalf("UndoVertex() error = %v", err)
	}
	if len(got.Polygon) != 2 || got.Polygon[1] != verts[1] {
		t.Errorf("polygon after undo = %+v, want first two vertices", got.Polygon)
	}

	// Undo below zero is a no-op.
	if _, err := f.svc.UndoVertex(ctx, f.guide); err != nil {
		t.Fatalf("UndoVertex() error = %v", err)
	}
	got, err = f.svc.UndoVertex(ctx, f.guide)
	if err != nil {
		t.Fatalf("UndoVertex() error = %v", err)
	}
	if len(got.Polygon) != 0 {
		t.Errorf("polygon = %+v, want empty", got.Polygon)
	}
	if _, err := f.svc.UndoVertex(ctx, f.guide); err != nil {
		t.Errorf("UndoVertex() on empty polygon error = %v", err)
	}

	for _, v := range verts {
		if _, err := f.svc.AppendVertex(ctx, f.guide, v); err != nil {
			t.Fatalf("AppendVertex() error = %v", err)
		}
	}
	got, err = f.svc.ClearPolygon(ctx, f.guide)
	if err != nil {
		t.Fatalf("ClearPolygon() error = %v", err)
	}
	if len(got.Polygon) != 0 {
		t.Errorf("polygon after clear = %+v, want empty", got.Polygon)
	}

	if _, err := f.svc.AppendVertex(ctx, f.traveler, verts[0]); !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("traveler AppendVertex() error = %v, want ErrPermissionDenied", err)
	}
}

func TestUpdate_ClearLocation(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)

	loc := geo.Coordinate{Lat: 43.2, Lng: 76.9}
	got, err := f.svc.Update(ctx, f.guide, ProfileUpdate{Location: &loc})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Location == nil || *got.Location != loc {
		t.Fatalf("location = %+v, want %+v", got.Location, loc)
	}

	got, err = f.svc.Update(ctx, f.guide, ProfileUpdate{ClearLocation: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Location != nil {
		t.Errorf("location = %+v, want nil after clear", got.Location)
	}
}
