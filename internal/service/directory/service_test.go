package directory

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

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	return New(logger.InitLogger("directory-test", "error"))
}

func squareAround(c geo.Coordinate, half float64) geo.Polygon {
	return geo.Polygon{
		{Lat: c.Lat - half, Lng: c.Lng - half},
		{Lat: c.Lat - half, Lng: c.Lng + half},
		{Lat: c.Lat + half, Lng: c.Lng + half},
		{Lat: c.Lat + half, Lng: c.Lng - half},
	}
}

func guideEvent(id uuid.UUID, name string, active bool, at time.Time) models.ProfileEvent {
	return models.ProfileEvent{
		UserID:    id,
		Role:      string(types.RoleGuide),
		Name:      name,
		Active:    active,
		Polygon:   squareAround(geo.Coordinate{Lat: 43.2, Lng: 76.9}, 0.5),
		UpdatedAt: at,
	}
}

func TestListDiscoverable_FiltersAtReadTime(t *testing.T) {
	ctx := context.Background()
	d := testDirectory(t)
	now := time.Now()

	aliya := uuid.MustNew()
	bek := uuid.MustNew()
	dana := uuid.MustNew()

	d.Apply(ctx, guideEvent(aliya, "Aliya", true, now))
	d.Apply(ctx, guideEvent(bek, "Bek", false, now))

	// Active but with neither a location nor a complete polygon.
	d.Apply(ctx, models.ProfileEvent{
		UserID:    dana,
		Role:      string(types.RoleGuide),
		Name:      "Dana",
		Active:    true,
		Polygon:   geo.Polygon{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}},
		UpdatedAt: now,
	})

	got := d.ListDiscoverable(ctx)
	if len(got) != 1 || got[0].GuideID != aliya {
		t.Fatalf("ListDiscoverable() = %+v, want only Aliya", got)
	}

	// Flipping active off hides the guide on the next read.
	d.Apply(ctx, guideEvent(aliya, "Aliya", false, now.Add(time.Second)))
	if got := d.ListDiscoverable(ctx); len(got) != 0 {
		t.Fatalf("after deactivation ListDiscoverable() = %+v, want empty", got)
	}
}

func TestListDiscoverable_AnchorPrefersLocation(t *testing.T) {
	ctx := context.Background()
	d := testDirectory(t)
	id := uuid.MustNew()

	ev := guideEvent(id, "Aliya", true, time.Now())
	ev.Location = &geo.Coordinate{Lat: 51.1, Lng: 71.4}
	d.Apply(ctx, ev)

	got := d.ListDiscoverable(ctx)
	if len(got) != 1 {
		t.Fatalf("ListDiscoverable() returned %d guides, want 1", len(got))
	}
	if got[0].Anchor != *ev.Location {
		t.Errorf("anchor = %+v, want explicit location %+v", got[0].Anchor, *ev.Location)
	}

	// Without a location the anchor falls back to the polygon centroid.
	ev.Location = nil
	ev.UpdatedAt = ev.UpdatedAt.Add(time.Second)
	d.Apply(ctx, ev)

	got = d.ListDiscoverable(ctx)
	want := ev.Polygon.Centroid()
	if len(got) != 1 || got[0].Anchor != want {
		t.Errorf("anchor = %+v, want centroid %+v", got[0].Anchor, want)
	}
}

func TestApply_StaleEventDropped(t *testing.T) {
	ctx := context.Background()
	d := testDirectory(t)
	id := uuid.MustNew()
	now := time.Now()

	d.Apply(ctx, guideEvent(id, "Aliya Renamed", true, now))
	d.Apply(ctx, guideEvent(id, "Aliya", true, now.Add(-time.Minute)))

	got := d.ListDiscoverable(ctx)
	if len(got) != 1 || got[0].Name != "Aliya Renamed" {
		t.Fatalf("stale event overwrote presence: %+v", got)
	}
}

func TestApply_RoleChangeRemovesPresence(t *testing.T) {
	ctx := context.Background()
	d := testDirectory(t)
	id := uuid.MustNew()
	now := time.Now()

	d.Apply(ctx, guideEvent(id, "Aliya", true, now))

	ev := guideEvent(id, "Aliya", true, now.Add(time.Second))
	ev.Role = string(types.RoleTraveler)
	d.Apply(ctx, ev)

	if got := d.ListDiscoverable(ctx); len(got) != 0 {
		t.Fatalf("presence survived role change: %+v", got)
	}
	if _, err := d.ResolveTap(ctx, id); !errors.Is(err, types.ErrGuideNotFound) {
		t.Errorf("ResolveTap() error = %v, want ErrGuideNotFound", err)
	}
}

func TestResolveTap(t *testing.T) {
	ctx := context.Background()
	d := testDirectory(t)
	id := uuid.MustNew()
	now := time.Now()

	if _, err := d.ResolveTap(ctx, id); !errors.Is(err, types.ErrGuideNotFound) {
		t.Fatalf("ResolveTap() on empty directory error = %v, want ErrGuideNotFound", err)
	}

	d.Apply(ctx, guideEvent(id, "Aliya", true, now))
	got, err := d.ResolveTap(ctx, id)
	if err != nil {
		t.Fatalf("ResolveTap() error = %v", err)
	}
	if got.GuideID != id {
		t.Errorf("ResolveTap() guide = %v, want %v", got.GuideID, id)
	}

	d.Apply(ctx, guideEvent(id, "Aliya", false, now.Add(time.Second)))
	if _, err := d.ResolveTap(ctx, id); !errors.Is(err, types.ErrGuideNotFound) {
		t.Errorf("ResolveTap() on inactive guide error = %v, want ErrGuideNotFound", err)
	}
}

func TestCoveringGuides(t *testing.T) {
	ctx := context.Background()
	d := testDirectory(t)
	now := time.Now()

	inside := uuid.MustNew()
	outside := uuid.MustNew()

	evIn := guideEvent(inside, "Covers", true, now)
	evIn.Polygon = squareAround(geo.Coordinate{Lat: 43.2, Lng: 76.9}, 0.5)
	d.Apply(ctx, evIn)

	evOut := guideEvent(outside, "Elsewhere", true, now)
	evOut.Polygon = squareAround(geo.Coordinate{Lat: 51.1, Lng: 71.4}, 0.5)
	d.Apply(ctx, evOut)

	got := d.CoveringGuides(ctx, geo.Coordinate{Lat: 43.2, Lng: 76.9})
	if len(got) != 1 || got[0].GuideID != inside {
		t.Fatalf("CoveringGuides() = %+v, want only the covering guide", got)
	}
}
