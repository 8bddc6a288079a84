package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// Directory is the live in-memory projection of guide presences. It is fed
// by profile change events and answers traveler-side discovery reads.
// Listing filters at read time, so a guide flipping active off disappears on
// the next read without any recompute step.
type Directory struct {
	mu     sync.RWMutex
	guides map[uuid.UUID]models.GuidePresence
	logger logger.Logger
}

func New(logger logger.Logger) *Directory {
	return &Directory{
		guides: make(map[uuid.UUID]models.GuidePresence),
		logger: logger,
	}
}

// Apply folds one profile change event into the projection. Events for
// non-guide accounts remove any stale presence. Out-of-order events are
// dropped by the UpdatedAt check so a late stale update cannot overwrite a
// newer presence.
func (d *Directory) Apply(ctx context.Context, ev models.ProfileEvent) {
	ctx = wrap.WithAction(ctx, "directory_apply")

	d.mu.Lock()
	defer d.mu.Unlock()

	if ev.Role != string(types.RoleGuide) {
		if _, ok := d.guides[ev.UserID]; ok {
			delete(d.guides, ev.UserID)
			d.logger.Debug(ctx, "removed presence, account is not a guide", "guide_id", ev.UserID)
		}
		d.updateGaugeLocked()
		return
	}

	if prev, ok := d.guides[ev.UserID]; ok && ev.UpdatedAt.Before(prev.UpdatedAt) {
		d.logger.Debug(ctx, "dropped stale presence event", "guide_id", ev.UserID)
		return
	}

	d.guides[ev.UserID] = models.GuidePresence{
		GuideID:   ev.UserID,
		Name:      ev.Name,
		Active:    ev.Active,
		Polygon:   ev.Polygon,
		Location:  ev.Location,
		AvatarURL: ev.AvatarURL,
		UpdatedAt: ev.UpdatedAt,
	}
	d.updateGaugeLocked()
}

// ListDiscoverable returns every guide that is active and has a resolvable
// anchor, sorted by name for a stable listing order.
func (d *Directory) ListDiscoverable(ctx context.Context) []models.DiscoverableGuide {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.DiscoverableGuide, 0, len(d.guides))
	for _, p := range d.guides {
		if !p.Active {
			continue
		}
		anchor, ok := p.Anchor()
		if !ok {
			continue
		}
		out = append(out, models.DiscoverableGuide{GuidePresence: p, Anchor: anchor})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].GuideID.String() < out[j].GuideID.String()
	})
	return out
}

// ResolveTap returns the single guide behind a tapped marker. Discoverability
// is re-checked at tap time, since the marker may be stale on the client.
func (d *Directory) ResolveTap(ctx context.Context, guideID uuid.UUID) (models.DiscoverableGuide, error) {
	ctx = wrap.WithAction(ctx, "directory_resolve_tap")

	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.guides[guideID]
	if !ok || !p.Active {
		return models.DiscoverableGuide{}, wrap.Error(ctx, types.ErrGuideNotFound)
	}
	anchor, ok := p.Anchor()
	if !ok {
		return models.DiscoverableGuide{}, wrap.Error(ctx, types.ErrGuideNotFound)
	}
	return models.DiscoverableGuide{GuidePresence: p, Anchor: anchor}, nil
}

// CoveringGuides returns discoverable guides whose coverage polygon contains
// the point. Guides anchored by explicit location but with an incomplete
// polygon never match, the polygon is the only coverage source.
func (d *Directory) CoveringGuides(ctx context.Context, point geo.Coordinate) []models.DiscoverableGuide {
	out := d.ListDiscoverable(ctx)
	covered := out[:0]
	for _, g := range out {
		if g.Polygon.Contains(point) {
			covered = append(covered, g)
		}
	}
	return covered
}

func (d *Directory) updateGaugeLocked() {
	n := 0
	for _, p := range d.guides {
		if !p.Active {
			continue
		}
		if _, ok := p.Anchor(); ok {
			n++
		}
	}
	metrics.DiscoverableGuidesGauge.WithLabelValues("directory").Set(float64(n))
}
