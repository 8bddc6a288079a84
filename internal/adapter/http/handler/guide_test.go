package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/logger"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type fakeDirectory struct {
	all      []models.DiscoverableGuide
	covering []models.DiscoverableGuide

	coveredAt *geo.Coordinate
}

func (f *fakeDirectory) ListDiscoverable(ctx context.Context) []models.DiscoverableGuide {
	return f.all
}

func (f *fakeDirectory) CoveringGuides(ctx context.Context, point geo.Coordinate) []models.DiscoverableGuide {
	f.coveredAt = &point
	return f.covering
}

func (f *fakeDirectory) ResolveTap(ctx context.Context, guideID uuid.UUID) (models.DiscoverableGuide, error) {
	return models.DiscoverableGuide{}, nil
}

func discoverable(name string) models.DiscoverableGuide {
	return models.DiscoverableGuide{
		GuidePresence: models.GuidePresence{GuideID: uuid.MustNew(), Name: name, Active: true},
		Anchor:        geo.Coordinate{Lat: 43.2, Lng: 76.9},
	}
}

func TestGuideList_CoveringFilter(t *testing.T) {
	log := logger.InitLogger("handler-test", "error")
	dir := &fakeDirectory{
		all:      []models.DiscoverableGuide{discoverable("a"), discoverable("b")},
		covering: []models.DiscoverableGuide{discoverable("a")},
	}
	h := NewGuide(dir, nil, log)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/guides?covering=43.2,76.9", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if dir.coveredAt == nil || dir.coveredAt.Lat != 43.2 || dir.coveredAt.Lng != 76.9 {
		t.Fatalf("filter point = %+v, want 43.2,76.9", dir.coveredAt)
	}

	var body struct {
		Guides []models.DiscoverableGuide `json:"guides"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Guides) != 1 || body.Guides[0].Name != "a" {
		t.Fatalf("guides = %+v, want only the covering guide", body.Guides)
	}

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/guides", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Guides) != 2 {
		t.Fatalf("unfiltered list has %d guides, want 2", len(body.Guides))
	}
}

func TestGuideList_CoveringMalformed(t *testing.T) {
	log := logger.InitLogger("handler-test", "error")
	h := NewGuide(&fakeDirectory{}, nil, log)

	for _, raw := range []string{"43.2", "abc,76.9", "43.2,", "95,76.9", "43.2,181"} {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/guides?covering="+raw, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("covering=%q: status = %d, want %d", raw, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestParseCoveringPoint(t *testing.T) {
	got, err := parseCoveringPoint(" -12.5 , 100.25 ")
	if err != nil {
		t.Fatalf("parseCoveringPoint() error = %v", err)
	}
	if got.Lat != -12.5 || got.Lng != 100.25 {
		t.Fatalf("parseCoveringPoint() = %+v", got)
	}
}
