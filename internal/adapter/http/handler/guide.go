package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type GuideDirectory interface {
	ListDiscoverable(ctx context.Context) []models.DiscoverableGuide
	CoveringGuides(ctx context.Context, point geo.Coordinate) []models.DiscoverableGuide
	ResolveTap(ctx context.Context, guideID uuid.UUID) (models.DiscoverableGuide, error)
}

type RatingSource interface {
	GuideRating(ctx context.Context, guideID uuid.UUID) (avg float64, count int, err error)
}

type Guide struct {
	directory GuideDirectory
	ratings   RatingSource
	l         logger.Logger
}

func NewGuide(directory GuideDirectory, ratings RatingSource, l logger.Logger) *Guide {
	return &Guide{
		directory: directory,
		ratings:   ratings,
		l:         l,
	}
}

// List godoc
// @Summary      Discoverable guides
// @Description  Every active guide with a usable map anchor. With covering=lat,lng only guides whose polygon contains the point are returned.
// @Tags         Guides
// @Produce      json
// @Param        covering query string false "Filter point, lat,lng"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Security     BearerAuth
// @Router       /guides [get]
func (h *Guide) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_guides")

	var guides []models.DiscoverableGuide
	if raw := r.URL.Query().Get("covering"); raw != "" {
		point, err := parseCoveringPoint(raw)
		if err != nil {
			badRequestResponse(w, "covering must be lat,lng with lat in [-90,90] and lng in [-180,180]")
			return
		}
		guides = h.directory.CoveringGuides(ctx, point)
	} else {
		guides = h.directory.ListDiscoverable(ctx)
	}

	response := envelope{"guides": guides}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

var errMalformedPoint = errors.New("malformed covering point")

func parseCoveringPoint(raw string) (geo.Coordinate, error) {
	lat, lng, ok := strings.Cut(raw, ",")
	if !ok {
		return geo.Coordinate{}, errMalformedPoint
	}

	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.Coordinate{}, errMalformedPoint
	}
	lngF, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return geo.Coordinate{}, errMalformedPoint
	}
	if latF < -90 || latF > 90 || lngF < -180 || lngF > 180 {
		return geo.Coordinate{}, errMalformedPoint
	}
	return geo.Coordinate{Lat: latF, Lng: lngF}, nil
}

// Get godoc
// @Summary      Guide detail
// @Description  Presence card plus the aggregated review rating
// @Tags         Guides
// @Produce      json
// @Param        guide_id path string true "Guide ID"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /guides/{guide_id} [get]
func (h *Guide) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_guide")

	guideID, err := uuid.Parse(r.PathValue("guide_id"))
	if err != nil {
		badRequestResponse(w, "invalid guide uuid format")
		return
	}

	guide, err := h.directory.ResolveTap(ctx, guideID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to resolve guide", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{"guide": guide}
	if h.ratings != nil {
		avg, count, err := h.ratings.GuideRating(ctx, guideID)
		if err != nil {
			// The card is still useful without the rating.
			h.l.Warn(ctx, "failed to load guide rating", "guide_id", guideID, "err", err.Error())
		} else {
			response["rating"] = envelope{"average": avg, "count": count}
		}
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
