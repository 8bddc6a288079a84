package handler

import (
	"context"
	"net/http"

	"github.com/torimichi/guide-match-system/internal/adapter/http/handler/dto"
	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/uuid"
	"github.com/torimichi/guide-match-system/pkg/validator"
)

type MatchingService interface {
	Create(ctx context.Context, touristID uuid.UUID, req models.MatchCreateRequest) (*models.MatchRequest, error)
	Get(ctx context.Context, viewer *models.User, matchID uuid.UUID) (*models.MatchRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.MatchRequest, error)
	Accept(ctx context.Context, actor *models.User, matchID uuid.UUID) (*models.MatchRequest, error)
	Reject(ctx context.Context, actor *models.User, matchID uuid.UUID) (*models.MatchRequest, error)
	End(ctx context.Context, actor *models.User, matchID uuid.UUID) (*models.MatchRequest, error)
}

type Match struct {
	service MatchingService
	l       logger.Logger
}

func NewMatch(service MatchingService, l logger.Logger) *Match {
	return &Match{
		service: service,
		l:       l,
	}
}

// Create godoc
// @Summary      Request a guide
// @Description  Opens a PENDING match request toward a discoverable guide
// @Tags         Matches
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateMatchRequest true "Request details"
// @Success      201  {object}  map[string]any
// @Security     BearerAuth
// @Router       /matches [post]
func (h *Match) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_match_request")

	req := &dto.CreateMatchRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	create, err := req.ToModel()
	if err != nil {
		badRequestResponse(w, "invalid guide uuid format")
		return
	}

	actor := models.UserFromContext(ctx)
	match, err := h.service.Create(ctx, actor.ID, create)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create match request", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusCreated, match)
}

// List returns every match request the caller participates in, newest first.
func (h *Match) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_match_requests")

	actor := models.UserFromContext(ctx)
	matches, err := h.service.ListForUser(ctx, actor.ID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list match requests", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"matches": matches}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Get returns a single match request, participants only.
func (h *Match) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_match_request")

	matchID, ok := h.pathMatchID(w, r)
	if !ok {
		return
	}

	actor := models.UserFromContext(ctx)
	match, err := h.service.Get(ctx, actor, matchID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get match request", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, match)
}

// Accept godoc
// @Summary      Accept a pending request
// @Tags         Matches
// @Produce      json
// @Param        match_id path string true "Match ID"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /matches/{match_id}/accept [post]
func (h *Match) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "accept_match_request")
	h.transition(ctx, w, r, h.service.Accept)
}

// Reject godoc
// @Summary      Reject a pending request
// @Tags         Matches
// @Produce      json
// @Param        match_id path string true "Match ID"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /matches/{match_id}/reject [post]
func (h *Match) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "reject_match_request")
	h.transition(ctx, w, r, h.service.Reject)
}

// End godoc
// @Summary      End an accepted match
// @Description  Moves the match to REVIEW_WAIT and closes its conversation
// @Tags         Matches
// @Produce      json
// @Param        match_id path string true "Match ID"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /matches/{match_id}/end [post]
func (h *Match) End(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "end_match_request")
	h.transition(ctx, w, r, h.service.End)
}

func (h *Match) transition(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, *models.User, uuid.UUID) (*models.MatchRequest, error),
) {
	matchID, ok := h.pathMatchID(w, r)
	if !ok {
		return
	}

	actor := models.UserFromContext(ctx)
	match, err := fn(ctx, actor, matchID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to change match status", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, match)
}

func (h *Match) pathMatchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	matchID, err := uuid.Parse(r.PathValue("match_id"))
	if err != nil {
		badRequestResponse(w, "invalid match uuid format")
		return uuid.UUID{}, false
	}
	return matchID, true
}

func (h *Match) respond(ctx context.Context, w http.ResponseWriter, status int, match *models.MatchRequest) {
	if err := writeJSON(w, status, envelope{"match": match}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
