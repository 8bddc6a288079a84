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

type ReviewService interface {
	Prompts(ctx context.Context, viewer *models.User) ([]models.ReviewPrompt, error)
	Submit(ctx context.Context, viewer *models.User, matchID uuid.UUID, rating int, text string) (*models.Review, error)
	Dismiss(ctx context.Context, viewer *models.User, matchID uuid.UUID) error
}

type Review struct {
	service ReviewService
	l       logger.Logger
}

func NewReview(service ReviewService, l logger.Logger) *Review {
	return &Review{
		service: service,
		l:       l,
	}
}

// Prompts godoc
// @Summary      Outstanding review prompts
// @Description  Finished matches the caller has not reviewed or dismissed yet
// @Tags         Reviews
// @Produce      json
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /reviews/prompts [get]
func (h *Review) Prompts(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_review_prompts")

	viewer := models.UserFromContext(ctx)
	prompts, err := h.service.Prompts(ctx, viewer)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list review prompts", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"prompts": prompts}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Submit godoc
// @Summary      Submit a review
// @Tags         Reviews
// @Accept       json
// @Produce      json
// @Param        request body dto.SubmitReviewRequest true "Review"
// @Success      201  {object}  map[string]any
// @Security     BearerAuth
// @Router       /reviews [post]
func (h *Review) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "submit_review")

	req := &dto.SubmitReviewRequest{}
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

	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		badRequestResponse(w, "invalid match uuid format")
		return
	}

	viewer := models.UserFromContext(ctx)
	review, err := h.service.Submit(ctx, viewer, matchID, req.Rating, req.Review)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to submit review", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"review": review}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Dismiss hides a prompt for the rest of the session. The match stays
// reviewable through Submit.
func (h *Review) Dismiss(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "dismiss_review_prompt")

	matchID, err := uuid.Parse(r.PathValue("match_id"))
	if err != nil {
		badRequestResponse(w, "invalid match uuid format")
		return
	}

	viewer := models.UserFromContext(ctx)
	if err := h.service.Dismiss(ctx, viewer, matchID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to dismiss review prompt", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"dismissed": matchID}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
