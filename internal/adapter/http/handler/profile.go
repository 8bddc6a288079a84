package handler

import (
	"context"
	"net/http"

	"github.com/torimichi/guide-match-system/internal/adapter/http/handler/dto"
	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/internal/service/profile"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/uuid"
	"github.com/torimichi/guide-match-system/pkg/validator"
)

type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Update(ctx context.Context, actor *models.User, upd profile.ProfileUpdate) (*models.User, error)
	SetPresence(ctx context.Context, actor *models.User, active bool) (*models.User, error)
	AppendVertex(ctx context.Context, actor *models.User, vertex geo.Coordinate) (*models.User, error)
	UndoVertex(ctx context.Context, actor *models.User) (*models.User, error)
	ClearPolygon(ctx context.Context, actor *models.User) (*models.User, error)
}

type Profile struct {
	service ProfileService
	l       logger.Logger
}

func NewProfile(service ProfileService, l logger.Logger) *Profile {
	return &Profile{
		service: service,
		l:       l,
	}
}

// Get godoc
// @Summary      Own profile
// @Tags         Profile
// @Produce      json
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /profile [get]
func (h *Profile) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_profile")

	viewer := models.UserFromContext(ctx)
	user, err := h.service.Get(ctx, viewer.ID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load profile", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, user)
}

// Update godoc
// @Summary      Edit profile fields
// @Description  Partial update; omitted fields stay unchanged
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        request body dto.UpdateProfileRequest true "Fields to change"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /profile [put]
func (h *Profile) Update(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_profile")

	req := &dto.UpdateProfileRequest{}
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

	actor := models.UserFromContext(ctx)
	user, err := h.service.Update(ctx, actor, req.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update profile", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, user)
}

// SetPresence godoc
// @Summary      Go active or inactive on the map
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        request body dto.PresenceRequest true "Desired presence"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /profile/presence [post]
func (h *Profile) SetPresence(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_presence")

	req := &dto.PresenceRequest{}
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

	actor := models.UserFromContext(ctx)
	user, err := h.service.SetPresence(ctx, actor, *req.Active)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to change presence", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, user)
}

// AppendVertex adds one point to the coverage polygon under edit.
func (h *Profile) AppendVertex(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "append_polygon_vertex")

	req := &dto.VertexRequest{}
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

	actor := models.UserFromContext(ctx)
	user, err := h.service.AppendVertex(ctx, actor, req.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to append polygon vertex", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, user)
}

// UndoVertex removes the most recently added polygon point.
func (h *Profile) UndoVertex(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "undo_polygon_vertex")

	actor := models.UserFromContext(ctx)
	user, err := h.service.UndoVertex(ctx, actor)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to undo polygon vertex", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, user)
}

// ClearPolygon drops the whole coverage polygon.
func (h *Profile) ClearPolygon(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "clear_polygon")

	actor := models.UserFromContext(ctx)
	user, err := h.service.ClearPolygon(ctx, actor)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to clear polygon", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	h.respond(ctx, w, http.StatusOK, user)
}

func (h *Profile) respond(ctx context.Context, w http.ResponseWriter, status int, user *models.User) {
	if err := writeJSON(w, status, envelope{"user": user}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
