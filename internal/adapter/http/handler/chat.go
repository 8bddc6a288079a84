package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/torimichi/guide-match-system/internal/adapter/http/handler/dto"
	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/uuid"
	"github.com/torimichi/guide-match-system/pkg/validator"
	ws "github.com/torimichi/guide-match-system/pkg/wsHub"
)

type ChatStream interface {
	Send(ctx context.Context, sender *models.User, matchID uuid.UUID, text, clientTag string) (*models.Message, error)
	History(ctx context.Context, viewer *models.User, matchID uuid.UUID) ([]models.Message, error)
	Subscribe(ctx context.Context, viewer *models.User, matchID uuid.UUID) (history []models.Message, feed <-chan models.ChatWebSocketMessage, cancel func(), err error)
}

type Chat struct {
	service  ChatStream
	auth     AuthService
	hub      *ws.ConnectionHub
	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewChat(service ChatStream, auth AuthService, hub *ws.ConnectionHub, l logger.Logger) *Chat {
	return &Chat{
		service: service,
		auth:    auth,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// History godoc
// @Summary      Conversation history
// @Description  Merged durable and in-flight messages, oldest first
// @Tags         Chat
// @Produce      json
// @Param        match_id path string true "Match ID"
// @Success      200  {object}  map[string]any
// @Security     BearerAuth
// @Router       /matches/{match_id}/messages [get]
func (h *Chat) History(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "chat_history")

	matchID, err := uuid.Parse(r.PathValue("match_id"))
	if err != nil {
		badRequestResponse(w, "invalid match uuid format")
		return
	}

	viewer := models.UserFromContext(ctx)
	messages, err := h.service.History(ctx, viewer, matchID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load chat history", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"messages": messages}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Send godoc
// @Summary      Post a message
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        match_id path string true "Match ID"
// @Param        request body dto.SendMessageRequest true "Message"
// @Success      201  {object}  map[string]any
// @Security     BearerAuth
// @Router       /matches/{match_id}/messages [post]
func (h *Chat) Send(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "send_chat_message")

	matchID, err := uuid.Parse(r.PathValue("match_id"))
	if err != nil {
		badRequestResponse(w, "invalid match uuid format")
		return
	}

	req := &dto.SendMessageRequest{}
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

	sender := models.UserFromContext(ctx)
	msg, err := h.service.Send(ctx, sender, matchID, req.Text, req.ClientTag)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to send chat message", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"message": msg}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// HandleWebSocket upgrades the connection and streams conversation events.
// The client receives a CHAT_HISTORY envelope first, then live events in
// order. Inbound frames of type SEND_MESSAGE post messages over the same
// connection.
func (h *Chat) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "chat_websocket")

	matchID, err := uuid.Parse(r.PathValue("match_id"))
	if err != nil {
		badRequestResponse(w, "invalid match uuid format")
		return
	}
	ctx = wrap.WithMatchID(ctx, matchID.String())

	viewer, err := h.wsViewer(ctx, r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "authorization required")
		return
	}
	ctx = wrap.WithUserID(ctx, viewer.ID.String())

	history, feed, cancel, err := h.service.Subscribe(ctx, viewer, matchID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to subscribe to conversation", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}
	defer cancel()

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "websocket upgrade failed", err)
		return
	}

	conn := ws.NewConn(ctx, viewer.ID, sock)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register websocket connection", err)
		sock.Close()
		return
	}
	metrics.WebSocketConnectionsGauge.WithLabelValues("chat").Inc()
	defer func() {
		h.hub.Delete(viewer.ID)
		metrics.WebSocketConnectionsGauge.WithLabelValues("chat").Dec()
	}()

	if err := conn.Send(models.ChatWebSocketMessage{
		EventType: types.EventChatHistory,
		Data:      history,
	}); err != nil {
		h.l.Warn(ctx, "failed to send history frame", "err", err.Error())
		return
	}

	// Pump live events until the feed closes or the write fails.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for ev := range feed {
			if err := conn.Send(ev); err != nil {
				h.l.Warn(ctx, "websocket write failed", "err", err.Error())
				conn.Close()
				return
			}
		}
		// Feed closed: the conversation ended.
		conn.Close()
	}()

	err = conn.Listen(func(msg map[string]any) error {
		h.handleInbound(ctx, conn, viewer, matchID, msg)
		return nil
	})
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.l.Debug(ctx, "websocket listen finished", "reason", err.Error())
	}

	conn.Close()
	<-writeDone
}

func (h *Chat) handleInbound(ctx context.Context, conn *ws.Conn, viewer *models.User, matchID uuid.UUID, raw map[string]any) {
	msgType, _ := raw["type"].(string)
	if !strings.EqualFold(msgType, "SEND_MESSAGE") {
		conn.Send(envelope{"error": "unsupported message type"})
		return
	}

	text, _ := raw["text"].(string)
	clientTag, _ := raw["client_tag"].(string)

	if _, err := h.service.Send(ctx, viewer, matchID, text, clientTag); err != nil {
		// The retract envelope already went out through the feed; this adds
		// the reason for the sender alone.
		conn.Send(envelope{"error": err.Error(), "client_tag": clientTag})
	}
}

// wsViewer resolves the caller: the Auth middleware user when present, else
// a token query parameter, which browser websocket clients rely on.
func (h *Chat) wsViewer(ctx context.Context, r *http.Request) (*models.User, error) {
	if user := models.UserFromContext(ctx); !user.IsAnonymous() {
		return user, nil
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, types.ErrNotAuthenticated
	}
	return h.auth.Authenticate(ctx, token)
}
