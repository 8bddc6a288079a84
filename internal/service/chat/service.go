package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

const maxMessageLen = 4000

// ChatService owns one conversation log per accepted match. Messages flow
// in two directions: local sends go optimistic-first then to the store, and
// broker deliveries fold remote (or echoed) durable messages back in.
type ChatService struct {
	repo      MessageRepo
	gate      MatchGate
	publisher MessagePublisher
	logger    logger.Logger

	mu   sync.Mutex
	logs map[uuid.UUID]*conversationLog
}

func NewChatService(repo MessageRepo, gate MatchGate, publisher MessagePublisher, logger logger.Logger) *ChatService {
	return &ChatService{
		repo:      repo,
		gate:      gate,
		publisher: publisher,
		logger:    logger,
		logs:      make(map[uuid.UUID]*conversationLog),
	}
}

// Send posts a message to an open conversation. The message appears in the
// local view immediately as a pending entry; if the store write fails the
// pending entry is retracted and the error surfaced, nothing is silently
// dropped. ClientTag lets the durable echo collapse onto the optimistic copy.
func (s *ChatService) Send(ctx context.Context, sender *models.User, matchID uuid.UUID, text, clientTag string) (*models.Message, error) {
	ctx = wrap.WithAction(ctx, "send_message")
	ctx = wrap.WithMatchID(ctx, matchID.String())

	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxMessageLen {
		return nil, wrap.Error(ctx, types.ErrInvalidMessage)
	}

	match, err := s.gate.ChatOpen(ctx, matchID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !match.Participant(sender.ID) {
		return nil, wrap.Error(ctx, types.ErrPermissionDenied)
	}

	if clientTag == "" {
		clientTag = uuid.MustNew().String()
	}

	log, err := s.logFor(ctx, matchID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	optimistic := models.Message{
		MatchID:   matchID,
		SenderID:  sender.ID,
		Text:      text,
		ClientTag: clientTag,
		CreatedAt: time.Now(),
	}
	log.appendPending(optimistic)

	durable, err := s.repo.Insert(ctx, &optimistic)
	if err != nil {
		log.retract(clientTag)
		s.logger.Error(ctx, "message write failed, optimistic copy retracted", err, "client_tag", clientTag)
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err))
	}

	log.commit(*durable)
	metrics.ChatMessagesTotal.WithLabelValues("chat").Inc()

	if s.publisher != nil {
		broadcast := models.ChatMessageBroadcast{Message: *durable, Timestamp: time.Now()}
		if err := s.publisher.PublishChatMessage(ctx, broadcast); err != nil {
			// The row is durable; other replicas recover via backfill.
			s.logger.Error(ctx, "failed to publish chat message", err, "message_id", durable.ID)
		}
	}
	return durable, nil
}

// ApplyRemote folds a broker-delivered durable message into the conversation
// view. Echoes of local sends and redeliveries are absorbed by the log.
func (s *ChatService) ApplyRemote(ctx context.Context, b models.ChatMessageBroadcast) {
	ctx = wrap.WithAction(ctx, "apply_remote_message")

	s.mu.Lock()
	log, ok := s.logs[b.Message.MatchID]
	s.mu.Unlock()
	if !ok {
		// Nobody here has the conversation open; backfill covers them later.
		return
	}
	log.commit(b.Message)
}

// ApplyStatus reacts to lifecycle changes: when a match leaves ACCEPTED its
// conversation is closed and live subscribers are told before being dropped.
func (s *ChatService) ApplyStatus(ctx context.Context, msg models.MatchStatusMessage) {
	ctx = wrap.WithAction(ctx, "apply_match_status")

	if msg.NewStatus == types.StatusAccepted {
		return
	}

	s.mu.Lock()
	log, ok := s.logs[msg.MatchID]
	if ok {
		delete(s.logs, msg.MatchID)
		metrics.OpenChatsGauge.WithLabelValues("chat").Dec()
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	log.close(models.ChatWebSocketMessage{
		EventType: types.EventChatClosed,
		Data:      msg,
	})
	s.logger.Info(ctx, "conversation closed", "match_id", msg.MatchID, "new_status", msg.NewStatus)
}

// Subscribe attaches a participant to the live conversation feed. The
// returned history is a snapshot taken under the same lock that registers
// the feed, so the subscriber sees every message exactly once.
func (s *ChatService) Subscribe(ctx context.Context, viewer *models.User, matchID uuid.UUID) (history []models.Message, feed <-chan models.ChatWebSocketMessage, cancel func(), err error) {
	ctx = wrap.WithAction(ctx, "subscribe_chat")
	ctx = wrap.WithMatchID(ctx, matchID.String())

	if _, err := s.gate.Get(ctx, viewer, matchID); err != nil {
		return nil, nil, nil, wrap.Error(ctx, err)
	}

	log, err := s.logFor(ctx, matchID)
	if err != nil {
		return nil, nil, nil, wrap.Error(ctx, err)
	}

	history, feed, cancel = log.subscribe()
	return history, feed, cancel, nil
}

// History returns the merged conversation view for a participant. Closed
// conversations remain readable from the store.
func (s *ChatService) History(ctx context.Context, viewer *models.User, matchID uuid.UUID) ([]models.Message, error) {
	ctx = wrap.WithAction(ctx, "chat_history")
	ctx = wrap.WithMatchID(ctx, matchID.String())

	if _, err := s.gate.Get(ctx, viewer, matchID); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.mu.Lock()
	log, ok := s.logs[matchID]
	s.mu.Unlock()
	if ok && log.isSeeded() {
		return log.snapshot(), nil
	}

	msgs, err := s.repo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	sortEntries(msgs)
	return msgs, nil
}

// logFor returns the live log for a match, creating and backfilling it on
// first touch. The map entry is created before the backfill read so that a
// concurrent broker delivery lands in the same log, commit absorbs any
// overlap with the backfill.
func (s *ChatService) logFor(ctx context.Context, matchID uuid.UUID) (*conversationLog, error) {
	s.mu.Lock()
	log, ok := s.logs[matchID]
	if !ok {
		log = newConversationLog(matchID)
		s.logs[matchID] = log
		metrics.OpenChatsGauge.WithLabelValues("chat").Inc()
	}
	s.mu.Unlock()

	if !log.isSeeded() {
		history, err := s.repo.ListByMatch(ctx, matchID)
		if err != nil {
			return nil, fmt.Errorf("could not backfill conversation: %w", err)
		}
		log.seed(history)
	}
	return log, nil
}

func messageEnvelope(msg models.Message) models.ChatWebSocketMessage {
	return models.ChatWebSocketMessage{
		EventType: types.EventMessageSent,
		Data:      msg,
	}
}

func retractEnvelope(matchID uuid.UUID, clientTag string) models.ChatWebSocketMessage {
	return models.ChatWebSocketMessage{
		EventType: types.EventMessageDropped,
		Data: map[string]any{
			"match_id":   matchID,
			"client_tag": clientTag,
		},
	}
}
