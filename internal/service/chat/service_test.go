package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/logger"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

/*=================fakes======================*/

type fakeMessageRepo struct {
	messages  map[uuid.UUID][]models.Message
	nextSeq   int64
	failWrite bool
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID][]models.Message)}
}

func (r *fakeMessageRepo) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if r.failWrite {
		return nil, errors.New("connection refused")
	}
	r.nextSeq++
	durable := *msg
	durable.ID = uuid.MustNew()
	durable.Seq = r.nextSeq
	durable.CreatedAt = time.Now()
	r.messages[msg.MatchID] = append(r.messages[msg.MatchID], durable)
	return &durable, nil
}

func (r *fakeMessageRepo) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]models.Message, error) {
	return append([]models.Message(nil), r.messages[matchID]...), nil
}

type fakeGate struct {
	match *models.MatchRequest
}

func (g *fakeGate) ChatOpen(ctx context.Context, matchID uuid.UUID) (*models.MatchRequest, error) {
	if g.match == nil || g.match.ID != matchID {
		return nil, types.ErrMatchNotFound
	}
	if g.match.Status != types.StatusAccepted {
		return nil, types.ErrChatNotOpen
	}
	out := *g.match
	return &out, nil
}

func (g *fakeGate) Get(ctx context.Context, viewer *models.User, matchID uuid.UUID) (*models.MatchRequest, error) {
	if g.match == nil || g.match.ID != matchID {
		return nil, types.ErrMatchNotFound
	}
	if !g.match.Participant(viewer.ID) {
		return nil, types.ErrPermissionDenied
	}
	out := *g.match
	return &out, nil
}

type fakeMsgPublisher struct {
	published []models.ChatMessageBroadcast
}

func (p *fakeMsgPublisher) PublishChatMessage(ctx context.Context, msg models.ChatMessageBroadcast) error {
	p.published = append(p.published, msg)
	return nil
}

/*=================fixture======================*/

type chatFixture struct {
	svc       *ChatService
	repo      *fakeMessageRepo
	gate      *fakeGate
	publisher *fakeMsgPublisher
	tourist   *models.User
	guide     *models.User
	matchID   uuid.UUID
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	tourist := &models.User{ID: uuid.MustNew(), Role: string(types.RoleTraveler)}
	guide := &models.User{ID: uuid.MustNew(), Role: string(types.RoleGuide)}
	match := &models.MatchRequest{
		ID:        uuid.MustNew(),
		TouristID: tourist.ID,
		GuideID:   guide.ID,
		Status:    types.StatusAccepted,
	}

	repo := newFakeMessageRepo()
	gate := &fakeGate{match: match}
	publisher := &fakeMsgPublisher{}
	svc := NewChatService(repo, gate, publisher, logger.InitLogger("chat-test", "error"))

	return &chatFixture{
		svc: svc, repo: repo, gate: gate, publisher: publisher,
		tourist: tourist, guide: guide, matchID: match.ID,
	}
}

func drain(feed <-chan models.ChatWebSocketMessage) []models.ChatWebSocketMessage {
	var out []models.ChatWebSocketMessage
	for {
		select {
		case env, ok := <-feed:
			if !ok {
				return out
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

/*=================tests======================*/

func TestSend(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	msg, err := f.svc.Send(ctx, f.tourist, f.matchID, "hello from the old town", "tag-1")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.ID.IsZero() || msg.Seq == 0 {
		t.Errorf("durable message missing store identity: %+v", msg)
	}
	if msg.ClientTag != "tag-1" {
		t.Errorf("ClientTag = %q, want tag-1", msg.ClientTag)
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("published %d broadcasts, want 1", len(f.publisher.published))
	}

	history, err := f.svc.History(ctx, f.guide, f.matchID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Text != "hello from the old town" {
		t.Errorf("history = %+v, want the sent message", history)
	}
}

func TestSend_Gates(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	stranger := &models.User{ID: uuid.MustNew(), Role: string(types.RoleTraveler)}
	if _, err := f.svc.Send(ctx, stranger, f.matchID, "hi", ""); !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("stranger Send() error = %v, want ErrPermissionDenied", err)
	}

	if _, err := f.svc.Send(ctx, f.tourist, f.matchID, "   ", ""); !errors.Is(err, types.ErrInvalidMessage) {
		t.Errorf("blank Send() error = %v, want ErrInvalidMessage", err)
	}

	f.gate.match.Status = types.StatusPending
	if _, err := f.svc.Send(ctx, f.tourist, f.matchID, "hi", ""); !errors.Is(err, types.ErrChatNotOpen) {
		t.Errorf("Send() to pending match error = %v, want ErrChatNotOpen", err)
	}

	f.gate.match.Status = types.StatusReviewWait
	if _, err := f.svc.Send(ctx, f.tourist, f.matchID, "hi", ""); !errors.Is(err, types.ErrChatNotOpen) {
		t.Errorf("Send() to finished match error = %v, want ErrChatNotOpen", err)
	}
}

func TestSend_OptimisticEchoAndRetract(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	_, feed, cancel, err := f.svc.Subscribe(ctx, f.guide, f.matchID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	f.repo.failWrite = true
	_, err = f.svc.Send(ctx, f.tourist, f.matchID, "doomed", "tag-x")
	if !errors.Is(err, types.ErrStoreUnavailable) {
		t.Fatalf("Send() with failing store error = %v, want ErrStoreUnavailable", err)
	}

	envs := drain(feed)
	if len(envs) != 2 {
		t.Fatalf("subscriber saw %d events, want optimistic echo then retract", len(envs))
	}
	if envs[0].EventType != types.EventMessageSent {
		t.Errorf("first event = %s, want MESSAGE_SENT", envs[0].EventType)
	}
	if envs[1].EventType != types.EventMessageDropped {
		t.Errorf("second event = %s, want MESSAGE_DROPPED", envs[1].EventType)
	}

	// The failed message must not linger in the view.
	history, err := f.svc.History(ctx, f.tourist, f.matchID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history after failed send = %+v, want empty", history)
	}
}

func TestApplyRemote_EchoDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	sent, err := f.svc.Send(ctx, f.tourist, f.matchID, "hello", "tag-1")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// The broker echoes our own durable message back, twice.
	echo := models.ChatMessageBroadcast{Message: *sent, Timestamp: time.Now()}
	f.svc.ApplyRemote(ctx, echo)
	f.svc.ApplyRemote(ctx, echo)

	history, err := f.svc.History(ctx, f.tourist, f.matchID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d messages, want 1 after echo and redelivery", len(history))
	}
	if history[0].ID != sent.ID {
		t.Errorf("history[0].ID = %v, want %v", history[0].ID, sent.ID)
	}
}

func TestApplyRemote_CounterpartyMessage(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	_, feed, cancel, err := f.svc.Subscribe(ctx, f.tourist, f.matchID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	remote := models.Message{
		ID:        uuid.MustNew(),
		Seq:       7,
		MatchID:   f.matchID,
		SenderID:  f.guide.ID,
		Text:      "meet at the fountain",
		CreatedAt: time.Now(),
	}
	f.svc.ApplyRemote(ctx, models.ChatMessageBroadcast{Message: remote, Timestamp: time.Now()})

	envs := drain(feed)
	if len(envs) != 1 || envs[0].EventType != types.EventMessageSent {
		t.Fatalf("subscriber events = %+v, want one MESSAGE_SENT", envs)
	}
	got, ok := envs[0].Data.(models.Message)
	if !ok || got.ID != remote.ID {
		t.Errorf("event data = %+v, want the remote message", envs[0].Data)
	}
}

func TestHistory_OrderedByTimeThenSeq(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)
	base := time.Now()

	// Stored out of order, with a created_at tie broken by seq.
	f.repo.messages[f.matchID] = []models.Message{
		{ID: uuid.MustNew(), Seq: 3, MatchID: f.matchID, Text: "third", CreatedAt: base.Add(2 * time.Second)},
		{ID: uuid.MustNew(), Seq: 2, MatchID: f.matchID, Text: "second", CreatedAt: base},
		{ID: uuid.MustNew(), Seq: 1, MatchID: f.matchID, Text: "first", CreatedAt: base},
	}

	history, err := f.svc.History(ctx, f.tourist, f.matchID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(history) != len(want) {
		t.Fatalf("history has %d messages, want %d", len(history), len(want))
	}
	for i, text := range want {
		if history[i].Text != text {
			t.Errorf("history[%d].Text = %q, want %q", i, history[i].Text, text)
		}
	}
}

func TestSubscribe_BackfillThenLive(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	if _, err := f.svc.Send(ctx, f.tourist, f.matchID, "before subscribe", ""); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	history, feed, cancel, err := f.svc.Subscribe(ctx, f.guide, f.matchID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	if len(history) != 1 || history[0].Text != "before subscribe" {
		t.Fatalf("snapshot = %+v, want the pre-subscribe message", history)
	}

	if _, err := f.svc.Send(ctx, f.guide, f.matchID, "after subscribe", "tag-2"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Live feed carries the optimistic echo and the durable commit for the
	// same tag; neither duplicates the snapshot.
	envs := drain(feed)
	if len(envs) == 0 {
		t.Fatal("subscriber saw no live events")
	}
	for _, env := range envs {
		msg, ok := env.Data.(models.Message)
		if !ok {
			t.Fatalf("unexpected event payload %+v", env.Data)
		}
		if msg.Text == "before subscribe" {
			t.Errorf("snapshot message redelivered on the live feed")
		}
	}
}

func TestSubscribe_NonParticipant(t *testing.T) {
	f := newChatFixture(t)
	stranger := &models.User{ID: uuid.MustNew(), Role: string(types.RoleTraveler)}
	if _, _, _, err := f.svc.Subscribe(context.Background(), stranger, f.matchID); !errors.Is(err, types.ErrPermissionDenied) {
		t.Fatalf("Subscribe() error = %v, want ErrPermissionDenied", err)
	}
}

func TestApplyStatus_ClosesConversation(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	_, feed, _, err := f.svc.Subscribe(ctx, f.tourist, f.matchID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	f.svc.ApplyStatus(ctx, models.MatchStatusMessage{
		MatchID:   f.matchID,
		OldStatus: types.StatusAccepted,
		NewStatus: types.StatusReviewWait,
		Timestamp: time.Now(),
	})

	var sawClose bool
	for env := range feed {
		if env.EventType == types.EventChatClosed {
			sawClose = true
		}
	}
	if !sawClose {
		t.Error("subscriber never saw CHAT_CLOSED before the feed closed")
	}

	// History still works after close, served from the store.
	f.gate.match.Status = types.StatusReviewWait
	if _, err := f.svc.History(ctx, f.tourist, f.matchID); err != nil {
		t.Errorf("History() after close error = %v", err)
	}
}

func TestApplyStatus_AcceptedIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture(t)

	_, feed, cancel, err := f.svc.Subscribe(ctx, f.tourist, f.matchID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer cancel()

	f.svc.ApplyStatus(ctx, models.MatchStatusMessage{
		MatchID:   f.matchID,
		NewStatus: types.StatusAccepted,
	})

	if envs := drain(feed); len(envs) != 0 {
		t.Errorf("ACCEPTED status produced events %+v, want none", envs)
	}
}
