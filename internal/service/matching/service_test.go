package matching

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

type passTx struct{}

func (passTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMatchRepo struct {
	matches map[uuid.UUID]*models.MatchRequest
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[uuid.UUID]*models.MatchRequest)}
}

func (r *fakeMatchRepo) Create(ctx context.Context, m *models.MatchRequest) (*models.MatchRequest, error) {
	cp := *m
	cp.ID = uuid.MustNew()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.matches[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeMatchRepo) Get(ctx context.Context, id uuid.UUID) (*models.MatchRequest, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, types.ErrMatchNotFound
	}
	out := *m
	return &out, nil
}

func (r *fakeMatchRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.MatchRequest, error) {
	var out []models.MatchRequest
	for _, m := range r.matches {
		if m.Participant(userID) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) HasOpenRequest(ctx context.Context, touristID, guideID uuid.UUID) (bool, error) {
	for _, m := range r.matches {
		if m.TouristID == touristID && m.GuideID == guideID && !m.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMatchRepo) SetStatus(ctx context.Context, id uuid.UUID, old, new types.MatchStatus) (bool, error) {
	m, ok := r.matches[id]
	if !ok {
		return false, types.ErrMatchNotFound
	}
	if m.Status != old {
		return false, nil
	}
	m.Status = new
	m.UpdatedAt = time.Now()
	return true, nil
}

type fakeEventRepo struct {
	records []models.MatchEventRecord
}

func (r *fakeEventRepo) Append(ctx context.Context, rec *models.MatchEventRecord) error {
	r.records = append(r.records, *rec)
	return nil
}

type fakeResolver struct {
	known map[uuid.UUID]bool
}

func (r *fakeResolver) ResolveTap(ctx context.Context, guideID uuid.UUID) (models.DiscoverableGuide, error) {
	if !r.known[guideID] {
		return models.DiscoverableGuide{}, types.ErrGuideNotFound
	}
	g := models.DiscoverableGuide{}
	g.GuideID = guideID
	return g, nil
}

type fakePublisher struct {
	published []models.MatchStatusMessage
}

func (p *fakePublisher) PublishMatchStatus(ctx context.Context, msg models.MatchStatusMessage) error {
	p.published = append(p.published, msg)
	return nil
}

/*=================fixture======================*/

type fixture struct {
	svc       *MatchService
	repo      *fakeMatchRepo
	events    *fakeEventRepo
	publisher *fakePublisher
	tourist   *models.User
	guide     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tourist := &models.User{ID: uuid.MustNew(), Role: string(types.RoleTraveler)}
	guide := &models.User{ID: uuid.MustNew(), Role: string(types.RoleGuide)}

	repo := newFakeMatchRepo()
	events := &fakeEventRepo{}
	publisher := &fakePublisher{}
	resolver := &fakeResolver{known: map[uuid.UUID]bool{guide.ID: true}}

	svc := NewMatchService(repo, events, resolver, publisher,
		logger.InitLogger("matching-test", "error"), passTx{})

	return &fixture{svc: svc, repo: repo, events: events, publisher: publisher, tourist: tourist, guide: guide}
}

func (f *fixture) createPending(t *testing.T) *models.MatchRequest {
	t.Helper()
	m, err := f.svc.Create(context.Background(), f.tourist.ID, models.MatchCreateRequest{
		GuideID:  f.guide.ID,
		Date:     "2026-09-12",
		TimeSlot: "10:00-15:00",
		Notes:    "old town walk",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return m
}

/*=================tests======================*/

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m := f.createPending(t)
	if m.Status != types.StatusPending {
		t.Errorf("new request status = %s, want PENDING", m.Status)
	}
	if len(f.events.records) != 1 || f.events.records[0].Event != types.EventMatchRequested {
		t.Errorf("lifecycle log = %+v, want one MATCH_REQUESTED", f.events.records)
	}
	if len(f.publisher.published) != 1 || f.publisher.published[0].NewStatus != types.StatusPending {
		t.Errorf("published = %+v, want one PENDING status", f.publisher.published)
	}

	// A second request to the same guide while the first is open is refused.
	_, err := f.svc.Create(ctx, f.tourist.ID, models.MatchCreateRequest{GuideID: f.guide.ID})
	if !errors.Is(err, types.ErrOpenRequestExists) {
		t.Errorf("duplicate Create() error = %v, want ErrOpenRequestExists", err)
	}

	// After a rejection the pair can start over.
	if _, err := f.svc.Reject(ctx, f.guide, m.ID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if _, err := f.svc.Create(ctx, f.tourist.ID, models.MatchCreateRequest{GuideID: f.guide.ID}); err != nil {
		t.Errorf("Create() after rejection error = %v, want nil", err)
	}
}

func TestCreate_GuideNotDiscoverable(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.tourist.ID, models.MatchCreateRequest{GuideID: uuid.MustNew()})
	if !errors.Is(err, types.ErrGuideNotFound) {
		t.Fatalf("Create() error = %v, want ErrGuideNotFound", err)
	}
}

func TestCreate_SelfRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.guide.ID, models.MatchCreateRequest{GuideID: f.guide.ID})
	if !errors.Is(err, types.ErrPermissionDenied) {
		t.Fatalf("self Create() error = %v, want ErrPermissionDenied", err)
	}
}

func TestAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.createPending(t)

	got, err := f.svc.Accept(ctx, f.guide, m.ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if got.Status != types.StatusAccepted {
		t.Errorf("status = %s, want ACCEPTED", got.Status)
	}

	// Re-accept is an absorbed no-op: same result, no new event or publish.
	events, published := len(f.events.records), len(f.publisher.published)
	got, err = f.svc.Accept(ctx, f.guide, m.ID)
	if err != nil || got.Status != types.StatusAccepted {
		t.Fatalf("second Accept() = (%v, %v), want ACCEPTED, nil", got.Status, err)
	}
	if len(f.events.records) != events || len(f.publisher.published) != published {
		t.Errorf("idempotent accept emitted new events or publishes")
	}
}

func TestAccept_OnlyGuide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.createPending(t)

	if _, err := f.svc.Accept(ctx, f.tourist, m.ID); !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("tourist Accept() error = %v, want ErrPermissionDenied", err)
	}
	stranger := &models.User{ID: uuid.MustNew(), Role: string(types.RoleGuide)}
	if _, err := f.svc.Reject(ctx, stranger, m.ID); !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("stranger Reject() error = %v, want ErrPermissionDenied", err)
	}
	if _, err := f.svc.Accept(ctx, models.AnonymousUser(), m.ID); !errors.Is(err, types.ErrNotAuthenticated) {
		t.Errorf("anonymous Accept() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestRejectThenAcceptFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.createPending(t)

	if _, err := f.svc.Reject(ctx, f.guide, m.ID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if _, err := f.svc.Accept(ctx, f.guide, m.ID); !errors.Is(err, types.ErrInvalidTransition) {
		t.Errorf("Accept() after reject error = %v, want ErrInvalidTransition", err)
	}
}

func TestEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Ending a pending request is invalid.
	m := f.createPending(t)
	if _, err := f.svc.End(ctx, f.tourist, m.ID); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("End() on pending error = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.svc.Accept(ctx, f.guide, m.ID); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	// Either participant may end; here the tourist does.
	got, err := f.svc.End(ctx, f.tourist, m.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if got.Status != types.StatusReviewWait {
		t.Errorf("status = %s, want REVIEW_WAIT", got.Status)
	}

	// The guide ending again is absorbed.
	if _, err := f.svc.End(ctx, f.guide, m.ID); err != nil {
		t.Errorf("second End() error = %v, want nil", err)
	}
}

func TestChatOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.createPending(t)

	if _, err := f.svc.ChatOpen(ctx, m.ID); !errors.Is(err, types.ErrChatNotOpen) {
		t.Errorf("ChatOpen() on pending error = %v, want ErrChatNotOpen", err)
	}

	if _, err := f.svc.Accept(ctx, f.guide, m.ID); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if _, err := f.svc.ChatOpen(ctx, m.ID); err != nil {
		t.Errorf("ChatOpen() on accepted error = %v, want nil", err)
	}

	if _, err := f.svc.End(ctx, f.guide, m.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, err := f.svc.ChatOpen(ctx, m.ID); !errors.Is(err, types.ErrChatNotOpen) {
		t.Errorf("ChatOpen() on review_wait error = %v, want ErrChatNotOpen", err)
	}
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.createPending(t)

	if _, err := f.svc.Get(ctx, f.tourist, m.ID); err != nil {
		t.Errorf("tourist Get() error = %v", err)
	}
	if _, err := f.svc.Get(ctx, f.guide, m.ID); err != nil {
		t.Errorf("guide Get() error = %v", err)
	}

	stranger := &models.User{ID: uuid.MustNew(), Role: string(types.RoleTraveler)}
	if _, err := f.svc.Get(ctx, stranger, m.ID); !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("stranger Get() error = %v, want ErrPermissionDenied", err)
	}

	admin := &models.User{ID: uuid.MustNew(), Role: string(types.RoleAdmin)}
	if _, err := f.svc.Get(ctx, admin, m.ID); err != nil {
		t.Errorf("admin Get() error = %v", err)
	}

	if _, err := f.svc.Get(ctx, f.tourist, uuid.MustNew()); !errors.Is(err, types.ErrMatchNotFound) {
		t.Errorf("Get() missing error = %v, want ErrMatchNotFound", err)
	}
}

func TestStatusChangePublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.createPending(t)

	if _, err := f.svc.Accept(ctx, f.guide, m.ID); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if _, err := f.svc.End(ctx, f.guide, m.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	want := []types.MatchStatus{types.StatusPending, types.StatusAccepted, types.StatusReviewWait}
	if len(f.publisher.published) != len(want) {
		t.Fatalf("published %d messages, want %d", len(f.publisher.published), len(want))
	}
	for i, msg := range f.publisher.published {
		if msg.NewStatus != want[i] {
			t.Errorf("published[%d].NewStatus = %s, want %s", i, msg.NewStatus, want[i])
		}
		if msg.MatchID != m.ID {
			t.Errorf("published[%d].MatchID = %v, want %v", i, msg.MatchID, m.ID)
		}
	}
}
