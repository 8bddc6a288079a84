package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/trm"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type MatchService struct {
	repo      MatchRepo
	events    EventRepo
	guides    GuideResolver
	publisher StatusPublisher
	logger    logger.Logger
	trm       trm.TxManager
}

func NewMatchService(repo MatchRepo, events EventRepo, guides GuideResolver, publisher StatusPublisher, logger logger.Logger, trm trm.TxManager) *MatchService {
	return &MatchService{
		repo:      repo,
		events:    events,
		guides:    guides,
		publisher: publisher,
		logger:    logger,
		trm:       trm,
	}
}

// Create opens a new pending request from tourist to the chosen guide. The
// guide must be discoverable at creation time and at most one non-terminal
// request per pair may exist; a rejected or finished pair can start over.
func (s *MatchService) Create(ctx context.Context, touristID uuid.UUID, req models.MatchCreateRequest) (*models.MatchRequest, error) {
	ctx = wrap.WithAction(ctx, "create_match")

	if touristID == req.GuideID {
		return nil, wrap.Error(ctx, types.ErrPermissionDenied)
	}
	if _, err := s.guides.ResolveTap(ctx, req.GuideID); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	var created *models.MatchRequest

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		open, err := s.repo.HasOpenRequest(ctx, touristID, req.GuideID)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not check open requests: %w", err))
		}
		if open {
			return wrap.Error(ctx, types.ErrOpenRequestExists)
		}

		created, err = s.repo.Create(ctx, &models.MatchRequest{
			TouristID: touristID,
			GuideID:   req.GuideID,
			Status:    types.StatusPending,
			Date:      req.Date,
			TimeSlot:  req.TimeSlot,
			Notes:     req.Notes,
		})
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not create match request: %w", err))
		}

		if err := s.events.Append(ctx, &models.MatchEventRecord{
			MatchID:   created.ID,
			ActorID:   touristID,
			Event:     types.EventMatchRequested,
			NewStatus: types.StatusPending,
		}); err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not append lifecycle event: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	metrics.MatchRequestsTotal.WithLabelValues("matching", types.StatusPending.String()).Inc()
	s.publishStatus(ctx, created, "", types.StatusPending)

	s.logger.Info(ctx, "match request created",
		"match_id", created.ID,
		"guide_id", created.GuideID,
	)
	return created, nil
}

// Accept moves a pending request to ACCEPTED and opens its conversation.
// Only the requested guide may accept. Accepting an already accepted request
// is a no-op.
func (s *MatchService) Accept(ctx context.Context, actor *models.User, matchID uuid.UUID) (*models.MatchRequest, error) {
	ctx = wrap.WithAction(ctx, "accept_match")
	return s.apply(ctx, actor, matchID, VerbAccept)
}

// Reject moves a pending request to REJECTED. Only the requested guide may
// reject.
func (s *MatchService) Reject(ctx context.Context, actor *models.User, matchID uuid.UUID) (*models.MatchRequest, error) {
	ctx = wrap.WithAction(ctx, "reject_match")
	return s.apply(ctx, actor, matchID, VerbReject)
}

// End closes an accepted match into REVIEW_WAIT. Either participant may end.
func (s *MatchService) End(ctx context.Context, actor *models.User, matchID uuid.UUID) (*models.MatchRequest, error) {
	ctx = wrap.WithAction(ctx, "end_match")
	return s.apply(ctx, actor, matchID, VerbEnd)
}

func (s *MatchService) apply(ctx context.Context, actor *models.User, matchID uuid.UUID, verb Verb) (*models.MatchRequest, error) {
	ctx = wrap.WithMatchID(ctx, matchID.String())

	var (
		match *models.MatchRequest
		old   types.MatchStatus
		moved bool
	)

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		match, err = s.repo.Get(ctx, matchID)
		if err != nil {
			return wrap.Error(ctx, err)
		}

		if err := authorize(actor, match, verb); err != nil {
			return wrap.Error(ctx, err)
		}

		old = match.Status
		next, changed, err := advance(match.Status, verb)
		if err != nil {
			return wrap.Error(ctx, err)
		}
		if !changed {
			return nil
		}

		ok, err := s.repo.SetStatus(ctx, matchID, old, next)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("could not update match status: %w", err))
		}
		if !ok {
			// Lost the race. Re-read and let advance decide whether the
			// winner already did our work.
			match, err = s.repo.Get(ctx, matchID)
			if err != nil {
				return wrap.Error(ctx, err)
			}
			if _, stillChanged, err := advance(match.Status, verb); err != nil || stillChanged {
				return wrap.Error(ctx, types.ErrInvalidTransition)
			}
			return nil
		}

		match.Status = next
		match.UpdatedAt = time.Now()
		moved = true

		return s.events.Append(ctx, &models.MatchEventRecord{
			MatchID:   matchID,
			ActorID:   actor.ID,
			Event:     eventFor(verb),
			OldStatus: old,
			NewStatus: next,
		})
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if moved {
		metrics.MatchRequestsTotal.WithLabelValues("matching", match.Status.String()).Inc()
		s.publishStatus(ctx, match, old, match.Status)
		s.logger.Info(ctx, "match status changed",
			"old_status", old,
			"new_status", match.Status,
		)
	}
	return match, nil
}

// authorize checks that the actor may fire verb on the request. Accept and
// reject belong to the guide alone; end belongs to either participant.
func authorize(actor *models.User, match *models.MatchRequest, verb Verb) error {
	if actor.IsAnonymous() {
		return types.ErrNotAuthenticated
	}
	switch verb {
	case VerbAccept, VerbReject:
		if actor.ID != match.GuideID {
			return types.ErrPermissionDenied
		}
	case VerbEnd:
		if !match.Participant(actor.ID) {
			return types.ErrPermissionDenied
		}
	default:
		return types.ErrInvalidTransition
	}
	return nil
}

// Get returns a single request, visible only to its participants.
func (s *MatchService) Get(ctx context.Context, viewer *models.User, matchID uuid.UUID) (*models.MatchRequest, error) {
	ctx = wrap.WithAction(ctx, "get_match")

	match, err := s.repo.Get(ctx, matchID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !match.Participant(viewer.ID) && viewer.Role != string(types.RoleAdmin) {
		return nil, wrap.Error(ctx, types.ErrPermissionDenied)
	}
	return match, nil
}

// ListForUser returns every request the user participates in, newest first.
func (s *MatchService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.MatchRequest, error) {
	ctx = wrap.WithAction(ctx, "list_matches")

	matches, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return matches, nil
}

// ChatOpen reports whether the conversation for a match accepts new messages.
// Only an ACCEPTED match has an open conversation.
func (s *MatchService) ChatOpen(ctx context.Context, matchID uuid.UUID) (*models.MatchRequest, error) {
	match, err := s.repo.Get(ctx, matchID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if match.Status != types.StatusAccepted {
		return nil, wrap.Error(ctx, types.ErrChatNotOpen)
	}
	return match, nil
}

func (s *MatchService) publishStatus(ctx context.Context, m *models.MatchRequest, old, new types.MatchStatus) {
	if s.publisher == nil {
		return
	}
	msg := models.MatchStatusMessage{
		MatchID:   m.ID,
		TouristID: m.TouristID,
		GuideID:   m.GuideID,
		OldStatus: old,
		NewStatus: new,
		Timestamp: time.Now(),
	}
	if err := s.publisher.PublishMatchStatus(ctx, msg); err != nil {
		// The row is committed; consumers catch up from the store.
		s.logger.Error(ctx, "failed to publish match status", err, "match_id", m.ID)
	}
}
