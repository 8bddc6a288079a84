package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

const maxReviewLen = 2000

// ReviewService surfaces "please review" prompts for finished matches and
// accepts the resulting reviews. A match prompts its traveler until a review
// is stored or the prompt is dismissed for the session.
type ReviewService struct {
	repo    ReviewRepo
	matches MatchSource
	users   UserGetter
	gate    *promptGate
	logger  logger.Logger
}

func NewReviewService(repo ReviewRepo, matches MatchSource, users UserGetter, logger logger.Logger) *ReviewService {
	return &ReviewService{
		repo:    repo,
		matches: matches,
		users:   users,
		gate:    newPromptGate(),
		logger:  logger,
	}
}

// Prompts returns the viewer's outstanding review prompts: matches they
// requested that reached REVIEW_WAIT, minus reviewed and dismissed ones.
func (s *ReviewService) Prompts(ctx context.Context, viewer *models.User) ([]models.ReviewPrompt, error) {
	ctx = wrap.WithAction(ctx, "review_prompts")

	matches, err := s.matches.ListForUser(ctx, viewer.ID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	prompts := make([]models.ReviewPrompt, 0)
	for _, m := range matches {
		if m.TouristID != viewer.ID || m.Status != types.StatusReviewWait {
			continue
		}
		if s.gate.Dismissed(viewer.ID, m.ID) {
			continue
		}
		reviewed, err := s.repo.ExistsForMatch(ctx, m.ID, viewer.ID)
		if err != nil {
			return nil, wrap.Error(ctx, err)
		}
		if reviewed {
			continue
		}
		prompts = append(prompts, models.ReviewPrompt{
			MatchID:   m.ID,
			GuideID:   m.GuideID,
			GuideName: s.guideName(ctx, m.GuideID),
			Date:      m.Date,
			TimeSlot:  m.TimeSlot,
		})
	}
	return prompts, nil
}

// Submit stores the traveler's review for a finished match. One review per
// match per traveler; rating must be 1..5.
func (s *ReviewService) Submit(ctx context.Context, viewer *models.User, matchID uuid.UUID, rating int, text string) (*models.Review, error) {
	ctx = wrap.WithAction(ctx, "submit_review")
	ctx = wrap.WithMatchID(ctx, matchID.String())

	if rating < 1 || rating > 5 {
		return nil, wrap.Error(ctx, types.ErrInvalidRating)
	}
	text = strings.TrimSpace(text)
	if len(text) > maxReviewLen {
		text = text[:maxReviewLen]
	}

	match, err := s.matches.Get(ctx, viewer, matchID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if match.TouristID != viewer.ID {
		return nil, wrap.Error(ctx, types.ErrPermissionDenied)
	}
	if match.Status != types.StatusReviewWait {
		return nil, wrap.Error(ctx, types.ErrInvalidTransition)
	}

	reviewed, err := s.repo.ExistsForMatch(ctx, matchID, viewer.ID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if reviewed {
		return nil, wrap.Error(ctx, types.ErrAlreadyReviewed)
	}

	created, err := s.repo.Insert(ctx, &models.Review{
		MatchID: matchID,
		UserID:  viewer.ID,
		Rating:  rating,
		Review:  text,
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not store review: %w", err))
	}

	// A stored review also retires the prompt for this session.
	s.gate.Dismiss(viewer.ID, matchID)

	s.logger.Info(ctx, "review submitted", "guide_id", match.GuideID, "rating", rating)
	return created, nil
}

// Dismiss hides the prompt for a match until the next session. The match
// stays unreviewed and will prompt again after a restart.
func (s *ReviewService) Dismiss(ctx context.Context, viewer *models.User, matchID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "dismiss_review_prompt")

	match, err := s.matches.Get(ctx, viewer, matchID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if match.TouristID != viewer.ID {
		return wrap.Error(ctx, types.ErrPermissionDenied)
	}
	s.gate.Dismiss(viewer.ID, matchID)
	return nil
}

// GuideRating aggregates stored reviews for a guide.
func (s *ReviewService) GuideRating(ctx context.Context, guideID uuid.UUID) (avg float64, count int, err error) {
	ctx = wrap.WithAction(ctx, "guide_rating")

	reviews, err := s.repo.ListByGuide(ctx, guideID)
	if err != nil {
		return 0, 0, wrap.Error(ctx, err)
	}
	if len(reviews) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews)), len(reviews), nil
}

func (s *ReviewService) guideName(ctx context.Context, guideID uuid.UUID) string {
	if s.users == nil {
		return ""
	}
	u, err := s.users.Get(ctx, guideID)
	if err != nil {
		return ""
	}
	return u.Name
}
