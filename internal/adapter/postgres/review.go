package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type ReviewRepo struct {
	db *pgxpool.Pool
}

func NewReviewRepo(db *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) Insert(ctx context.Context, rev *models.Review) (*models.Review, error) {
	if rev == nil {
		return nil, errors.New("nil review")
	}

	const q = `
		INSERT INTO reviews (match_id, user_id, rating, review)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`

	err := TxorDB(ctx, r.db).QueryRow(ctx, q,
		rev.MatchID, rev.UserID, rev.Rating, rev.Review,
	).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, types.ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("review repo: Insert: %w", err)
	}
	return rev, nil
}

func (r *ReviewRepo) ExistsForMatch(ctx context.Context, matchID, userID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM reviews WHERE match_id = $1 AND user_id = $2
		);
	`

	var exists bool
	err := TxorDB(ctx, r.db).QueryRow(ctx, q, matchID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("review repo: ExistsForMatch: %w", err)
	}
	return exists, nil
}

// ListByGuide returns reviews written about a guide, via the reviewed match.
func (r *ReviewRepo) ListByGuide(ctx context.Context, guideID uuid.UUID) ([]models.Review, error) {
	const q = `
		SELECT r.id, r.match_id, r.user_id, r.rating, r.review, r.created_at
		FROM reviews r
		JOIN match_requests m ON r.match_id = m.id
		WHERE m.guide_id = $1
		ORDER BY r.created_at DESC;
	`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, guideID)
	if err != nil {
		return nil, fmt.Errorf("review repo: ListByGuide: %w", err)
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		var rev models.Review
		err := rows.Scan(&rev.ID, &rev.MatchID, &rev.UserID, &rev.Rating, &rev.Review, &rev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("review repo: ListByGuide scan: %w", err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}
