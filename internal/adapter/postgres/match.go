package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type MatchRepo struct {
	db *pgxpool.Pool
}

func NewMatchRepo(db *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{db: db}
}

func (r *MatchRepo) Create(ctx context.Context, m *models.MatchRequest) (*models.MatchRequest, error) {
	const q = `
		INSERT INTO match_requests (tourist_id, guide_id, status, date, time_slot, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at;
	`

	start := time.Now()
	err := TxorDB(ctx, r.db).QueryRow(ctx, q,
		m.TouristID, m.GuideID, m.Status, m.Date, m.TimeSlot, m.Notes,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	metrics.RecordDatabaseQuery("matching", "insert_match", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("match repo: Create: %w", err)
	}
	return m, nil
}

func (r *MatchRepo) Get(ctx context.Context, id uuid.UUID) (*models.MatchRequest, error) {
	const q = `
		SELECT id, tourist_id, guide_id, status, date, time_slot, notes, created_at, updated_at
		FROM match_requests
		WHERE id = $1;
	`

	var m models.MatchRequest
	err := TxorDB(ctx, r.db).QueryRow(ctx, q, id).Scan(
		&m.ID, &m.TouristID, &m.GuideID, &m.Status,
		&m.Date, &m.TimeSlot, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrMatchNotFound
		}
		return nil, fmt.Errorf("match repo: Get: %w", err)
	}
	return &m, nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.MatchRequest, error) {
	const q = `
		SELECT id, tourist_id, guide_id, status, date, time_slot, notes, created_at, updated_at
		FROM match_requests
		WHERE tourist_id = $1 OR guide_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("match repo: ListForUser: %w", err)
	}
	defer rows.Close()

	var out []models.MatchRequest
	for rows.Next() {
		var m models.MatchRequest
		err := rows.Scan(
			&m.ID, &m.TouristID, &m.GuideID, &m.Status,
			&m.Date, &m.TimeSlot, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("match repo: ListForUser scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// HasOpenRequest reports whether the pair already has a request that is not
// in a terminal state.
func (r *MatchRepo) HasOpenRequest(ctx context.Context, touristID, guideID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM match_requests
			WHERE tourist_id = $1 AND guide_id = $2 AND status IN ($3, $4)
		);
	`

	var exists bool
	err := TxorDB(ctx, r.db).QueryRow(ctx, q,
		touristID, guideID, types.StatusPending, types.StatusAccepted,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("match repo: HasOpenRequest: %w", err)
	}
	return exists, nil
}

// SetStatus is a compare-and-set on the status column. A zero rows-affected
// result means the row moved under us and is reported as (false, nil).
func (r *MatchRepo) SetStatus(ctx context.Context, id uuid.UUID, old, new types.MatchStatus) (bool, error) {
	const q = `
		UPDATE match_requests
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2;
	`

	start := time.Now()
	tag, err := TxorDB(ctx, r.db).Exec(ctx, q, id, old, new)
	metrics.RecordDatabaseQuery("matching", "update_match_status", err, time.Since(start))
	if err != nil {
		return false, fmt.Errorf("match repo: SetStatus: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
