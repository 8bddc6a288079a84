package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

// MatchEventRepo is the append-only lifecycle history of match requests.
type MatchEventRepo struct {
	db *pgxpool.Pool
}

func NewMatchEventRepo(db *pgxpool.Pool) *MatchEventRepo {
	return &MatchEventRepo{db: db}
}

func (r *MatchEventRepo) Append(ctx context.Context, rec *models.MatchEventRecord) error {
	const q = `
		INSERT INTO match_events (match_id, actor_id, event, old_status, new_status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id, created_at;
	`

	err := TxorDB(ctx, r.db).QueryRow(ctx, q,
		rec.MatchID, rec.ActorID, rec.Event, rec.OldStatus.String(), rec.NewStatus.String(),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("match event repo: Append: %w", err)
	}
	return nil
}

// ListByMatch returns the lifecycle history oldest first.
func (r *MatchEventRepo) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]models.MatchEventRecord, error) {
	const q = `
		SELECT id, match_id, actor_id, event, COALESCE(old_status, ''), COALESCE(new_status, ''), created_at
		FROM match_events
		WHERE match_id = $1
		ORDER BY created_at ASC;
	`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, matchID)
	if err != nil {
		return nil, fmt.Errorf("match event repo: ListByMatch: %w", err)
	}
	defer rows.Close()

	var out []models.MatchEventRecord
	for rows.Next() {
		var rec models.MatchEventRecord
		err := rows.Scan(&rec.ID, &rec.MatchID, &rec.ActorID, &rec.Event, &rec.OldStatus, &rec.NewStatus, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("match event repo: ListByMatch scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
