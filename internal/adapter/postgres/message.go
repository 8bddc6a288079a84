package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/metrics"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type MessageRepo struct {
	db *pgxpool.Pool
}

func NewMessageRepo(db *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{db: db}
}

// Insert persists a message and returns it with its store identity. seq is a
// bigserial, so arrival order is total even when created_at collides.
func (r *MessageRepo) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}

	const q = `
		INSERT INTO messages (match_id, sender_id, text, client_tag)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id, seq, created_at;
	`

	durable := *msg
	start := time.Now()
	err := TxorDB(ctx, r.db).QueryRow(ctx, q,
		msg.MatchID, msg.SenderID, msg.Text, msg.ClientTag,
	).Scan(&durable.ID, &durable.Seq, &durable.CreatedAt)
	metrics.RecordDatabaseQuery("chat", "insert_message", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("message repo: Insert: %w", err)
	}
	return &durable, nil
}

func (r *MessageRepo) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]models.Message, error) {
	const q = `
		SELECT id, seq, match_id, sender_id, text, COALESCE(client_tag, ''), created_at
		FROM messages
		WHERE match_id = $1
		ORDER BY created_at ASC, seq ASC;
	`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, matchID)
	if err != nil {
		return nil, fmt.Errorf("message repo: ListByMatch: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		err := rows.Scan(&m.ID, &m.Seq, &m.MatchID, &m.SenderID, &m.Text, &m.ClientTag, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("message repo: ListByMatch scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
