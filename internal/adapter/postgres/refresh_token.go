package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type RefreshTokenRepo struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepo(db *pgxpool.Pool) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

func (r *RefreshTokenRepo) Save(ctx context.Context, record *models.RefreshTokenRecord) error {
	if record == nil {
		return errors.New("refresh token record is nil")
	}

	const q = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
		ON CONFLICT (id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    revoked    = EXCLUDED.revoked;
	`

	_, err := TxorDB(ctx, r.db).Exec(ctx, q,
		record.ID, record.UserID, record.TokenHash, record.ExpiresAt, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("refresh token repo: Save: %w", err)
	}
	return nil
}

// Get returns the record or (nil, nil) when absent.
func (r *RefreshTokenRepo) Get(ctx context.Context, id uuid.UUID) (*models.RefreshTokenRecord, error) {
	const q = `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE id = $1;
	`

	var rec models.RefreshTokenRecord
	err := TxorDB(ctx, r.db).QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.Revoked, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("refresh token repo: Get: %w", err)
	}
	return &rec, nil
}

func (r *RefreshTokenRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE refresh_tokens SET revoked = true WHERE id = $1;`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, q, id); err != nil {
		return fmt.Errorf("refresh token repo: MarkUsed: %w", err)
	}
	return nil
}
