package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/domain/types"
	"github.com/torimichi/guide-match-system/internal/geo"
	"github.com/torimichi/guide-match-system/pkg/uuid"
)

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user row. Name, email, role and the password hash must be
// set by the caller.
func (r *UserRepo) Create(ctx context.Context, u *models.User) (uuid.UUID, error) {
	if u == nil {
		return uuid.Nil, errors.New("nil user")
	}

	const q = `
		INSERT INTO users (name, email, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;
	`

	err := TxorDB(ctx, r.db).QueryRow(ctx, q, u.Name, u.Email, u.Role, u.GetPasswordHash()).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, types.ErrNotUniqueEmail
		}
		return uuid.Nil, fmt.Errorf("user repo: Create: %w", err)
	}
	return u.ID, nil
}

const userColumns = `
	id, name, email, role, password_hash,
	origin, comment, avatar_url, guide_mode,
	polygon, location, created_at, updated_at`

// GetByEmail fetches by email (unique). Missing user returns (nil, nil).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}
	return r.getWhere(ctx, "email = $1", email)
}

// Get fetches by id. Missing user returns (nil, nil).
func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id.IsZero() {
		return nil, errors.New("id is required")
	}
	return r.getWhere(ctx, "id = $1", id)
}

func (r *UserRepo) getWhere(ctx context.Context, where string, arg any) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + `;`

	var (
		u            models.User
		passwordHash string
		polygonJSON  []byte
		locationJSON []byte
	)
	err := TxorDB(ctx, r.db).QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &passwordHash,
		&u.Origin, &u.Comment, &u.AvatarURL, &u.GuideMode,
		&polygonJSON, &locationJSON, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user repo: get: %w", err)
	}

	u.SetPasswordHash(passwordHash)
	if len(polygonJSON) > 0 {
		if err := json.Unmarshal(polygonJSON, &u.Polygon); err != nil {
			return nil, fmt.Errorf("user repo: bad polygon json: %w", err)
		}
	}
	if len(locationJSON) > 0 {
		var loc geo.Coordinate
		if err := json.Unmarshal(locationJSON, &loc); err != nil {
			return nil, fmt.Errorf("user repo: bad location json: %w", err)
		}
		u.Location = &loc
	}
	return &u, nil
}

// Update writes the editable profile fields and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("nil user")
	}

	polygonJSON, err := json.Marshal(u.Polygon)
	if err != nil {
		return nil, fmt.Errorf("user repo: marshal polygon: %w", err)
	}
	var locationJSON []byte
	if u.Location != nil {
		locationJSON, err = json.Marshal(u.Location)
		if err != nil {
			return nil, fmt.Errorf("user repo: marshal location: %w", err)
		}
	}

	const q = `
		UPDATE users
		SET name = $2, origin = $3, comment = $4, avatar_url = $5,
		    guide_mode = $6, polygon = $7::jsonb, location = $8::jsonb,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at;
	`

	err = TxorDB(ctx, r.db).QueryRow(ctx, q,
		u.ID, u.Name, u.Origin, u.Comment, u.AvatarURL,
		u.GuideMode, polygonJSON, locationJSON,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repo: Update: %w", err)
	}
	return u, nil
}

// ListGuides returns every guide account, used to warm the directory
// projection on startup.
func (r *UserRepo) ListGuides(ctx context.Context) ([]models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE role = $1;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, q, types.RoleGuide.String())
	if err != nil {
		return nil, fmt.Errorf("user repo: ListGuides: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var (
			u            models.User
			passwordHash string
			polygonJSON  []byte
			locationJSON []byte
		)
		err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Role, &passwordHash,
			&u.Origin, &u.Comment, &u.AvatarURL, &u.GuideMode,
			&polygonJSON, &locationJSON, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("user repo: ListGuides scan: %w", err)
		}
		u.SetPasswordHash(passwordHash)
		if len(polygonJSON) > 0 {
			if err := json.Unmarshal(polygonJSON, &u.Polygon); err != nil {
				return nil, fmt.Errorf("user repo: bad polygon json: %w", err)
			}
		}
		if len(locationJSON) > 0 {
			var loc geo.Coordinate
			if err := json.Unmarshal(locationJSON, &loc); err != nil {
				return nil, fmt.Errorf("user repo: bad location json: %w", err)
			}
			u.Location = &loc
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
