package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-user-session/internal/domain/entity"
	"github.com/oksasatya/go-user-session/internal/domain/repository"
)

const uniqueViolation = "23505"

const selectUser = `
		SELECT id, username, email, full_name, password_hash, avatar_url, cover_image_url,
		       refresh_token, created_at, updated_at
		FROM users
`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&u.AvatarURL, &u.CoverImageURL, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, usernameOrEmail string) (*entity.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+`
		WHERE username = $1 OR email = $1
		LIMIT 1
	`, usernameOrEmail))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user by identifier: %w", err)
	}
	return u, err
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+`
		WHERE username = $1 OR email = $2
		LIMIT 1
	`, username, email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user by username or email: %w", err)
	}
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+`
		WHERE id = $1
	`, id))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, full_name, password_hash, avatar_url, cover_image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Username, u.Email, u.FullName, u.PasswordHash, u.AvatarURL, u.CoverImageURL)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateIdentity
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// SaveRefreshToken writes only the refresh token column; profile fields are not revalidated.
func (r *UserRepository) SaveRefreshToken(ctx context.Context, id string, token *string) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET refresh_token = $1, updated_at = $2
		WHERE id = $3
	`, token, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET refresh_token = $1, updated_at = $2
		WHERE id = $3 AND refresh_token = $4
	`, next, time.Now().UTC(), id, current)
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
