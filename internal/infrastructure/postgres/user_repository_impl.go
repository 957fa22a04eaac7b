package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, name, role, status, avatar_url,
	refresh_tokens, reset_password_token, reset_password_expire, last_login,
	version, created_at, updated_at`

func (r *UserRepository) Create(u *entity.User) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, status, avatar_url, refresh_tokens)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8)
		RETURNING version, created_at, updated_at
	`, u.ID, u.Email, u.Password, u.Name, u.Role, u.Status, u.AvatarURL, []string(u.RefreshTokens))

	if err := row.Scan(&u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(id string) (*entity.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(email string) (*entity.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
}

func (r *UserRepository) GetByResetTokenHash(hash string) (*entity.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE reset_password_token = $1`, hash)
}

func (r *UserRepository) getOne(query string, arg any) (*entity.User, error) {
	ctx := context.Background()
	u := &entity.User{}
	var tokens []string

	row := r.pool.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Role, &u.Status,
		&u.AvatarURL, &tokens, &u.ResetPasswordToken, &u.ResetPasswordExpire,
		&u.LastLogin, &u.Version, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.RefreshTokens = entity.SessionList(tokens)
	return u, nil
}

// Update writes the whole aggregate in one statement, guarded by the
// version column. A zero-row result means another writer won the race.
func (r *UserRepository) Update(u *entity.User) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = lower($1), password_hash = $2, name = $3, role = $4, status = $5,
			avatar_url = $6, refresh_tokens = $7, reset_password_token = $8,
			reset_password_expire = $9, last_login = $10,
			version = version + 1, updated_at = now()
		WHERE id = $11 AND version = $12
		RETURNING version, updated_at
	`, u.Email, u.Password, u.Name, u.Role, u.Status, u.AvatarURL,
		[]string(u.RefreshTokens), u.ResetPasswordToken, u.ResetPasswordExpire,
		u.LastLogin, u.ID, u.Version)

	if err := row.Scan(&u.Version, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
