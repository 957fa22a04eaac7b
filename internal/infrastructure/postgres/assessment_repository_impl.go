package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
)

type AssessmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

func (r *AssessmentRepository) Create(a *entity.Assessment) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO assessments (id, owner_id, title, description, subject, difficulty, duration_minutes, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, a.ID, a.OwnerID, a.Title, a.Description, a.Subject, a.Difficulty, a.DurationMinutes, a.Published)
	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AssessmentRepository) GetByID(id string) (*entity.Assessment, error) {
	ctx := context.Background()
	a := &entity.Assessment{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, description, subject, difficulty, duration_minutes, published, created_at, updated_at
		FROM assessments
		WHERE id = $1
	`, id)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.Subject,
		&a.Difficulty, &a.DurationMinutes, &a.Published, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AssessmentRepository) ListByOwner(ownerID string, limit, offset int) ([]*entity.Assessment, error) {
	ctx := context.Background()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, title, description, subject, difficulty, duration_minutes, published, created_at, updated_at
		FROM assessments
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.Assessment, 0, limit)
	for rows.Next() {
		a := &entity.Assessment{}
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.Subject,
			&a.Difficulty, &a.DurationMinutes, &a.Published, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssessmentRepository) Update(a *entity.Assessment) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `
		UPDATE assessments
		SET title = $1, description = $2, subject = $3, difficulty = $4,
			duration_minutes = $5, published = $6, updated_at = now()
		WHERE id = $7
	`, a.Title, a.Description, a.Subject, a.Difficulty, a.DurationMinutes, a.Published, a.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AssessmentRepository) Delete(id string) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.AssessmentRepository = (*AssessmentRepository)(nil)
