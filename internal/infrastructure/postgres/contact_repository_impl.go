package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func (r *ContactRepository) Create(m *entity.ContactMessage) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contact_messages (id, name, email, subject, message)
		VALUES ($1, $2, lower($3), $4, $5)
		RETURNING created_at
	`, m.ID, m.Name, m.Email, m.Subject, m.Message)
	return row.Scan(&m.CreatedAt)
}

var _ repository.ContactRepository = (*ContactRepository)(nil)
