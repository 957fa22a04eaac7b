package repository

import "github.com/learnova/learnova-api/internal/domain/entity"

// UserRepository defines persistence for the user aggregate. Update must
// write the whole aggregate (including the refresh-token list and reset
// slot) atomically, guarded by the version column.
type UserRepository interface {
	Create(u *entity.User) error
	GetByID(id string) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByResetTokenHash(hash string) (*entity.User, error)
	Update(u *entity.User) error
}
