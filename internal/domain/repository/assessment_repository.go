package repository

import "github.com/learnova/learnova-api/internal/domain/entity"

// AssessmentRepository defines persistence for assessments.
type AssessmentRepository interface {
	Create(a *entity.Assessment) error
	GetByID(id string) (*entity.Assessment, error)
	ListByOwner(ownerID string, limit, offset int) ([]*entity.Assessment, error)
	Update(a *entity.Assessment) error
	Delete(id string) error
}
