package repository

import "github.com/learnova/learnova-api/internal/domain/entity"

// ContactRepository stores contact-form submissions.
type ContactRepository interface {
	Create(m *entity.ContactMessage) error
}
