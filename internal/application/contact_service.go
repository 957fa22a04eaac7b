package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/config"
	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
	"github.com/learnova/learnova-api/pkg/mailer"
	"github.com/learnova/learnova-api/pkg/mailer/templates"
)

type ContactService struct {
	Repo repository.ContactRepository
	Pub  EmailPublisher
	Log  *logrus.Logger
	Cfg  *config.Config
}

func NewContactService(repo repository.ContactRepository, pub EmailPublisher, log *logrus.Logger, cfg *config.Config) *ContactService {
	return &ContactService{Repo: repo, Pub: pub, Log: log, Cfg: cfg}
}

type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Submit persists a contact-form message and notifies the support
// inbox. The message survives even when the notification cannot be
// queued.
func (s *ContactService) Submit(in ContactInput) (*entity.ContactMessage, error) {
	m := &entity.ContactMessage{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(in.Name),
		Email:   normalizeEmail(in.Email),
		Subject: strings.TrimSpace(in.Subject),
		Message: in.Message,
	}
	if err := s.Repo.Create(m); err != nil {
		return nil, err
	}

	if s.Cfg.ContactInbox != "" {
		job := mailer.EmailJob{
			To:       s.Cfg.ContactInbox,
			Template: templates.ContactMessage,
			Data:     templates.NewContactMessageData(s.Cfg, m.Name, m.Email, m.Subject, m.Message),
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Pub.PublishJSON(ctx, job); err != nil {
			s.Log.WithError(err).Warn("failed to queue contact notification")
		}
	}
	return m, nil
}
