package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/config"
	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
)

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrNotOwner           = errors.New("not the owner of this assessment")
)

type AssessmentService struct {
	Repo repository.AssessmentRepository
	ES   *elasticsearch.Client
	Log  *logrus.Logger
	Cfg  *config.Config
}

func NewAssessmentService(repo repository.AssessmentRepository, es *elasticsearch.Client, log *logrus.Logger, cfg *config.Config) *AssessmentService {
	return &AssessmentService{Repo: repo, ES: es, Log: log, Cfg: cfg}
}

type AssessmentInput struct {
	Title           string
	Description     string
	Subject         string
	Difficulty      string
	DurationMinutes int
	Published       bool
}

func (s *AssessmentService) Create(ownerID string, in AssessmentInput) (*entity.Assessment, error) {
	a := &entity.Assessment{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Title:           in.Title,
		Description:     in.Description,
		Subject:         in.Subject,
		Difficulty:      in.Difficulty,
		DurationMinutes: in.DurationMinutes,
		Published:       in.Published,
	}
	if err := s.Repo.Create(a); err != nil {
		return nil, err
	}
	s.index(a)
	return a, nil
}

// Get returns an assessment. Drafts are only visible to their owner.
func (s *AssessmentService) Get(requesterID, id string) (*entity.Assessment, error) {
	a, err := s.Repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	if !a.Published && a.OwnerID != requesterID {
		return nil, ErrAssessmentNotFound
	}
	return a, nil
}

func (s *AssessmentService) ListMine(ownerID string, limit, offset int) ([]*entity.Assessment, error) {
	return s.Repo.ListByOwner(ownerID, limit, offset)
}

func (s *AssessmentService) Update(requesterID, id string, in AssessmentInput) (*entity.Assessment, error) {
	a, err := s.Repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	if a.OwnerID != requesterID {
		return nil, ErrNotOwner
	}

	a.Title = in.Title
	a.Description = in.Description
	a.Subject = in.Subject
	a.Difficulty = in.Difficulty
	a.DurationMinutes = in.DurationMinutes
	a.Published = in.Published

	if err := s.Repo.Update(a); err != nil {
		return nil, err
	}
	s.index(a)
	return a, nil
}

func (s *AssessmentService) Delete(requesterID, id string) error {
	a, err := s.Repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAssessmentNotFound
		}
		return err
	}
	if a.OwnerID != requesterID {
		return ErrNotOwner
	}
	if err := s.Repo.Delete(id); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.ES.Delete(s.Cfg.ESAssessmentsIndex, id,
		s.ES.Delete.WithContext(ctx)); err != nil {
		s.Log.WithError(err).WithField("assessmentID", id).Warn("failed to remove assessment from search index")
	}
	return nil
}

// Search runs a full-text query over published assessments.
func (s *AssessmentService) Search(query string, limit int) ([]*entity.Assessment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	body := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  query,
						"fields": []string{"title^2", "description", "subject"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"published": true},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Cfg.ESAssessmentsIndex),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source entity.Assessment `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]*entity.Assessment, 0, len(parsed.Hits.Hits))
	for i := range parsed.Hits.Hits {
		a := parsed.Hits.Hits[i].Source
		out = append(out, &a)
	}
	return out, nil
}

// index mirrors the assessment into Elasticsearch. Postgres stays the
// source of truth, so indexing failures are logged and swallowed.
func (s *AssessmentService) index(a *entity.Assessment) {
	doc, err := json.Marshal(a)
	if err != nil {
		s.Log.WithError(err).Error("failed to marshal assessment for indexing")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.ES.Index(s.Cfg.ESAssessmentsIndex, bytes.NewReader(doc),
		s.ES.Index.WithDocumentID(a.ID),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		s.Log.WithError(err).WithField("assessmentID", a.ID).Warn("failed to index assessment")
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.Log.WithField("status", res.Status()).WithField("assessmentID", a.ID).Warn("failed to index assessment")
	}
}
