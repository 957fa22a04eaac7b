package application

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/config"
	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
	"github.com/learnova/learnova-api/pkg/helpers"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

var avatarContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UserService struct {
	Repo repository.UserRepository
	GCS  *storage.Client
	Log  *logrus.Logger
	Cfg  *config.Config
}

func NewUserService(repo repository.UserRepository, gcs *storage.Client, log *logrus.Logger, cfg *config.Config) *UserService {
	return &UserService{Repo: repo, GCS: gcs, Log: log, Cfg: cfg}
}

func (s *UserService) GetProfile(userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) UpdateProfile(userID, name string) (*entity.User, error) {
	u, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(name)
	if err := s.Repo.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

// UploadAvatar stores the image in GCS under a fresh object name and
// points the profile at its public URL. The previous object, if any,
// is removed afterwards on a best-effort basis.
func (s *UserService) UploadAvatar(ctx context.Context, userID, contentType string, r io.Reader) (*entity.User, error) {
	ext, ok := avatarContentTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedImage
	}

	u, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	objectPath := path.Join("avatars", userID, uuid.NewString()+ext)
	url, err := helpers.UploadObject(ctx, s.GCS, s.Cfg.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}

	oldURL := u.AvatarURL
	u.AvatarURL = url
	if err := s.Repo.Update(u); err != nil {
		return nil, err
	}

	if old := s.objectPathFromURL(oldURL); old != "" {
		if err := helpers.DeleteObject(ctx, s.GCS, s.Cfg.GCSBucket, old); err != nil {
			s.Log.WithError(err).WithField("object", old).Warn("failed to delete previous avatar")
		}
	}
	return u, nil
}

func (s *UserService) objectPathFromURL(url string) string {
	prefix := helpers.PublicURL(s.Cfg.GCSBucket, "")
	if url == "" || !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
