package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/config"
	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
	"github.com/learnova/learnova-api/pkg/helpers"
	"github.com/learnova/learnova-api/pkg/mailer"
	"github.com/learnova/learnova-api/pkg/mailer/templates"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotActive   = errors.New("account is not active")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrDeliveryFailure    = errors.New("could not send email")
	ErrUserNotFound       = errors.New("user not found")
)

const resetTokenTTL = time.Hour

// EmailPublisher pushes a job onto the email queue. Satisfied by
// helpers.RabbitPublisher; tests substitute a fake.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// TokenPair is an access/refresh token pair with signature expiries,
// used by handlers to set cookie lifetimes.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// RequestMeta carries per-request context for notification emails.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// ForgotPasswordResult distinguishes "email dispatched" from "a reset
// was already requested recently". Both map to HTTP 200.
type ForgotPasswordResult struct {
	Cooldown    bool
	MinutesLeft int
	ExpiresAt   time.Time
}

type AuthService struct {
	Repo repository.UserRepository
	JWT  *helpers.JWTManager
	Log  *logrus.Logger
	Cfg  *config.Config
	Pub  EmailPublisher
}

func NewAuthService(repo repository.UserRepository, jwt *helpers.JWTManager, log *logrus.Logger, cfg *config.Config, pub EmailPublisher) *AuthService {
	return &AuthService{Repo: repo, JWT: jwt, Log: log, Cfg: cfg, Pub: pub}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new active user and signs them in immediately.
// The first refresh token is seeded onto the session list before the
// single insert so no second write is needed.
func (s *AuthService) Register(in RegisterInput, meta RequestMeta) (*entity.User, *TokenPair, error) {
	u := &entity.User{
		ID:     uuid.NewString(),
		Email:  normalizeEmail(in.Email),
		Name:   strings.TrimSpace(in.Name),
		Role:   entity.RoleStudent,
		Status: entity.StatusActive,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, nil, err
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return nil, nil, err
	}
	u.RefreshTokens.Add(pair.RefreshToken)

	if err := s.Repo.Create(u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	s.notify(templates.Welcome, u.Email, templates.NewWelcomeData(s.Cfg, u.Name, u.Email))
	return u, pair, nil
}

// Login verifies credentials and appends a fresh session. Callers must
// not leak which of the three failure modes occurred; the handler
// collapses them into one response.
func (s *AuthService) Login(email, password string, meta RequestMeta) (*entity.User, *TokenPair, error) {
	u, err := s.Repo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !u.CheckPassword(password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !u.CanAuthenticate() {
		return nil, nil, ErrAccountNotActive
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	u.LastLogin = &now
	u.RefreshTokens.Add(pair.RefreshToken)

	if err := s.Repo.Update(u); err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token: the presented token is consumed and
// a new pair takes its place. Every failure mode collapses into
// ErrInvalidToken, including losing the version race to a concurrent
// rotation of the same token.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	u, err := s.Repo.GetByID(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !u.CanAuthenticate() || !u.RefreshTokens.Contains(refreshToken) {
		return nil, ErrInvalidToken
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return nil, err
	}
	u.RefreshTokens.Remove(refreshToken)
	u.RefreshTokens.Add(pair.RefreshToken)

	if err := s.Repo.Update(u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.Log.WithField("userID", u.ID).Warn("refresh rotation lost version race")
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return pair, nil
}

// Logout removes one session. It is idempotent: an unknown user or a
// token that is not on the list both succeed silently.
func (s *AuthService) Logout(userID, refreshToken string) error {
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !u.RefreshTokens.Contains(refreshToken) {
		return nil
	}
	u.RefreshTokens.Remove(refreshToken)
	return s.Repo.Update(u)
}

// LogoutAll drops every session for the user.
func (s *AuthService) LogoutAll(userID string) error {
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	u.RefreshTokens.Clear()
	return s.Repo.Update(u)
}

// ChangePassword replaces the password after verifying the current one
// and revokes every session, forcing re-login on all devices.
func (s *AuthService) ChangePassword(userID, currentPassword, newPassword string, meta RequestMeta) error {
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !u.CheckPassword(currentPassword) {
		return ErrWrongPassword
	}
	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	u.RefreshTokens.Clear()

	if err := s.Repo.Update(u); err != nil {
		return err
	}

	s.notify(templates.PasswordChanged, u.Email, templates.NewPasswordChangedData(
		s.Cfg, u.Name, u.Email,
		templates.WithIP(meta.IP), templates.WithUserAgent(meta.UserAgent), templates.WithTime(time.Now()),
	))
	return nil
}

// ForgotPassword stores a hashed single-use reset token and queues the
// reset email. Unknown emails succeed without any observable
// difference. A still-live previous token short-circuits into a
// cooldown result instead of minting a second token.
func (s *AuthService) ForgotPassword(email string, meta RequestMeta) (*ForgotPasswordResult, error) {
	u, err := s.Repo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &ForgotPasswordResult{}, nil
		}
		return nil, err
	}

	now := time.Now()
	if u.HasLiveResetToken(now) {
		left := u.ResetPasswordExpire.Sub(now)
		minutes := int((left + time.Minute - 1) / time.Minute)
		return &ForgotPasswordResult{
			Cooldown:    true,
			MinutesLeft: minutes,
			ExpiresAt:   *u.ResetPasswordExpire,
		}, nil
	}

	raw, err := helpers.GenerateToken(32)
	if err != nil {
		return nil, err
	}
	u.SetResetToken(helpers.HashToken(raw), now.Add(resetTokenTTL))
	if err := s.Repo.Update(u); err != nil {
		return nil, err
	}

	resetURL := s.Cfg.ResetPasswordURL + "/" + raw
	job := mailer.EmailJob{
		To:       u.Email,
		Template: templates.ForgotPassword,
		Data: templates.NewForgotPasswordData(s.Cfg, u.Name, u.Email, resetURL,
			templates.WithExpiresAt(*u.ResetPasswordExpire)),
	}
	// This publish is awaited. If the email cannot be queued the token
	// would be unreachable forever, so roll it back and report failure.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		s.Log.WithError(err).Error("failed to queue password reset email")
		u.ClearResetToken()
		if rbErr := s.Repo.Update(u); rbErr != nil {
			s.Log.WithError(rbErr).Error("failed to roll back reset token")
		}
		return nil, ErrDeliveryFailure
	}
	return &ForgotPasswordResult{ExpiresAt: *u.ResetPasswordExpire}, nil
}

// ResetPassword consumes a live reset token: the new password is set,
// the ledger slot is cleared and every session is revoked in one write.
func (s *AuthService) ResetPassword(rawToken, newPassword string, meta RequestMeta) error {
	u, err := s.Repo.GetByResetTokenHash(helpers.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !u.HasLiveResetToken(time.Now()) {
		return ErrInvalidResetToken
	}

	if err := u.SetPassword(newPassword); err != nil {
		return err
	}
	u.ClearResetToken()
	u.RefreshTokens.Clear()

	if err := s.Repo.Update(u); err != nil {
		return err
	}

	s.notify(templates.PasswordReset, u.Email, templates.NewPasswordResetData(
		s.Cfg, u.Name, u.Email,
		templates.WithIP(meta.IP), templates.WithUserAgent(meta.UserAgent), templates.WithTime(time.Now()),
	))
	return nil
}

func (s *AuthService) issuePair(userID string) (*TokenPair, error) {
	access, accessExp, err := s.JWT.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.JWT.GenerateRefreshToken(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// notify queues a fire-and-forget notification email. Failures are
// logged and never surface to the caller.
func (s *AuthService) notify(template, to string, data map[string]any) {
	job := mailer.EmailJob{To: to, Template: template, Data: data}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		s.Log.WithError(err).WithField("template", template).Warn("failed to queue notification email")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
