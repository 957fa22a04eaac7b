package application

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnova/learnova-api/config"
	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/internal/domain/repository"
	"github.com/learnova/learnova-api/pkg/helpers"
	"github.com/learnova/learnova-api/pkg/mailer"
)

// fakeUserRepo is an in-memory UserRepository with the same optimistic
// concurrency behavior as the Postgres implementation.
type fakeUserRepo struct {
	mu           sync.Mutex
	byID         map[string]*entity.User
	conflictNext bool // force ErrConflict on the next Update
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*entity.User)}
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	c.RefreshTokens = append(entity.SessionList(nil), u.RefreshTokens...)
	if u.ResetPasswordToken != nil {
		v := *u.ResetPasswordToken
		c.ResetPasswordToken = &v
	}
	if u.ResetPasswordExpire != nil {
		v := *u.ResetPasswordExpire
		c.ResetPasswordExpire = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		c.LastLogin = &v
	}
	return &c
}

func (r *fakeUserRepo) Create(u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.Version = 1
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *fakeUserRepo) GetByID(id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByResetTokenHash(hash string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == hash {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictNext {
		r.conflictNext = false
		return repository.ErrConflict
	}
	stored, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != u.Version {
		return repository.ErrConflict
	}
	u.Version++
	u.UpdatedAt = time.Now()
	r.byID[u.ID] = cloneUser(u)
	return nil
}

// stored returns the canonical copy for assertions.
func (r *fakeUserRepo) stored(t *testing.T, id string) *entity.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	require.True(t, ok, "user %s not in repo", id)
	return cloneUser(u)
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	fail bool
}

func (p *fakePublisher) PublishJSON(_ context.Context, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return assert.AnError
	}
	if job, ok := v.(mailer.EmailJob); ok {
		p.jobs = append(p.jobs, job)
	}
	return nil
}

func (p *fakePublisher) jobsFor(template string) []mailer.EmailJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []mailer.EmailJob
	for _, j := range p.jobs {
		if j.Template == template {
			out = append(out, j)
		}
	}
	return out
}

func newTestAuthService() (*AuthService, *fakeUserRepo, *fakePublisher) {
	repo := newFakeUserRepo()
	pub := &fakePublisher{}
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		AppName:          "learnova",
		CompanyName:      "Learnova",
		ResetPasswordURL: "https://app.learnova.test/reset-password",
	}
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 168*time.Hour)
	return NewAuthService(repo, jwt, log, cfg, pub), repo, pub
}

func register(t *testing.T, svc *AuthService, email string) (*entity.User, *TokenPair) {
	t.Helper()
	u, pair, err := svc.Register(RegisterInput{Email: email, Password: "hunter22222", Name: "Test User"}, RequestMeta{})
	require.NoError(t, err)
	return u, pair
}

func TestRegister(t *testing.T) {
	svc, repo, pub := newTestAuthService()

	u, pair, err := svc.Register(RegisterInput{
		Email:    "  Alice@Example.COM ",
		Password: "hunter22222",
		Name:     "Alice",
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email, "email must be normalized")
	assert.Equal(t, entity.RoleStudent, u.Role)
	assert.Equal(t, entity.StatusActive, u.Status)
	require.NotNil(t, pair)

	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	stored := repo.stored(t, u.ID)
	assert.True(t, stored.RefreshTokens.Contains(pair.RefreshToken), "first session seeded on register")
	assert.Len(t, pub.jobsFor("welcome"), 1)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService()
	register(t, svc, "dup@example.com")

	_, _, err := svc.Register(RegisterInput{Email: "DUP@example.com", Password: "hunter22222", Name: "Dup"}, RequestMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u, _ := register(t, svc, "bob@example.com")

	got, pair, err := svc.Login("bob@example.com", "hunter22222", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.LastLogin)

	stored := repo.stored(t, u.ID)
	assert.True(t, stored.RefreshTokens.Contains(pair.RefreshToken))
	assert.Len(t, stored.RefreshTokens, 2, "register session plus login session")
}

func TestLoginFailureModes(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u, _ := register(t, svc, "carol@example.com")

	_, _, err := svc.Login("nobody@example.com", "hunter22222", RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("carol@example.com", "wrong-password", RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	repo.mu.Lock()
	repo.byID[u.ID].Status = entity.StatusSuspended
	repo.mu.Unlock()
	_, _, err = svc.Login("carol@example.com", "hunter22222", RequestMeta{})
	assert.ErrorIs(t, err, ErrAccountNotActive)
}

func TestLoginEvictsOldestSession(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u, registerPair := register(t, svc, "dave@example.com")

	var pairs []*TokenPair
	for i := 0; i < entity.MaxSessions; i++ {
		_, pair, err := svc.Login("dave@example.com", "hunter22222", RequestMeta{})
		require.NoError(t, err)
		pairs = append(pairs, pair)
	}

	stored := repo.stored(t, u.ID)
	assert.Len(t, stored.RefreshTokens, entity.MaxSessions)
	assert.False(t, stored.RefreshTokens.Contains(registerPair.RefreshToken), "oldest session evicted")
	for _, pair := range pairs {
		assert.True(t, stored.RefreshTokens.Contains(pair.RefreshToken))
	}
}

func TestRefreshRotates(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u, pair := register(t, svc, "erin@example.com")

	newPair, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	stored := repo.stored(t, u.ID)
	assert.False(t, stored.RefreshTokens.Contains(pair.RefreshToken), "consumed token removed")
	assert.True(t, stored.RefreshTokens.Contains(newPair.RefreshToken))
	assert.Len(t, stored.RefreshTokens, 1, "rotation must not grow the list")

	// The consumed token is single use.
	_, err = svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMultiDeviceScenario(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u, _ := register(t, svc, "pam@example.com")
	require.NoError(t, svc.LogoutAll(u.ID))

	_, device1, err := svc.Login("pam@example.com", "hunter22222", RequestMeta{})
	require.NoError(t, err)
	assert.Len(t, repo.stored(t, u.ID).RefreshTokens, 1)

	_, device2, err := svc.Login("pam@example.com", "hunter22222", RequestMeta{})
	require.NoError(t, err)
	assert.Len(t, repo.stored(t, u.ID).RefreshTokens, 2)

	require.NoError(t, svc.Logout(u.ID, device1.RefreshToken))
	stored := repo.stored(t, u.ID)
	assert.Len(t, stored.RefreshTokens, 1)
	assert.True(t, stored.RefreshTokens.Contains(device2.RefreshToken), "other device stays logged in")

	require.NoError(t, svc.LogoutAll(u.ID))
	assert.Empty(t, repo.stored(t, u.ID).RefreshTokens)
}

func TestRefreshExpiredTokenIsGeneric(t *testing.T) {
	svc, _, _ := newTestAuthService()
	svc.JWT = helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, -time.Second)

	_, pair := register(t, svc, "quinn@example.com")
	_, err := svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired refresh must yield the same generic error")
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuthService()
	_, err := svc.Refresh("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	u, pair := register(t, svc, "frank@example.com")

	require.NoError(t, svc.LogoutAll(u.ID))
	_, err := svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshConflictLooksInvalid(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	_, pair := register(t, svc, "gina@example.com")

	repo.conflictNext = true
	_, err := svc.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "losing the rotation race must look like any other bad token")
}

func TestLogout(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u, pair := register(t, svc, "hank@example.com")

	require.NoError(t, svc.Logout(u.ID, pair.RefreshToken))
	assert.Empty(t, repo.stored(t, u.ID).RefreshTokens)

	// Idempotent: absent token and unknown user both succeed.
	require.NoError(t, svc.Logout(u.ID, pair.RefreshToken))
	require.NoError(t, svc.Logout("no-such-user", pair.RefreshToken))
}

func TestLogoutAll(t *testing.T) {
	svc, repo, _ := newTestAuthService()
	u, _ := register(t, svc, "iris@example.com")
	for i := 0; i < 3; i++ {
		_, _, err := svc.Login("iris@example.com", "hunter22222", RequestMeta{})
		require.NoError(t, err)
	}

	require.NoError(t, svc.LogoutAll(u.ID))
	assert.Empty(t, repo.stored(t, u.ID).RefreshTokens)
}

func TestChangePassword(t *testing.T) {
	svc, repo, pub := newTestAuthService()
	u, _ := register(t, svc, "jack@example.com")

	before := repo.stored(t, u.ID)
	err := svc.ChangePassword(u.ID, "wrong-password", "newpassword1", RequestMeta{})
	assert.ErrorIs(t, err, ErrWrongPassword)

	// A rejected change must leave hash and sessions untouched.
	after := repo.stored(t, u.ID)
	assert.Equal(t, before.Password, after.Password)
	assert.Equal(t, before.RefreshTokens, after.RefreshTokens)

	require.NoError(t, svc.ChangePassword(u.ID, "hunter22222", "newpassword1", RequestMeta{IP: "1.2.3.4"}))

	stored := repo.stored(t, u.ID)
	assert.Empty(t, stored.RefreshTokens, "all sessions revoked")
	assert.False(t, stored.CheckPassword("hunter22222"))
	assert.True(t, stored.CheckPassword("newpassword1"))
	assert.Len(t, pub.jobsFor("password_changed"), 1)

	_, _, err = svc.Login("jack@example.com", "newpassword1", RequestMeta{})
	require.NoError(t, err)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, pub := newTestAuthService()

	res, err := svc.ForgotPassword("ghost@example.com", RequestMeta{})
	require.NoError(t, err, "unknown email must not be distinguishable")
	assert.False(t, res.Cooldown)
	assert.Empty(t, pub.jobs)
}

func TestForgotPasswordIssuesToken(t *testing.T) {
	svc, repo, pub := newTestAuthService()
	u, _ := register(t, svc, "kate@example.com")

	res, err := svc.ForgotPassword("kate@example.com", RequestMeta{})
	require.NoError(t, err)
	assert.False(t, res.Cooldown)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	stored := repo.stored(t, u.ID)
	require.NotNil(t, stored.ResetPasswordToken)
	require.NotNil(t, stored.ResetPasswordExpire)

	jobs := pub.jobsFor("forgot_password")
	require.Len(t, jobs, 1)
	resetURL, _ := jobs[0].Data["ResetURL"].(string)
	raw := strings.TrimPrefix(resetURL, svc.Cfg.ResetPasswordURL+"/")
	require.NotEmpty(t, raw)
	assert.Equal(t, helpers.HashToken(raw), *stored.ResetPasswordToken, "only the hash is stored")
}

func TestForgotPasswordCooldown(t *testing.T) {
	svc, _, pub := newTestAuthService()
	register(t, svc, "liam@example.com")

	_, err := svc.ForgotPassword("liam@example.com", RequestMeta{})
	require.NoError(t, err)

	res, err := svc.ForgotPassword("liam@example.com", RequestMeta{})
	require.NoError(t, err)
	assert.True(t, res.Cooldown)
	assert.Greater(t, res.MinutesLeft, 0)
	assert.LessOrEqual(t, res.MinutesLeft, 60)
	assert.Len(t, pub.jobsFor("forgot_password"), 1, "no second token while one is live")
}

func TestForgotPasswordRollbackOnPublishFailure(t *testing.T) {
	svc, repo, pub := newTestAuthService()
	u, _ := register(t, svc, "mona@example.com")

	pub.fail = true
	_, err := svc.ForgotPassword("mona@example.com", RequestMeta{})
	assert.ErrorIs(t, err, ErrDeliveryFailure)

	stored := repo.stored(t, u.ID)
	assert.Nil(t, stored.ResetPasswordToken, "unreachable token must be rolled back")
	assert.Nil(t, stored.ResetPasswordExpire)

	// A later attempt works once delivery recovers.
	pub.fail = false
	res, err := svc.ForgotPassword("mona@example.com", RequestMeta{})
	require.NoError(t, err)
	assert.False(t, res.Cooldown)
}

func forgotAndExtractToken(t *testing.T, svc *AuthService, pub *fakePublisher, email string) string {
	t.Helper()
	_, err := svc.ForgotPassword(email, RequestMeta{})
	require.NoError(t, err)
	jobs := pub.jobsFor("forgot_password")
	require.NotEmpty(t, jobs)
	resetURL, _ := jobs[len(jobs)-1].Data["ResetURL"].(string)
	raw := strings.TrimPrefix(resetURL, svc.Cfg.ResetPasswordURL+"/")
	require.NotEmpty(t, raw)
	return raw
}

func TestResetPassword(t *testing.T) {
	svc, repo, pub := newTestAuthService()
	u, _ := register(t, svc, "nina@example.com")
	raw := forgotAndExtractToken(t, svc, pub, "nina@example.com")

	require.NoError(t, svc.ResetPassword(raw, "brandnewpass1", RequestMeta{}))

	stored := repo.stored(t, u.ID)
	assert.Nil(t, stored.ResetPasswordToken, "ledger cleared on use")
	assert.Empty(t, stored.RefreshTokens, "all sessions revoked")
	assert.True(t, stored.CheckPassword("brandnewpass1"))
	assert.Len(t, pub.jobsFor("password_reset"), 1)

	// Single use.
	err := svc.ResetPassword(raw, "anotherpass1", RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, repo, pub := newTestAuthService()
	u, _ := register(t, svc, "omar@example.com")
	raw := forgotAndExtractToken(t, svc, pub, "omar@example.com")

	repo.mu.Lock()
	past := time.Now().Add(-time.Minute)
	repo.byID[u.ID].ResetPasswordExpire = &past
	repo.mu.Unlock()

	err := svc.ResetPassword(raw, "brandnewpass1", RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordBogusToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	err := svc.ResetPassword("bogus-token", "brandnewpass1", RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
