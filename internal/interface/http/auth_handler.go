package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/internal/application"
	"github.com/learnova/learnova-api/internal/domain/entity"
	"github.com/learnova/learnova-api/pkg/helpers"
	"github.com/learnova/learnova-api/pkg/response"
	"github.com/learnova/learnova-api/pkg/validation"
)

type AuthHandler struct {
	Service *application.AuthService
	Log     *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAuthHandler(service *application.AuthService, log *logrus.Logger, cookies *helpers.CookieManager) *AuthHandler {
	return &AuthHandler{Service: service, Log: log, Cookies: cookies}
}

// UserSummary is the public view of a user returned by auth endpoints.
type UserSummary struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	AvatarURL string     `json:"avatarUrl"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toUserSummary(u *entity.User) UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Status:    string(u.Status),
		AvatarURL: u.AvatarURL,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

type authPayload struct {
	User   UserSummary            `json:"user"`
	Tokens *application.TokenPair `json:"tokens"`
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, pair, err := h.Service.Register(application.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	}, metaFrom(c))
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
			return
		}
		h.Log.WithError(err).Error("register failed")
		response.Error[any](c, http.StatusInternalServerError, "could not create account", nil)
		return
	}

	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	response.Success(c, http.StatusCreated, authPayload{User: toUserSummary(u), Tokens: pair}, "account created", nil)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, pair, err := h.Service.Login(req.Email, req.Password, metaFrom(c))
	if err != nil {
		// Unknown email, wrong password and inactive account must be
		// indistinguishable to the caller.
		if errors.Is(err, application.ErrInvalidCredentials) || errors.Is(err, application.ErrAccountNotActive) {
			response.Error[any](c, http.StatusUnauthorized, "invalid email or password", nil)
			return
		}
		h.Log.WithError(err).Error("login failed")
		response.Error[any](c, http.StatusInternalServerError, "could not log in", nil)
		return
	}

	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	response.Success(c, http.StatusOK, authPayload{User: toUserSummary(u), Tokens: pair}, "logged in", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	token := refreshTokenFrom(c)
	if token == "" {
		response.Error[any](c, http.StatusUnauthorized, "invalid or expired token", nil)
		return
	}

	pair, err := h.Service.Refresh(token)
	if err != nil {
		if errors.Is(err, application.ErrInvalidToken) {
			h.Cookies.Clear(c)
			response.Error[any](c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}
		h.Log.WithError(err).Error("refresh failed")
		response.Error[any](c, http.StatusInternalServerError, "could not refresh session", nil)
		return
	}

	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	response.Success(c, http.StatusOK, pair, "session refreshed", nil)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetString("userID")
	if token := refreshTokenFrom(c); token != "" {
		if err := h.Service.Logout(userID, token); err != nil {
			h.Log.WithError(err).Error("logout failed")
			response.Error[any](c, http.StatusInternalServerError, "could not log out", nil)
			return
		}
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logged out", nil)
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.Service.LogoutAll(userID); err != nil {
		h.Log.WithError(err).Error("logout all failed")
		response.Error[any](c, http.StatusInternalServerError, "could not log out", nil)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logged out from all devices", nil)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,pwd"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	userID := c.GetString("userID")
	if err := h.Service.ChangePassword(userID, req.CurrentPassword, req.NewPassword, metaFrom(c)); err != nil {
		switch {
		case errors.Is(err, application.ErrWrongPassword):
			response.Error[any](c, http.StatusBadRequest, "current password is incorrect", nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
		default:
			h.Log.WithError(err).Error("change password failed")
			response.Error[any](c, http.StatusInternalServerError, "could not change password", nil)
		}
		return
	}

	// Every session was revoked, including this one.
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "password changed, please log in again", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type cooldownPayload struct {
	Cooldown    bool      `json:"cooldown"`
	MinutesLeft int       `json:"minutesLeft"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Service.ForgotPassword(req.Email, metaFrom(c))
	if err != nil {
		if errors.Is(err, application.ErrDeliveryFailure) {
			response.Error[any](c, http.StatusInternalServerError, "could not send email, please try again later", nil)
			return
		}
		h.Log.WithError(err).Error("forgot password failed")
		response.Error[any](c, http.StatusInternalServerError, "could not process request", nil)
		return
	}

	if res.Cooldown {
		response.Success(c, http.StatusOK, cooldownPayload{
			Cooldown:    true,
			MinutesLeft: res.MinutesLeft,
			ExpiresAt:   res.ExpiresAt,
		}, "a reset link was already sent recently", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "if that email exists, a reset link has been sent", nil)
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,pwd"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	token := c.Param("resetToken")
	if err := h.Service.ResetPassword(token, req.Password, metaFrom(c)); err != nil {
		if errors.Is(err, application.ErrInvalidResetToken) {
			response.Error[any](c, http.StatusBadRequest, "invalid or expired reset token", nil)
			return
		}
		h.Log.WithError(err).Error("reset password failed")
		response.Error[any](c, http.StatusInternalServerError, "could not reset password", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password has been reset, please log in", nil)
}

// refreshTokenFrom reads the refresh token from the path-scoped cookie,
// falling back to the JSON body for non-browser clients.
func refreshTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie("refreshToken"); err == nil && token != "" {
		return token
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func metaFrom(c *gin.Context) application.RequestMeta {
	ip := c.GetString("real_ip")
	if ip == "" {
		ip = c.ClientIP()
	}
	return application.RequestMeta{IP: ip, UserAgent: c.Request.UserAgent()}
}
