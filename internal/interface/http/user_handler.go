package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/internal/application"
	"github.com/learnova/learnova-api/pkg/response"
	"github.com/learnova/learnova-api/pkg/validation"
)

const maxAvatarSize = 5 << 20 // 5 MiB

type UserHandler struct {
	Service *application.UserService
	Log     *logrus.Logger
}

func NewUserHandler(service *application.UserService, log *logrus.Logger) *UserHandler {
	return &UserHandler{Service: service, Log: log}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Service.GetProfile(c.GetString("userID"))
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Log.WithError(err).Error("get profile failed")
		response.Error[any](c, http.StatusInternalServerError, "could not load profile", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserSummary(u), "", nil)
}

type updateProfileRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Service.UpdateProfile(c.GetString("userID"), req.Name)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Log.WithError(err).Error("update profile failed")
		response.Error[any](c, http.StatusInternalServerError, "could not update profile", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserSummary(u), "profile updated", nil)
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "avatar must be 5MB or smaller", nil)
		return
	}

	u, err := h.Service.UploadAvatar(c.Request.Context(), c.GetString("userID"), header.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUnsupportedImage):
			response.Error[any](c, http.StatusBadRequest, "avatar must be a jpeg, png or webp image", nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
		default:
			h.Log.WithError(err).Error("avatar upload failed")
			response.Error[any](c, http.StatusInternalServerError, "could not upload avatar", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, toUserSummary(u), "avatar updated", nil)
}
