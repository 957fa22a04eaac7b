package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/internal/application"
	"github.com/learnova/learnova-api/pkg/response"
	"github.com/learnova/learnova-api/pkg/validation"
)

type ContactHandler struct {
	Service *application.ContactService
	Log     *logrus.Logger
}

func NewContactHandler(service *application.ContactService, log *logrus.Logger) *ContactHandler {
	return &ContactHandler{Service: service, Log: log}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required,min=3,max=200"`
	Message string `json:"message" binding:"required,min=10,max=5000"`
}

func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	m, err := h.Service.Submit(application.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		h.Log.WithError(err).Error("contact submission failed")
		response.Error[any](c, http.StatusInternalServerError, "could not submit message", nil)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": m.ID}, "message received, we will get back to you soon", nil)
}
