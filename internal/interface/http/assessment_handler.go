package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/learnova/learnova-api/internal/application"
	"github.com/learnova/learnova-api/pkg/response"
	"github.com/learnova/learnova-api/pkg/validation"
)

type AssessmentHandler struct {
	Service *application.AssessmentService
	Log     *logrus.Logger
}

func NewAssessmentHandler(service *application.AssessmentService, log *logrus.Logger) *AssessmentHandler {
	return &AssessmentHandler{Service: service, Log: log}
}

type assessmentRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=200"`
	Description     string `json:"description" binding:"max=5000"`
	Subject         string `json:"subject" binding:"required,max=100"`
	Difficulty      string `json:"difficulty" binding:"required,oneof=beginner intermediate advanced"`
	DurationMinutes int    `json:"durationMinutes" binding:"gte=0,lte=600"`
	Published       bool   `json:"published"`
}

func (r assessmentRequest) toInput() application.AssessmentInput {
	return application.AssessmentInput{
		Title:           r.Title,
		Description:     r.Description,
		Subject:         r.Subject,
		Difficulty:      r.Difficulty,
		DurationMinutes: r.DurationMinutes,
		Published:       r.Published,
	}
}

func (h *AssessmentHandler) Create(c *gin.Context) {
	var req assessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	a, err := h.Service.Create(c.GetString("userID"), req.toInput())
	if err != nil {
		h.Log.WithError(err).Error("create assessment failed")
		response.Error[any](c, http.StatusInternalServerError, "could not create assessment", nil)
		return
	}
	response.Success(c, http.StatusCreated, a, "assessment created", nil)
}

func (h *AssessmentHandler) Get(c *gin.Context) {
	a, err := h.Service.Get(c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, application.ErrAssessmentNotFound) {
			response.Error[any](c, http.StatusNotFound, "assessment not found", nil)
			return
		}
		h.Log.WithError(err).Error("get assessment failed")
		response.Error[any](c, http.StatusInternalServerError, "could not load assessment", nil)
		return
	}
	response.Success(c, http.StatusOK, a, "", nil)
}

func (h *AssessmentHandler) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Service.ListMine(c.GetString("userID"), limit, offset)
	if err != nil {
		h.Log.WithError(err).Error("list assessments failed")
		response.Error[any](c, http.StatusInternalServerError, "could not list assessments", nil)
		return
	}
	response.Success(c, http.StatusOK, items, "", gin.H{"limit": limit, "offset": offset})
}

func (h *AssessmentHandler) Update(c *gin.Context) {
	var req assessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	a, err := h.Service.Update(c.GetString("userID"), c.Param("id"), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, application.ErrAssessmentNotFound):
			response.Error[any](c, http.StatusNotFound, "assessment not found", nil)
		case errors.Is(err, application.ErrNotOwner):
			response.Error[any](c, http.StatusForbidden, "not the owner of this assessment", nil)
		default:
			h.Log.WithError(err).Error("update assessment failed")
			response.Error[any](c, http.StatusInternalServerError, "could not update assessment", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, a, "assessment updated", nil)
}

func (h *AssessmentHandler) Delete(c *gin.Context) {
	err := h.Service.Delete(c.GetString("userID"), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrAssessmentNotFound):
			response.Error[any](c, http.StatusNotFound, "assessment not found", nil)
		case errors.Is(err, application.ErrNotOwner):
			response.Error[any](c, http.StatusForbidden, "not the owner of this assessment", nil)
		default:
			h.Log.WithError(err).Error("delete assessment failed")
			response.Error[any](c, http.StatusInternalServerError, "could not delete assessment", nil)
		}
		return
	}
	response.Success[any](c, http.StatusOK, nil, "assessment deleted", nil)
}

func (h *AssessmentHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error[any](c, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, err := h.Service.Search(query, limit)
	if err != nil {
		h.Log.WithError(err).Error("search assessments failed")
		response.Error[any](c, http.StatusInternalServerError, "search is unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, items, "", gin.H{"q": query, "limit": limit})
}
