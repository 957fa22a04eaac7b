package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnova/learnova-api/internal/container"
	handlers "github.com/learnova/learnova-api/internal/interface/http"
	"github.com/learnova/learnova-api/internal/interface/middleware"
	"github.com/learnova/learnova-api/pkg/helpers"
)

type AssessmentModule struct {
	Handler *handlers.AssessmentHandler
	JWT     *helpers.JWTManager
}

func NewAssessmentModule(h *handlers.AssessmentHandler, jwt *helpers.JWTManager) *AssessmentModule {
	return &AssessmentModule{Handler: h, JWT: jwt}
}

func (m *AssessmentModule) Register(rg *gin.RouterGroup) {
	// Search is public; drafts never surface there.
	searchLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIPAndPath(), nil)
	rg.GET("/assessments/search", searchLimiter, m.Handler.Search)

	assessments := rg.Group("/assessments")
	assessments.Use(middleware.Auth(m.JWT))
	assessments.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		assessments.POST("", m.Handler.Create)
		assessments.GET("", m.Handler.ListMine)
		assessments.GET("/:id", m.Handler.Get)
		assessments.PUT("/:id", m.Handler.Update)
		assessments.DELETE("/:id", m.Handler.Delete)
	}
}
