package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnova/learnova-api/internal/container"
	handlers "github.com/learnova/learnova-api/internal/interface/http"
	"github.com/learnova/learnova-api/internal/interface/middleware"
	"github.com/learnova/learnova-api/pkg/helpers"
)

type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Auth(m.JWT))
	users.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		users.GET("/me", m.Handler.GetProfile)
		users.PUT("/me", m.Handler.UpdateProfile)
		users.POST("/me/avatar", m.Handler.UploadAvatar)
	}
}
