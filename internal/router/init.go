package router

import (
	"github.com/learnova/learnova-api/internal/application"
	"github.com/learnova/learnova-api/internal/container"
	pginfra "github.com/learnova/learnova-api/internal/infrastructure/postgres"
	handlers "github.com/learnova/learnova-api/internal/interface/http"
	"github.com/learnova/learnova-api/internal/router/modules"
	"github.com/learnova/learnova-api/pkg/helpers"
)

// InitModules wires all feature modules from the container singletons
// and registers them with the router registry. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	log := container.GetLogger()
	jwt := container.GetJWT()
	pool := container.GetPGPool()

	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure, cfg.RefreshCookiePath)

	userRepo := pginfra.NewUserRepository(pool)
	assessmentRepo := pginfra.NewAssessmentRepository(pool)
	contactRepo := pginfra.NewContactRepository(pool)

	authService := application.NewAuthService(userRepo, jwt, log, cfg, container.GetRabbitPub())
	userService := application.NewUserService(userRepo, container.GetGCS(), log, cfg)
	assessmentService := application.NewAssessmentService(assessmentRepo, container.GetES(), log, cfg)
	contactService := application.NewContactService(contactRepo, container.GetRabbitPub(), log, cfg)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authService, log, cookies), jwt))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(userService, log), jwt))
	r.Add(modules.NewAssessmentModule(handlers.NewAssessmentHandler(assessmentService, log), jwt))
	r.Add(modules.NewContactModule(handlers.NewContactHandler(contactService, log)))

	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
