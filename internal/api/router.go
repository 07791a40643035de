package api

import (
	"impactlab/internal/api/handler"
	"impactlab/internal/api/middleware"
	"impactlab/internal/app/service"
	"impactlab/internal/platform/logging"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every route. limiter may be nil, which disables throttling
// of the auth forms.
func NewRouter(
	authService *service.AuthService,
	spaceService *service.SpaceService,
	userService *service.UserService,
	limiter middleware.AttemptLimiter,
	logger logging.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Session(authService))
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	pageHandler := handler.NewPageHandler(authService, spaceService, userService, limiter, logger)
	pageHandler.RegisterRoutes(r)

	spaceHandler := handler.NewSpaceHandler(spaceService)
	userHandler := handler.NewUserHandler(userService)

	r.Route("/api", func(api chi.Router) {
		api.Get("/nav", handler.Nav)
		api.Route("/rooms", spaceHandler.RegisterRoutes)
		api.With(middleware.Authenticator).Get("/profile", userHandler.Profile)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Route("/spaces", spaceHandler.RegisterAdminRoutes)
			admin.Route("/users", userHandler.RegisterRoutes)
		})

		api.Route("/v1/auth", handler.NewAuthHandler(authService, limiter, logger).RegisterRoutes)
	})

	return r
}
