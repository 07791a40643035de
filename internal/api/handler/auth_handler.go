package handler

import (
	"errors"
	"impactlab/internal/api/middleware"
	"impactlab/internal/api/nav"
	"impactlab/internal/app/service"
	"impactlab/internal/common"
	"impactlab/internal/platform/logging"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
	limiter     middleware.AttemptLimiter
	logger      logging.Logger
}

func NewAuthHandler(authService *service.AuthService, limiter middleware.AttemptLimiter, logger logging.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter, logger: logger}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RateLimit(h.limiter, "login", h.logger, h.throttled)).Post("/login", h.login)
	r.With(middleware.RateLimit(h.limiter, "register", h.logger, h.throttled)).Post("/register", h.register)
	r.Post("/logout", h.logout)
	r.Get("/session", h.session)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	res, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	http.SetCookie(w, res.Cookie)
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	res, err := h.authService.Register(r.Context(), req)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	http.SetCookie(w, res.Cookie)
	common.RespondWithJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	res := h.authService.Logout()
	http.SetCookie(w, res.Cookie)
	common.RespondWithJSON(w, http.StatusOK, res)
}

// session answers with the current session, or JSON null when anonymous.
func (h *AuthHandler) session(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, middleware.SessionFromContext(r.Context()))
}

func (h *AuthHandler) throttled(w http.ResponseWriter, r *http.Request) {
	respondAuthError(w, service.ErrRateLimited)
}

// Nav serves the header menu for client-rendered pages. The page path comes
// from ?path= and defaults to "/".
func Nav(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	common.RespondWithJSON(w, http.StatusOK, nav.Build(middleware.SessionFromContext(r.Context()), path))
}

// respondAuthError writes the form-facing message of an AuthError.
func respondAuthError(w http.ResponseWriter, err error) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		common.RespondWithError(w, common.HTTPStatusFromError(err), authErr.Message)
		return
	}
	common.RespondWithErr(w, err)
}
