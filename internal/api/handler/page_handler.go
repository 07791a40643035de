package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"impactlab/internal/api/middleware"
	"impactlab/internal/api/nav"
	"impactlab/internal/app/service"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"impactlab/internal/platform/logging"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

var spaceTypes = []model.SpaceType{
	model.SpaceTypePrivate, model.SpaceTypeMeeting, model.SpaceTypeEvent, model.SpaceTypeDesk,
}

// pageData is what every template sees.
type pageData struct {
	Title   string
	Nav     nav.Menu
	Session *model.Session
	Error   string
	Form    map[string]string

	Query      service.ListRoomsQuery
	SpaceTypes []model.SpaceType
	Rooms      *service.RoomPage
	Spaces     *service.RoomPage
	Users      *service.UserPage
}

// PageHandler serves the server-rendered site and its auth forms.
type PageHandler struct {
	authService  *service.AuthService
	spaceService *service.SpaceService
	userService  *service.UserService
	limiter      middleware.AttemptLimiter
	logger       logging.Logger
	pages        map[string]*template.Template
}

func NewPageHandler(
	authService *service.AuthService,
	spaceService *service.SpaceService,
	userService *service.UserService,
	limiter middleware.AttemptLimiter,
	logger logging.Logger,
) *PageHandler {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "rooms", "contact", "login", "register", "profile", "admin"} {
		pages[name] = template.Must(template.New(name).Funcs(templateFuncs).ParseFS(
			templateFS, "templates/layout.html", "templates/"+name+".html",
		))
	}
	return &PageHandler{
		authService:  authService,
		spaceService: spaceService,
		userService:  userService,
		limiter:      limiter,
		logger:       logger,
		pages:        pages,
	}
}

func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/rooms", h.rooms)
	r.Get("/contact", h.contact)

	r.Get("/login", h.loginForm)
	r.With(middleware.RateLimit(h.limiter, "login", h.logger, h.throttled("login", "Login"))).Post("/login", h.login)
	r.Get("/register", h.registerForm)
	r.With(middleware.RateLimit(h.limiter, "register", h.logger, h.throttled("register", "Register"))).Post("/register", h.register)
	r.Get("/logout", h.logout)
	r.Post("/logout", h.logout)

	r.With(middleware.RequireLogin).Get("/profile", h.profile)
	r.With(middleware.RequireAdmin).Get("/admin", h.admin)
}

func (h *PageHandler) newPage(r *http.Request, title string) *pageData {
	sess := middleware.SessionFromContext(r.Context())
	return &pageData{
		Title:   title,
		Nav:     nav.Build(sess, r.URL.Path),
		Session: sess,
	}
}

// render buffers the page; a template error becomes a plain 500.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data *pageData) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error(r.Context(), "template render failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *PageHandler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", h.newPage(r, "Home"))
}

func (h *PageHandler) contact(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "contact", h.newPage(r, "Contact"))
}

func (h *PageHandler) rooms(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, "Rooms")
	data.SpaceTypes = spaceTypes

	q, err := parseRoomsQuery(r.URL.Query())
	data.Query = q
	if err == nil {
		data.Rooms, err = h.spaceService.ListRooms(r.Context(), q)
	}
	if err != nil {
		data.Error = common.PublicMessage(err)
		h.render(w, r, common.HTTPStatusFromError(err), "rooms", data)
		return
	}
	h.render(w, r, http.StatusOK, "rooms", data)
}

func (h *PageHandler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", h.newPage(r, "Login"))
}

func (h *PageHandler) registerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", h.newPage(r, "Register"))
}

func (h *PageHandler) login(w http.ResponseWriter, r *http.Request) {
	req := service.LoginRequest{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	res, err := h.authService.Login(r.Context(), req)
	if err != nil {
		data := h.newPage(r, "Login")
		data.Form = map[string]string{"email": req.Email}
		h.formError(w, r, "login", data, err)
		return
	}
	http.SetCookie(w, res.Cookie)
	http.Redirect(w, r, res.Redirect.String(), http.StatusSeeOther)
}

func (h *PageHandler) register(w http.ResponseWriter, r *http.Request) {
	req := service.RegisterRequest{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	res, err := h.authService.Register(r.Context(), req)
	if err != nil {
		data := h.newPage(r, "Register")
		data.Form = map[string]string{"name": req.Name, "email": req.Email}
		h.formError(w, r, "register", data, err)
		return
	}
	http.SetCookie(w, res.Cookie)
	http.Redirect(w, r, res.Redirect.String(), http.StatusSeeOther)
}

// formError re-renders a form with the error shown inline. Passwords are
// never echoed back.
func (h *PageHandler) formError(w http.ResponseWriter, r *http.Request, page string, data *pageData, err error) {
	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		data.Error = authErr.Message
	} else {
		data.Error = common.PublicMessage(err)
	}
	h.render(w, r, common.HTTPStatusFromError(err), page, data)
}

func (h *PageHandler) throttled(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.formError(w, r, page, h.newPage(r, title), service.ErrRateLimited)
	}
}

func (h *PageHandler) logout(w http.ResponseWriter, r *http.Request) {
	res := h.authService.Logout()
	http.SetCookie(w, res.Cookie)
	http.Redirect(w, r, res.Redirect.String(), http.StatusSeeOther)
}

func (h *PageHandler) profile(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "profile", h.newPage(r, "My Profile"))
}

func (h *PageHandler) admin(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, "Admin")
	page, limit := parsePaging(r.URL.Query())

	spaces, err := h.spaceService.ListSpaces(r.Context(), page, limit)
	if err != nil {
		h.logger.Error(r.Context(), "admin: listing spaces failed", "error", err)
		data.Error = common.PublicMessage(err)
	}
	users, err := h.userService.ListUsers(r.Context(), page, limit)
	if err != nil {
		h.logger.Error(r.Context(), "admin: listing users failed", "error", err)
		data.Error = common.PublicMessage(err)
	}
	data.Spaces, data.Users = spaces, users
	h.render(w, r, http.StatusOK, "admin", data)
}
