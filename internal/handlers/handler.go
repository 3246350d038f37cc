package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vaughan-dsouza/clubhouse/internal/auth"
	"github.com/vaughan-dsouza/clubhouse/internal/middleware"
	"github.com/vaughan-dsouza/clubhouse/internal/models"
	"github.com/vaughan-dsouza/clubhouse/internal/session"
	"github.com/vaughan-dsouza/clubhouse/internal/storage"
	"github.com/vaughan-dsouza/clubhouse/internal/utils"
	"github.com/vaughan-dsouza/clubhouse/internal/views"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth           *auth.Service
	Messages       storage.MessageStore
	Cookies        *session.CookieCodec
	Views          *views.Renderer
	Logger         *slog.Logger
	DB             Pinger
	Policy         middleware.Policy
	RequestTimeout time.Duration
}

type Handler struct {
	auth     *auth.Service
	messages storage.MessageStore
	cookies  *session.CookieCodec
	views    *views.Renderer
	log      *slog.Logger
	db       Pinger
	policy   middleware.Policy
	timeout  time.Duration
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Policy == nil {
		d.Policy = middleware.DefaultPolicy()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 10 * time.Second
	}
	return &Handler{
		auth:     d.Auth,
		messages: d.Messages,
		cookies:  d.Cookies,
		views:    d.Views,
		log:      d.Logger,
		db:       d.DB,
		policy:   d.Policy,
		timeout:  d.RequestTimeout,
	}
}

// Routes builds the full router: request plumbing, session resolution, the
// authorization policy and every page.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(h.timeout))
	r.Use(middleware.Session(h.auth, h.cookies, h.log, h.handleError))
	r.Use(middleware.Enforce(h.policy))

	r.Get("/healthz", h.wrap(h.Health))

	r.Get("/signup", h.wrap(h.SignupForm))
	r.Post("/signup", h.wrap(h.Signup))
	r.Post("/login", h.wrap(h.Login))
	r.Get("/logout", h.wrap(h.Logout))

	r.Get("/", h.wrap(h.ListMessages))
	r.Get("/new", h.wrap(h.NewMessageForm))
	r.Post("/messages", h.wrap(h.CreateMessage))

	r.Get("/member", h.wrap(h.MemberForm))
	r.Post("/member", h.wrap(h.UpgradeMembership))

	return r
}

// page builds the common view data for r.
func (h *Handler) page(r *http.Request, title string, data any) views.Page {
	p := views.Page{Title: title, Data: data}
	if u, ok := middleware.CurrentUser(r.Context()); ok {
		p.User = &u
	}
	return p
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) error {
	return h.views.Render(w, http.StatusOK, name, h.page(r, title, data))
}

func currentUser(r *http.Request) (models.User, bool) {
	return middleware.CurrentUser(r.Context())
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.log.ErrorContext(r.Context(), "health check failed", "err", err)
			utils.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return nil
		}
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}
