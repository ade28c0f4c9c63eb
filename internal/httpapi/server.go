// Package httpapi exposes the auth, task, analytics and wellness operations
// over JSON HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"

	"taskwell/internal/service"
	"taskwell/internal/wellness"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Auth     *service.AuthService
	Tasks    *service.TaskService
	Wellness *wellness.Client
	Tokens   TokenVerifier

	CORSOrigins    []string
	RequestTimeout time.Duration
	// Ping reports store health for /healthz; nil skips the check.
	Ping func(ctx context.Context) error
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

type handler struct {
	auth     *service.AuthService
	tasks    *service.TaskService
	wellness *wellness.Client
	ping     func(ctx context.Context) error
}

// NewRouter builds the HTTP handler. Task, analytics and profile routes sit
// behind the bearer token guard.
func NewRouter(d Deps) http.Handler {
	h := &handler{auth: d.Auth, tasks: d.Tasks, wellness: d.Wellness, ping: d.Ping}

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(tracing(d.TracerProvider))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorJSON(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Public
	r.Get("/healthz", h.health)
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Post("/google-login", h.googleLogin)
	r.Get("/wellness/quote", h.quote)
	r.Get("/wellness/fact", h.fact)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(d.Tokens))

		r.Get("/me", h.profile)
		r.Patch("/me", h.updateProfile)
		r.Get("/gender", h.gender)
		r.Post("/change-password", h.changePassword)
		r.Post("/set-password", h.setPassword)
		r.Post("/telegram/link", h.telegramLink)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.listTasks)
			r.Post("/", h.createTask)
			r.Put("/{id}", h.updateTask)
			r.Delete("/{id}", h.deleteTask)
			r.Post("/{id}/complete", h.completeTask)
		})

		r.Get("/analytics/completion_rate", h.completionRate)
		r.Get("/analytics/by_category", h.byCategory)
		r.Get("/analytics/by_priority", h.byPriority)
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.wellness.Quote(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handler) fact(w http.ResponseWriter, r *http.Request) {
	f, err := h.wellness.Fact(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
