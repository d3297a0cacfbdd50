package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/handlers"
	"shortforge-backend/internal/middleware"
	"shortforge-backend/internal/websocket"
)

type Deps struct {
	JWTAuth        *middleware.JWTAuth
	LoginLimiter   *middleware.RateLimiter
	AuthHandler    *handlers.AuthHandler
	IdeaHandler    *handlers.IdeaHandler
	ProjectHandler *handlers.ProjectHandler
	WSHub          *websocket.Hub
	// Assets serves locally stored media; nil when assets live elsewhere.
	Assets     http.Handler
	CORSOrigin string
	Log        logrus.FieldLogger
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if d.Assets != nil {
		r.Handle("/assets/*", http.StripPrefix("/assets/", d.Assets))
	}

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(d.LoginLimiter.Middleware)
			r.Post("/login", d.AuthHandler.Login)
		})

		// ──── Idea Routes ────
		r.Route("/ideas", func(r chi.Router) {
			r.Use(d.JWTAuth.Middleware)
			r.Post("/", d.IdeaHandler.Create)
			r.Get("/", d.IdeaHandler.List)
			r.Get("/{id}", d.IdeaHandler.Get)
			r.Post("/{id}/requeue", d.IdeaHandler.Requeue)
		})

		// ──── Project Routes ────
		r.Route("/projects", func(r chi.Router) {
			r.Use(d.JWTAuth.Middleware)
			r.Get("/", d.ProjectHandler.List)
			r.Get("/{id}", d.ProjectHandler.Get)
		})

		// ──── WebSocket ────
		r.Get("/ws", d.WSHub.HandleWebSocket)
	})

	return r
}
