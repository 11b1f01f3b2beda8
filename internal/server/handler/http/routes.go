package http

import (
	"net/http"

	"github.com/atinyakov/JobTracker/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth         *AuthHandler
	Applications *ApplicationHandler
	Users        *UserHandler
	AI           *AIHandler
}

// NewRouter constructs and returns an HTTP handler that serves
// the job tracker API.
//
// Routes:
//
//	GET    /                      banner
//	GET    /health                liveness probe
//	POST   /auth/register         h.Auth.Register
//	POST   /auth/login            h.Auth.Login
//	GET    /applications          h.Applications.List (?userId=)
//	POST   /applications          h.Applications.Create
//	GET    /applications/stats    h.Applications.Stats
//	GET    /applications/{id}     h.Applications.Get
//	PUT    /applications/{id}     h.Applications.Update (partial)
//	DELETE /applications/{id}     h.Applications.Delete
//	GET    /users/{id}            h.Users.Get
//	PUT    /users/{id}            h.Users.Update
//	POST   /ai/generate           h.AI.Generate
//
// Middleware chain (applied in order):
//  1. RequestID, Recoverer
//  2. CORS for the configured origins
//  3. WithRequestLogging(logger)
//  4. AllowContentType("application/json") for requests with a body
//  5. BearerAuth for everything except /, /health and /auth/*
func NewRouter(
	h Handlers,
	auth middleware.TokenAuthenticator,
	origins []string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.BearerAuth(auth))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Job Tracker API Running"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
	})

	r.Route("/applications", func(r chi.Router) {
		r.Get("/", h.Applications.List)
		r.Post("/", h.Applications.Create)
		r.Get("/stats", h.Applications.Stats)
		r.Get("/{id}", h.Applications.Get)
		r.Put("/{id}", h.Applications.Update)
		r.Delete("/{id}", h.Applications.Delete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/{id}", h.Users.Get)
		r.Put("/{id}", h.Users.Update)
	})

	r.Post("/ai/generate", h.AI.Generate)

	return r
}
