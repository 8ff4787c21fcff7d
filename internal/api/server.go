// Package api provides the HTTP surface over the rewards economy.
// It is thin glue: all invariants live in the economy engines; handlers
// translate results and typed errors into JSON and status codes.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/taskmint/taskmint/internal/app/economy"
	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

// Server is the taskmint HTTP API server.
type Server struct {
	db             *sqlite.DB
	engine         *economy.Engine
	crafter        *economy.Crafter
	log            zerolog.Logger
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(db *sqlite.DB, engine *economy.Engine, crafter *economy.Crafter, log zerolog.Logger) *Server {
	return &Server{
		db:      db,
		engine:  engine,
		crafter: crafter,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleCreateTask)
			r.Get("/", s.handleListTasks)
			r.Post("/{id}/complete", s.handleCompleteTask)
			r.Post("/{id}/uncomplete", s.handleUncompleteTask)
			r.Post("/{id}/top3", s.handleAssignTop3)
		})
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleListRecipes)
			r.Post("/{id}/redeem", s.handleRedeemRecipe)
		})
		r.Route("/points", func(r chi.Router) {
			r.Get("/balance", s.handleBalance)
			r.Get("/history", s.handlePointsHistory)
		})
		r.Route("/rewards", func(r chi.Router) {
			r.Get("/on-hand", s.handleOnHand)
			r.Get("/history", s.handleRewardHistory)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// userID resolves the acting user. Authentication is upstream's problem;
// the gateway forwards the identity in X-User-ID. A bare local install
// runs single-user.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "local"
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
