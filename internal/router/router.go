package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appLogger "github.com/FACorreiaa/go-trip-itinerary-planner/app/logger"
	appMiddleware "github.com/FACorreiaa/go-trip-itinerary-planner/app/middleware"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/conversation"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/planner"
)

// Config contains the handlers and settings the router wires together.
type Config struct {
	ConversationHandler *conversation.Handler
	IntentHandler       *intent.Handler
	PlannerHandler      *planner.Handler
	Limiter             *appMiddleware.ClientLimiter
	Timeout             time.Duration
	AllowedOrigins      []string
	Logger              *slog.Logger
}

// SetupRouter builds the full HTTP surface including server-wide middleware.
func SetupRouter(cfg *Config) chi.Router {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(appMiddleware.RateLimit(cfg.Limiter, cfg.Logger))
		}

		r.Post("/chat", cfg.ConversationHandler.Chat)
		r.Get("/chat/{sessionID}", cfg.ConversationHandler.GetSession)
		r.Post("/chat/{sessionID}/plan", cfg.PlannerHandler.PlanSession)

		r.Post("/intent", cfg.IntentHandler.Extract)
		r.Post("/plan", cfg.PlannerHandler.PlanTrip)
	})

	return r
}
