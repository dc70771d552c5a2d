package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-trip-itinerary-planner/app/db"
	appMiddleware "github.com/FACorreiaa/go-trip-itinerary-planner/app/middleware"
	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/accommodation"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/conversation"
	generativeAI "github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/intent"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/planner"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/ranking"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/api/session"
	"github.com/FACorreiaa/go-trip-itinerary-planner/internal/router"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client

	ConversationService conversation.Service
	IntentService       intent.Service
	PlannerService      planner.Service

	ConversationHandler *conversation.Handler
	IntentHandler       *intent.Handler
	PlannerHandler      *planner.Handler
	Limiter             *appMiddleware.ClientLimiter
}

// Collaborators are the externally backed pieces of the pipeline. NewContainer builds
// them from configuration; tests and the CLI pass their own to Build.
type Collaborators struct {
	LLM           generativeAI.TextGenerator
	Embedder      generativeAI.Embedder
	Places        poi.Repository
	Accommodation accommodation.Repository
	Sessions      session.Store
	Oracle        itinerary.Oracle
	Picker        accommodation.Picker
}

// NewContainer connects to Postgres and Redis and wires every service. An empty redis
// address keeps sessions in process. A missing LLM API key is not fatal: the service
// then runs on the rule-based fallbacks only.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	oracle, err := itinerary.NewOracle(cfg.Scheduler)
	if err != nil {
		pool.Close()
		return nil, err
	}

	collab := Collaborators{
		Places:        poi.NewRepository(pool, logger),
		Accommodation: accommodation.NewRepository(pool, logger),
		Oracle:        oracle,
	}

	var rdb *redis.Client
	if cfg.Repositories.Redis.Address == "" {
		logger.Info("No redis address configured, keeping sessions in process")
		collab.Sessions = session.NewMemoryStore(time.Minute)
	} else {
		rdb = session.NewRedisClient(cfg.Repositories.Redis)
		if err := rdb.Ping(ctx).Err(); err != nil {
			pool.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Repositories.Redis.Address, err)
		}
		collab.Sessions = session.NewRedisStore(rdb, cfg.Conversation.LockTTL, logger)
	}
	ai, err := generativeAI.NewAIClient(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Warn("LLM client unavailable, running on rule-based fallbacks", slog.Any("error", err))
	} else {
		collab.LLM = ai
		collab.Embedder = generativeAI.NewCachedEmbedder(ai, cfg.LLM.EmbeddingCacheTTL)
	}

	c := Build(cfg, collab, logger)
	c.Pool = pool
	c.Redis = rdb
	return c, nil
}

// Build wires services and handlers over the given collaborators.
func Build(cfg *config.Config, collab Collaborators, logger *slog.Logger) *Container {
	sessionTTL := cfg.Conversation.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if collab.Oracle == nil {
		collab.Oracle = itinerary.NewHaversineOracle(cfg.Scheduler.SpeedKmh, time.Duration(cfg.Scheduler.OverheadMinutes)*time.Minute)
	}
	ranker := cfg.Ranking
	if ranker.Validate() != nil {
		ranker = config.DefaultRanking()
	}

	sessions := session.NewRepository(collab.Sessions, sessionTTL, logger)
	intentService := intent.NewService(collab.LLM, logger)
	conversationService := conversation.NewService(collab.LLM, intentService, sessions, cfg.Conversation, logger)
	retriever := poi.NewRetriever(collab.Places, collab.Embedder, cfg.Retrieval, logger)
	lodging := accommodation.NewService(collab.Accommodation, collab.Picker, cfg.Accommodation, logger)
	plannerService := planner.NewService(retriever, ranking.NewRanker(ranker), collab.Oracle, lodging, sessions, logger)

	return &Container{
		Config:              cfg,
		Logger:              logger,
		ConversationService: conversationService,
		IntentService:       intentService,
		PlannerService:      plannerService,
		ConversationHandler: conversation.NewHandler(conversationService, logger),
		IntentHandler:       intent.NewHandler(intentService, logger),
		PlannerHandler:      planner.NewHandler(plannerService, logger),
		Limiter:             appMiddleware.NewClientLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst, 0),
	}
}

// Router returns the HTTP handler serving every route.
func (c *Container) Router() chi.Router {
	return router.SetupRouter(&router.Config{
		ConversationHandler: c.ConversationHandler,
		IntentHandler:       c.IntentHandler,
		PlannerHandler:      c.PlannerHandler,
		Limiter:             c.Limiter,
		Timeout:             c.Config.Server.Timeout,
		Logger:              c.Logger,
	})
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
}

// WaitForDB waits for the database to be ready.
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
