// Package api assembles the HTTP surface: routing, middleware, and the
// service graph behind each handler.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/yuelin-song/communitykb/internal/aiconfig"
	"github.com/yuelin-song/communitykb/internal/api/handlers"
	"github.com/yuelin-song/communitykb/internal/api/middleware"
	"github.com/yuelin-song/communitykb/internal/auth"
	"github.com/yuelin-song/communitykb/internal/cache"
	"github.com/yuelin-song/communitykb/internal/chat"
	"github.com/yuelin-song/communitykb/internal/config"
	"github.com/yuelin-song/communitykb/internal/knowledge"
	"github.com/yuelin-song/communitykb/internal/llm"
	"github.com/yuelin-song/communitykb/internal/memory"
	"github.com/yuelin-song/communitykb/internal/queue"
	"github.com/yuelin-song/communitykb/internal/usage"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	store := knowledge.NewStore(rt.db)
	retriever := knowledge.NewRetriever(store)
	queueClient := queue.NewClient(rt.cfg.Redis)
	configSvc := aiconfig.NewService(rt.db, cache.New(rt.redis))
	usageSvc := usage.NewService(rt.db)
	mem := memory.New(rt.cfg.Chat.MemoryMaxRounds, rt.cfg.Chat.MemoryTTL)

	client := llm.NewClient(
		llm.NewDeepSeekProvider(rt.cfg.LLM.APIKey, rt.cfg.LLM.BaseURL),
		llm.Options{
			Model:         rt.cfg.LLM.Model,
			FallbackModel: rt.cfg.LLM.FallbackModel,
			MaxAttempts:   rt.cfg.LLM.MaxAttempts,
			RetryDelay:    rt.cfg.LLM.RetryDelay,
			CallTimeout:   rt.cfg.LLM.CallTimeout,
			MaxConcurrent: int64(rt.cfg.LLM.MaxConcurrent),
			RateLimit:     rt.cfg.Chat.RateLimitPerMinute,
			ContextLimit:  rt.cfg.Retrieval.ContextLimit,
		},
	)
	if rt.cfg.LLM.FallbackProvider == "anthropic" && rt.cfg.LLM.AnthropicKey != "" {
		client = client.WithFallback(llm.NewAnthropicProvider(rt.cfg.LLM.AnthropicKey))
	}

	chatSvc := chat.NewService(configSvc, &retrieval{store: store, retriever: retriever},
		mem, client, usageSvc, rt.cfg.Retrieval.TopK)

	docH := handlers.NewDocumentHandler(store, queueClient, rt.cfg.Uploads.Dir, rt.cfg.Uploads.MaxSizeBytes)
	chatH := handlers.NewChatHandler(chatSvc, mem)
	configH := handlers.NewConfigHandler(configSvc)
	usageH := handlers.NewUsageHandler(usageSvc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		r.Route("/communities/{community}", func(r chi.Router) {
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", docH.Upload)
				r.Get("/", docH.List)
				r.Get("/{id}", docH.Get)
				r.Delete("/{id}", docH.Delete)
			})

			r.Post("/ask", chatH.Ask)
			r.Post("/memory/clear", chatH.ClearMemory)

			r.Route("/config", func(r chi.Router) {
				r.Get("/", configH.Get)
				r.Put("/", configH.Update)
			})

			r.Get("/usage", usageH.Summary)
		})
	})

	return r
}

// retrieval joins the store's existence check with the ranker behind the
// single interface the chat service consumes.
type retrieval struct {
	store     *knowledge.Store
	retriever *knowledge.Retriever
}

func (r *retrieval) HasKnowledge(ctx context.Context, community string) (bool, error) {
	return r.store.HasKnowledge(ctx, community)
}

func (r *retrieval) Retrieve(ctx context.Context, community, query string, topK int) (string, error) {
	return r.retriever.Retrieve(ctx, community, query, topK)
}
