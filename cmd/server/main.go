package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trademate/internal/bot"
	"trademate/internal/cache"
	"trademate/internal/config"
	"trademate/internal/db"
	"trademate/internal/fusion"
	"trademate/internal/handler"
	"trademate/internal/job"
	"trademate/internal/provider"
	"trademate/internal/repository"
	"trademate/internal/rl"
	"trademate/internal/rl/qnet"
	"trademate/internal/rl/registry"
	"trademate/internal/sentiment"
	"trademate/internal/service"
	"trademate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "trademate/docs"
)

const policyModelKey = "policy-qnet"

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	initPostgresFunc         = db.InitPostgres
	initRedisFunc            = cache.InitRedis
	initTracerFunc           = tracing.InitTracer
	newCandleRepoFunc        = repository.NewCandleRepository
	newCoinGeckoProviderFunc = func(tracer trace.Tracer) service.PriceProvider {
		return provider.NewCoinGeckoProvider(tracer)
	}
	newMarketDataServiceFunc = service.NewMarketDataService
	loadPolicyModelFunc      = loadPolicyModel
	newPricePollerFunc       = job.NewPricePoller
	startPollerFunc          = func(p *job.PricePoller, ctx context.Context) { go p.Start(ctx) }
	startRefresherFunc       = func(r *job.SignalRefresher, ctx context.Context) { go r.Start(ctx) }
	startTelegramBotFunc     = bot.StartTelegramBot
	newHandlerFunc           = handler.New
	newRouterFunc            = gin.Default
	setupSignalNotify        = signal.Notify
	waitForSignalFunc        = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc      = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc   = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Trademate API
// @version         1.0
// @description     Signal fusion and trade recommendation service with OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repository and run migrations
	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := candleRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Market data: provider, cache, candle store
	cgProvider := newCoinGeckoProviderFunc(tracer)
	marketData := newMarketDataServiceFunc(tracer, cgProvider, candleRepo, cache.Client)

	// Fusion engine over the shared snapshot store
	store := fusion.NewSnapshotStore()
	engine, err := fusion.NewEngine(tracer, store, cfg.Fusion)
	if err != nil {
		log.Fatalf("invalid fusion policy: %v", err)
	}

	// Policy adapter, loading the active model from the registry if any
	adapter := rl.NewAdapter(tracer, nil)
	if db.Pool != nil {
		if model := loadPolicyModelFunc(ctx, db.Pool, tracer); model != nil {
			adapter.SetModel(model)
		}
	}

	// Signal producers
	technicalSvc := service.NewTechnicalSignalService(tracer, marketData)

	var llm sentiment.LLMScorer
	if oai := sentiment.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.OpenAIModel); oai != nil {
		llm = oai
	}
	sentimentSvc := service.NewSentimentSignalService(
		tracer,
		provider.NewFearGreedProvider(tracer),
		provider.NewRedditProvider(tracer),
		provider.NewRSSProvider(tracer),
		sentiment.NewScorer(llm, 0),
		sentiment.NewAggregator(tracer, sentiment.DefaultMaxReadingAge, nil),
		cfg.Subreddits,
		cfg.RSSFeeds,
	)
	policySvc := service.NewPolicySignalService(tracer, technicalSvc, adapter, store)

	// Background loops: market data polling and signal refreshing
	poller := newPricePollerFunc(tracer, marketData, cfg.CoinGeckoPollSecs)
	startPollerFunc(poller, ctx)

	refresher := job.NewSignalRefresher(tracer, engine)
	refresher.Add("technical", technicalSvc, time.Duration(cfg.TechnicalRefreshSecs)*time.Second, 30*time.Second)
	refresher.Add("sentiment", sentimentSvc, time.Duration(cfg.SentimentRefreshSecs)*time.Second, time.Minute)
	refresher.Add("policy", policySvc, time.Duration(cfg.PolicyRefreshSecs)*time.Second, 2*time.Minute)
	startRefresherFunc(refresher, ctx)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(engine, marketData)

	// Create handlers and routes
	h := newHandlerFunc(tracer, engine, marketData)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("trademate"))

	h.RegisterRoutes(r, handler.APIKeyAuth(cfg.APIKey))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

// loadPolicyModel pulls the active model artifact from the registry and
// deserializes it. A missing or unreadable artifact is logged and the
// policy producer simply stays silent until one is activated.
func loadPolicyModel(ctx context.Context, pool registry.Pool, tracer trace.Tracer) *qnet.Model {
	repo := registry.NewRepository(pool, tracer)
	stored, err := repo.GetActiveModel(ctx, policyModelKey)
	if err != nil {
		log.Printf("policy model lookup failed: %v", err)
		return nil
	}
	if stored == nil {
		log.Println("no active policy model, policy producer disabled until one is activated")
		return nil
	}
	if stored.StateSpec != rl.StateSpecVersion {
		log.Printf("active policy model %s v%d uses state spec %q, want %q; skipping",
			stored.ModelKey, stored.Version, stored.StateSpec, rl.StateSpecVersion)
		return nil
	}
	model, err := qnet.UnmarshalBinary(stored.ArtifactBlob)
	if err != nil {
		log.Printf("failed to decode policy model %s v%d: %v", stored.ModelKey, stored.Version, err)
		return nil
	}
	log.Printf("loaded policy model %s v%d", stored.ModelKey, stored.Version)
	return model
}
