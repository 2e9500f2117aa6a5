// apiserver is the PharmaCliff Intelligence API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/config"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/analysis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/assistant/openai"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/assistant/responsecache"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/database/firestore"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/search/patentapi"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/search/resultcache"
	apihttp "github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/middleware"
)

// Injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Firestore is the durable store and the Firebase auth backend.
	fsClient, err := firestore.New(ctx, cfg.Firestore, log)
	if err != nil {
		return fmt.Errorf("firestore: %w", err)
	}
	defer fsClient.Close()

	// Redis is optional: without it the hot cache tiers and the rate
	// limiter are skipped but the API stays fully functional.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, hot caches and rate limiting disabled", logging.Err(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var publisher billing.EventPublisher = billing.NopEventPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.Kafka, log)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		log.Warn("kafka brokers not configured, audit events disabled")
	}

	// Repositories.
	orgRepo := firestore.NewOrganizationRepo(fsClient, log)
	planRepo := firestore.NewPlanRepo(fsClient, log)
	subRepo := firestore.NewSubscriptionRepo(fsClient, log)
	userRepo := firestore.NewUserRepo(fsClient, log)
	ledgerRepo := firestore.NewLedgerRepo(fsClient, log)
	historyRepo := firestore.NewHistoryRepo(fsClient, log)
	txRunner := firestore.NewTxRunner(fsClient)

	// Billing services.
	reconciler := billing.NewReconciler(subRepo, planRepo, ledgerRepo, txRunner, publisher, log)
	adminSvc := billing.NewAdminService(orgRepo, planRepo, subRepo, ledgerRepo, reconciler, txRunner, log)
	gate := billing.NewQuotaGate(ledgerRepo, subRepo, txRunner, publisher, log)

	// Search orchestration with a tiered result cache.
	jobClient, err := patentapi.NewClient(cfg.SearchAPI, log)
	if err != nil {
		return fmt.Errorf("patent search API: %w", err)
	}
	var hotResults redis.Cache
	if redisClient != nil {
		hotResults = redis.NewCache(redisClient, log)
	}
	resultCache := resultcache.NewTiered(hotResults, firestore.NewSearchCacheRepo(fsClient, log), log)
	orchestrator := search.NewOrchestrator(gate, jobClient, resultCache, historyRepo, search.Options{
		PollInterval: cfg.SearchAPI.PollInterval,
		PollBudget:   cfg.SearchAPI.PollBudget,
	}, log)

	// Dr. Root assistant, skipped when no completion API key is configured.
	var assistantSvc analysis.Assistant
	if completionClient, err := openai.NewClient(cfg.Assistant, log); err != nil {
		log.Warn("assistant disabled", logging.Err(err))
	} else {
		analysisCache := responsecache.NewTiered(hotResults,
			firestore.NewAnalysisCacheRepo(fsClient, log), cfg.Assistant.CacheTTL, log)
		assistantSvc = analysis.NewAssistant(
			firestore.NewAssistantConfigRepo(fsClient, log),
			firestore.NewSearchResultSource(fsClient, log),
			completionClient,
			analysisCache,
			log,
		)
	}

	var appMetrics *prometheus.AppMetrics
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            "pharmacliff",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, log)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		appMetrics = prometheus.NewAppMetrics(collector, log)
	}

	authMw := middleware.NewAuthMiddleware(middleware.NewFirebaseVerifier(fsClient.Auth()), log)

	var rateLimitMw *middleware.RateLimitMiddleware
	if redisClient != nil {
		rateLimitMw = middleware.NewRateLimitMiddleware(redisClient, cfg.RateLimit, log)
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	}

	healthDeps := map[string]handlers.Pinger{}
	if redisClient != nil {
		healthDeps["redis"] = redisClient
	}

	routerCfg := apihttp.RouterConfig{
		OrganizationHandler: handlers.NewOrganizationHandler(adminSvc, log),
		PlanHandler:         handlers.NewPlanHandler(adminSvc, reconciler, log),
		SubscriptionHandler: handlers.NewSubscriptionHandler(adminSvc, reconciler, log),
		UserHandler:         handlers.NewUserHandler(userRepo, log),
		SearchHandler:       handlers.NewSearchHandler(orchestrator, log),
		QuotaHandler:        handlers.NewQuotaHandler(gate, log),
		HealthHandler:       handlers.NewHealthHandler(healthDeps, version, log),
		AuthMiddleware:      authMw,
		CORSConfig:          &corsCfg,
		RateLimitMiddleware: rateLimitMw,
		Logger:              log,
	}
	if assistantSvc != nil {
		routerCfg.AnalysisHandler = handlers.NewAnalysisHandler(assistantSvc, log)
	}
	if appMetrics != nil {
		routerCfg.MetricsHandler = appMetrics.Handler()
		routerCfg.MetricsRecorder = appMetrics
	}

	server := apihttp.NewServer(cfg.Server, apihttp.NewRouter(routerCfg), log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	log.Info("apiserver started",
		logging.Int("port", cfg.Server.Port),
		logging.String("version", version))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return server.Stop(context.Background())
}
