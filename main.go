package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bidfit-inc/bidfit-engine/pkg/config"
	"github.com/bidfit-inc/bidfit-engine/pkg/database"
	"github.com/bidfit-inc/bidfit-engine/pkg/handlers"
	"github.com/bidfit-inc/bidfit-engine/pkg/llm"
	"github.com/bidfit-inc/bidfit-engine/pkg/models"
	"github.com/bidfit-inc/bidfit-engine/pkg/prompts"
	"github.com/bidfit-inc/bidfit-engine/pkg/repositories"
	"github.com/bidfit-inc/bidfit-engine/pkg/scoring"
	"github.com/bidfit-inc/bidfit-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host),
		zap.String("llm_model", cfg.AI.LLMModel),
		zap.Bool("anthropic_fallback", cfg.AI.HasAnthropicFallback()))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient == nil {
		logger.Warn("redis not configured, scoring runs uncached")
	}

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build text generator", zap.Error(err))
	}

	profileRepo := repositories.NewProfileRepository(db)
	opportunityRepo := repositories.NewOpportunityRepository(db)
	usageRepo := repositories.NewUsageRepository(db)
	scoreRepo := repositories.NewScoreRepository(db)
	usageService := services.NewUsageService(usageRepo, logger)

	weights := prompts.CategoryWeights{
		PastPerformance: cfg.Scoring.PastPerformanceWeight,
		Technical:       cfg.Scoring.TechnicalWeight,
		StrategicFit:    cfg.Scoring.StrategicFitWeight,
		Credibility:     cfg.Scoring.CredibilityWeight,
	}

	calculator := scoring.NewCalculator(logger)
	pipeline := scoring.NewPipeline(generator, weights,
		time.Duration(cfg.AI.GenerationTimeoutSeconds)*time.Second, logger)
	cache := scoring.NewCache(redisClient,
		time.Duration(cfg.Scoring.CacheTTLSeconds)*time.Second, logger)
	orchestrator := scoring.NewOrchestrator(calculator, pipeline, cache,
		cfg.Scoring.HybridGenerativeWeight, logger)

	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.Scoring.MaxConcurrent}, logger)
	batch := scoring.NewBatchCoordinator(orchestrator, pool, usageService,
		cfg.Scoring.MaxBatchSize, logger)

	orchestrator.AddHook(func(ctx context.Context, req *models.ScoreRequest, result *models.ScoreResult) {
		logger.Info("score computed",
			zap.String("opportunity_id", req.OpportunityID),
			zap.Stringer("profile_id", req.ProfileID),
			zap.String("method", string(req.Method)),
			zap.String("algorithm", result.AlgorithmVersion),
			zap.Int("score", result.OverallScore),
			zap.Float64("cost_units", result.CostUnits))
	})

	var publisher scoring.EventPublisher
	if p := services.NewRedisEventPublisher(redisClient, logger); p != nil {
		publisher = p
	}
	dispatcher := scoring.NewDispatcher(orchestrator, publisher, usageService, 2, 256, logger)
	defer dispatcher.Close()

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, redisClient, logger).RegisterRoutes(mux)
	handlers.NewScoreHandler(batch, orchestrator, profileRepo, opportunityRepo, scoreRepo, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting bidfit-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("bidfit-engine stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildGenerator wires the primary OpenAI-compatible client, with an
// Anthropic secondary behind a failover wrapper when configured.
func buildGenerator(cfg *config.Config, logger *zap.Logger) (llm.TextGenerator, error) {
	primary, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.AI.LLMBaseURL,
		Model:    cfg.AI.LLMModel,
		APIKey:   cfg.AI.LLMAPIKey,
	}, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.AI.HasAnthropicFallback() {
		return primary, nil
	}

	secondary := llm.NewAnthropicClient(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicModel, logger)
	return llm.NewFailoverGenerator(primary, secondary, logger), nil
}
