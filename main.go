package main

import (
	"context"
	"log"
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/auth"
	"github.com/veritaslearn/contributor-engine/pkg/config"
	"github.com/veritaslearn/contributor-engine/pkg/database"
	"github.com/veritaslearn/contributor-engine/pkg/handlers"
	"github.com/veritaslearn/contributor-engine/pkg/llm"
	"github.com/veritaslearn/contributor-engine/pkg/middleware"
	"github.com/veritaslearn/contributor-engine/pkg/repositories"
	"github.com/veritaslearn/contributor-engine/pkg/services"
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
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host))

	if err := database.RunMigrations(&cfg.Database, logger); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	if redisClient == nil {
		logger.Fatal("redis is required for rate limiting")
	}

	// Auth
	verifier, err := auth.NewJWKSVerifier(cfg.Auth.EnableVerification, cfg.Auth.JWKSEndpoints)
	if err != nil {
		logger.Fatal("JWKS verifier init failed", zap.Error(err))
	}
	defer verifier.Close()

	authService := auth.NewAuthService(verifier, logger.Named("auth"))
	adminPolicy := auth.NewEmailAllowlistPolicy(cfg.Auth.AdminEmails)
	authMiddleware := auth.NewMiddleware(authService, adminPolicy, logger.Named("auth"))

	// AI clients. Unconfigured providers stay nil and their endpoints
	// answer 503 instead of failing startup.
	var geminiClient, perplexityClient, anthropicClient llm.Client
	if cfg.AI.Gemini.IsAvailable() {
		client, err := llm.NewChatClient(&llm.Config{
			Endpoint: cfg.AI.Gemini.BaseURL,
			Model:    cfg.AI.Gemini.Model,
			APIKey:   cfg.AI.Gemini.APIKey,
		}, logger.Named("gemini"))
		if err != nil {
			logger.Fatal("gemini client init failed", zap.Error(err))
		}
		geminiClient = client
	} else {
		logger.Warn("gemini not configured, question generation and assistance disabled")
	}
	if cfg.AI.Perplexity.IsAvailable() {
		client, err := llm.NewChatClient(&llm.Config{
			Endpoint: cfg.AI.Perplexity.BaseURL,
			Model:    cfg.AI.Perplexity.Model,
			APIKey:   cfg.AI.Perplexity.APIKey,
		}, logger.Named("perplexity"))
		if err != nil {
			logger.Fatal("perplexity client init failed", zap.Error(err))
		}
		perplexityClient = client
	} else {
		logger.Warn("perplexity not configured, source discovery disabled")
	}
	if cfg.AI.Anthropic.IsAvailable() {
		anthropicClient = llm.NewAnthropicClient(cfg.AI.Anthropic.APIKey, cfg.AI.Anthropic.Model, logger)
	} else {
		logger.Warn("anthropic not configured, answer synthesis disabled")
	}

	// Services
	counterStore := services.NewRedisCounterStore(redisClient)
	rateLimiter := services.NewRateLimiter(counterStore, &cfg.Limits, logger)

	contributionRepo := repositories.NewContributionRepository(db)
	contributionService := services.NewContributionService(contributionRepo, logger)
	reviewService := services.NewReviewService(contributionRepo, logger)
	agreementService := services.NewAgreementService(contributionRepo, &cfg.Agreement, logger)

	discoveryService := services.NewSourceDiscoveryService(perplexityClient, cfg.AI.CallTimeout, logger)
	questionService := services.NewQuestionService(geminiClient, rateLimiter, &cfg.Interview, cfg.AI.CallTimeout, logger)
	suggestionCache := services.NewSuggestionCache(cfg.Interview.AssistanceCacheTTL)
	assistanceService := services.NewAssistanceService(geminiClient, anthropicClient, discoveryService, rateLimiter, suggestionCache, cfg.AI.CallTimeout, logger)

	// HTTP surface
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewInterviewHandler(questionService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAssistanceHandler(assistanceService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewDiscoveryHandler(discoveryService, contributionService, rateLimiter, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewContributionHandler(contributionService, agreementService, adminPolicy, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewReviewHandler(reviewService, logger).RegisterRoutes(mux, authMiddleware)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := middleware.RequestLogger(logger)(corsMiddleware.Handler(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting contributor-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
