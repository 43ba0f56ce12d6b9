package main

import (
	"github.com/huangang/llmrouter/internal/config"
	"github.com/huangang/llmrouter/internal/handlers"
	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/internal/utils"
	"github.com/huangang/llmrouter/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cache            *services.ResponseCache
	cleanup          *services.CleanupService
	chatHandler      *handlers.ChatHandler
	modelsHandler    *handlers.ModelsHandler
	budgetHandler    *handlers.BudgetHandler
	ledgerHandler    *handlers.LedgerHandler
	analyticsHandler *handlers.AnalyticsHandler
	authHandler      *handlers.AuthHandler
	catalogHandler   *handlers.CatalogHandler
	callerHandler    *handlers.CallerHandler
	cacheHandler     *handlers.CacheHandler
}

// bootstrap initializes all application dependencies: database, provider
// registry, routing services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed model catalog")
	}

	db := models.GetDB()

	authService := services.NewAuthService(db, &cfg.JWT)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	estimator, err := services.NewEstimator()
	if err != nil {
		logger.Fatalf("Failed to initialize token estimator: %v", err)
	}

	registry := buildRegistry(&cfg.Providers)
	cache := services.NewResponseCache(&cfg.Redis)

	ranker := services.NewRanker(db, estimator)
	budget := services.NewBudgetService(db)
	dispatcher := services.NewDispatcher(registry)
	ledger := services.NewLedgerService(db)
	router := services.NewRouterService(db, estimator, ranker, budget, cache, dispatcher, ledger, cfg.Routing.ExpectedOutputTokens)
	fanout := services.NewFanOutCoordinator(db, dispatcher, ledger, budget, cfg.Routing.MaxConcurrency)
	analytics := services.NewAnalyticsService(db)
	catalog := services.NewCatalogService(db)

	cleanup := services.NewCleanupService(ledger, cfg.Routing.LedgerRetentionDays)
	if err := cleanup.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start ledger cleanup job")
	}

	return &appServices{
		cache:            cache,
		cleanup:          cleanup,
		chatHandler:      handlers.NewChatHandler(router, fanout),
		modelsHandler:    handlers.NewModelsHandler(catalog, ranker),
		budgetHandler:    handlers.NewBudgetHandler(budget),
		ledgerHandler:    handlers.NewLedgerHandler(ledger),
		analyticsHandler: handlers.NewAnalyticsHandler(analytics),
		authHandler:      handlers.NewAuthHandler(db, &cfg.JWT),
		catalogHandler:   handlers.NewCatalogHandler(db),
		callerHandler:    handlers.NewCallerHandler(db),
		cacheHandler:     handlers.NewCacheHandler(cache),
	}
}

// buildRegistry registers an adapter for every provider the deployment has
// credentials for. Ollama needs no key, only a reachable daemon.
func buildRegistry(cfg *config.ProvidersConfig) providers.Registry {
	registry := providers.Registry{}

	if cfg.OpenAI.APIKey != "" {
		registry.Register(providers.NewOpenAIAdapter("openai", cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL))
	}
	if cfg.Anthropic.APIKey != "" {
		registry.Register(providers.NewAnthropicAdapter(cfg.Anthropic.APIKey))
	}
	if cfg.Google.APIKey != "" {
		registry.Register(providers.NewGoogleAdapter(cfg.Google.APIKey))
	}
	if cfg.DeepSeek.APIKey != "" {
		registry.Register(providers.NewOpenAIAdapter("deepseek", cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL))
	}
	registry.Register(providers.NewOllamaAdapter(cfg.Ollama.BaseURL))

	for name := range registry {
		logger.Infof("[Bootstrap] provider adapter registered: %s", name)
	}
	return registry
}

// shutdown gracefully stops background services.
func (s *appServices) shutdown() {
	s.cleanup.Stop()
	logger.Info().Msg("All schedulers stopped")
}
