package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/adapters/datasource"
	_ "github.com/insightloop/insight-engine/pkg/adapters/datasource/mssql"
	_ "github.com/insightloop/insight-engine/pkg/adapters/datasource/postgres"
	"github.com/insightloop/insight-engine/pkg/auth"
	"github.com/insightloop/insight-engine/pkg/config"
	"github.com/insightloop/insight-engine/pkg/database"
	"github.com/insightloop/insight-engine/pkg/handlers"
	"github.com/insightloop/insight-engine/pkg/llm"
	"github.com/insightloop/insight-engine/pkg/logging"
	"github.com/insightloop/insight-engine/pkg/mcp"
	mcpauth "github.com/insightloop/insight-engine/pkg/mcp/auth"
	"github.com/insightloop/insight-engine/pkg/mcp/tools"
	"github.com/insightloop/insight-engine/pkg/middleware"
	"github.com/insightloop/insight-engine/pkg/repositories"
	"github.com/insightloop/insight-engine/pkg/services"
	sqlguard "github.com/insightloop/insight-engine/pkg/sql"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", cfg.Database.Host),
		zap.String("llm_provider", cfg.LLM.Provider))

	// Cancelled at shutdown so background loops stop with the server.
	ctx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// Engine store + migrations.
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to engine store", zap.Error(err))
	}
	defer db.Close()

	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// Optional dataset cache. A nil client means pass-through.
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, dataset cache disabled", zap.Error(err))
		redisClient = nil
	}

	// Repositories.
	datasets := repositories.NewDatasetRepository(db)
	if redisClient != nil {
		datasets = repositories.NewCachedDatasetRepository(datasets, redisClient, cfg.Redis.CacheTTL(), logger)
	}
	questionLog := repositories.NewQuestionLogRepository(db)

	// Age out old question log rows, at startup and then daily.
	retention := services.NewRetentionService(questionLog, cfg.Pipeline.LogRetentionDays, logger)
	retention.RunScheduler(ctx, 24*time.Hour)

	// Datasource pools and executors.
	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:   cfg.Datasource.PoolTTLMinutes,
		MaxPools:     cfg.Datasource.MaxPools,
		PoolMaxConns: cfg.Datasource.PoolMaxConns,
		PoolMinConns: cfg.Datasource.PoolMinConns,
	}, logger)
	defer func() { _ = connMgr.Close() }()
	executors := datasource.NewExecutorFactory(connMgr)

	// LLM generator; nil degrades the planner to deterministic templates.
	generator, err := llm.NewGenerator(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to build LLM client", zap.Error(err))
	}

	// Vocabulary tables, optionally overridden from file.
	vocab := services.DefaultVocabulary()
	if cfg.Pipeline.VocabularyPath != "" {
		vocab, err = services.LoadVocabulary(cfg.Pipeline.VocabularyPath)
		if err != nil {
			logger.Fatal("Failed to load vocabulary", zap.Error(err))
		}
	}

	// Pipeline components.
	guard := sqlguard.NewGuard(cfg.Pipeline.MaxRows)
	extractor := services.NewEntityExtractor(vocab, logger)
	classifier := services.NewIntentClassifier(vocab, extractor)
	planner := services.NewQueryPlanner(generator, guard, &cfg.LLM, logger)
	normalizer := services.NewResultNormalizer(cfg.Pipeline.MaxRows, logger)
	selector := services.NewVisualizationSelector(vocab, logger)
	narrator := services.NewInsightNarrator(vocab, logger)
	detector := services.NewConversationDetector(vocab)
	broker := services.NewProgressBroker(cfg.Pipeline.EventBuffer, logger)

	resolution := services.NewResolutionService(services.ResolutionDeps{
		Datasets:    datasets,
		QuestionLog: questionLog,
		Classifier:  classifier,
		Extractor:   extractor,
		Planner:     planner,
		Normalizer:  normalizer,
		Selector:    selector,
		Narrator:    narrator,
		Detector:    detector,
		Broker:      broker,
		Executors:   executors,
	}, &cfg.Pipeline, logger)
	suggestions := services.NewSuggestionService(datasets, questionLog, vocab, logger)

	// Authentication.
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, connMgr, logger).RegisterRoutes(mux)
	handlers.NewDatasetsHandler(datasets, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewQuestionsHandler(resolution, suggestions, broker, logger).RegisterRoutes(mux, authMiddleware)

	// MCP mount for agent clients.
	mcpServer := mcp.NewServer("insight-engine", cfg.Version, logger)
	tools.RegisterQuestionTools(mcpServer.MCP(), &tools.QuestionToolDeps{
		Resolution:  resolution,
		Suggestions: suggestions,
		Datasets:    datasets,
		Logger:      logger,
	})
	tools.RegisterDatasetTools(mcpServer.MCP(), &tools.DatasetToolDeps{
		Datasets: datasets,
		Logger:   logger,
	})
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)

	mcpAuthMiddleware := mcpauth.NewMiddleware(authService, logger)
	mcpHTTP := middleware.MCPRequestLogger(logger)(mcpServer.NewStreamableHTTPServer())
	mux.Handle("/mcp", mcpAuthMiddleware.RequireAuth(mcpHTTP))

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	go func() {
		logger.Info("Starting insight-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		var serveErr error
		if cfg.TLSCertPath != "" {
			serveErr = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(serveErr))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown incomplete", zap.Error(err))
	}
}
