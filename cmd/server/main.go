package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/atelier-ops/workflow-hub/internal/api"
	"github.com/atelier-ops/workflow-hub/internal/auth"
	"github.com/atelier-ops/workflow-hub/internal/config"
	"github.com/atelier-ops/workflow-hub/internal/controller"
	"github.com/atelier-ops/workflow-hub/internal/gateway"
	"github.com/atelier-ops/workflow-hub/internal/logging"
	"github.com/atelier-ops/workflow-hub/internal/mcp"
	"github.com/atelier-ops/workflow-hub/internal/notify"
	"github.com/atelier-ops/workflow-hub/internal/repository"
	"github.com/atelier-ops/workflow-hub/internal/tls"
	"github.com/atelier-ops/workflow-hub/internal/workflow"
	"github.com/atelier-ops/workflow-hub/pkg/models"
)

func main() {
	ctx := context.Background()

	// Initialize logging
	logger := logging.NewLogger()

	// Parse command line flags
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		log.Fatalf("Configuration loading failed: %v", err)
	}
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"workflows", len(cfg.Workflows),
		"webhook_sources", len(cfg.Webhooks.Sources),
	)

	logger.Info("Starting Workflow Hub")

	// Validate and index workflow definitions
	defs, err := workflow.NewStore(cfg.Workflows)
	if err != nil {
		logger.Error("Invalid workflow definitions", "error", err)
		log.Fatalf("Workflow definition validation failed: %v", err)
	}

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer dbPool.Close()

	logger.Info("Database connected")

	// Initialize repository layer
	entityStore := repository.NewPostgresEntityStore(dbPool)
	auditLog := repository.NewPostgresAuditLog(dbPool)
	webhookLog := repository.NewPostgresWebhookLog(dbPool)

	// Initialize collaborator clients and the notification dispatcher
	collaborators := make([]notify.Collaborator, 0, len(cfg.Notifications.Collaborators)+1)
	for name, cc := range cfg.Notifications.Collaborators {
		collaborators = append(collaborators, notify.NewHTTPCollaborator(name, cc.URL, nil))
	}
	if cfg.Sync.URL != "" {
		collaborators = append(collaborators, notify.NewHTTPCollaborator(cfg.Sync.Name, cfg.Sync.URL, nil))
	}
	dispatcher := notify.NewDispatcher(
		cfg.NotificationTargets(), collaborators,
		cfg.Notifications.Retry, cfg.Notifications.Timeout, logger)
	defer dispatcher.Close()

	// Entity state controller
	ctrl := controller.New(entityStore, auditLog, defs, dispatcher,
		controller.SyncPolicy{Blocking: cfg.Sync.Blocking}, logger)

	// Webhook ingestion gateway
	gw := gateway.New(cfg, cfg.SourceLimits(), webhookLog, logger)
	sources := make([]string, 0, len(cfg.Webhooks.Sources))
	for name := range cfg.Webhooks.Sources {
		sources = append(sources, name)
	}
	gateway.RegisterEntityHandlers(gw, ctrl, sources)

	logger.Info("Service layer initialized")

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("workflow-hub"))

	// Initialize authentication
	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize auth", "error", err)
		log.Fatalf("auth initialization failed: %v", err)
	}

	metrics, err := api.NewMetrics()
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		log.Fatalf("metric registration failed: %v", err)
	}

	// Browser login flow for interactive sessions
	e.GET("/auth/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/auth/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	// Mount REST API handlers; entity routes require a verified actor
	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireActor))
	apiServer := api.NewServer(ctrl, gw, metrics, logger)
	apiServer.RegisterRoutes(e, apiGroup)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(ctrl, models.Actor{ID: "mcp@workflow-hub", Roles: []string{"automation"}})
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				logger.Error("TLS enabled but cert/key file not provided")
				serverErrors <- server.ListenAndServe()
				return
			}
			// generate if missing and hostnames provided
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tls.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
