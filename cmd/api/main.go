package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wingmentor/wingmentor-api/config"
	"github.com/wingmentor/wingmentor-api/internal/database"
	"github.com/wingmentor/wingmentor-api/internal/handlers"
	"github.com/wingmentor/wingmentor-api/internal/identity"
	"github.com/wingmentor/wingmentor-api/internal/middleware"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/internal/services"
	"github.com/wingmentor/wingmentor-api/internal/ws"
	"github.com/wingmentor/wingmentor-api/pkg/httpclient"
	"github.com/wingmentor/wingmentor-api/pkg/jwt"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/metrics"
	"github.com/wingmentor/wingmentor-api/pkg/profiling"
	"github.com/wingmentor/wingmentor-api/pkg/tracing"
	"github.com/wingmentor/wingmentor-api/pkg/trigger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting WingMentor API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.String("data_source", cfg.Store.DataSource),
		zap.String("reconcile_strategy", cfg.Store.ReconcileStrategy),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(
		cfg.Observability.ServiceName,
		cfg.Observability.ServiceNamespace,
		cfg.Observability.ServiceVersion,
		cfg.Observability.ServiceInstanceID,
		cfg.Server.AppEnv,
		cfg.Observability.ExporterEndpoint,
	)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.Start(cfg.Profiling, profiling.Service{
		Name:        cfg.Observability.ServiceName,
		Namespace:   cfg.Observability.ServiceNamespace,
		Version:     cfg.Observability.ServiceVersion,
		InstanceID:  cfg.Observability.ServiceInstanceID,
		Environment: cfg.Server.AppEnv,
	})
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Start infrastructure metrics collection
	metrics.RecordInfrastructureMetrics()

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Document store
	storeHandle, err := database.Open(rootCtx, cfg.Store, cfg.Observability.ServiceName)
	if err != nil {
		logger.Fatal("Failed to open document store", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := storeHandle.Close(ctx); closeErr != nil {
			logger.Error("Failed to close document store", zap.Error(closeErr))
		}
	}()
	store := storeHandle.Store

	// Outbound event trigger for verified logs
	verifiedTrigger := trigger.New("log-verified", cfg.EventTriggers.LogVerifiedTriggerURL, httpclient.NewStandardClient(10*time.Second))
	defer verifiedTrigger.Wait()

	// Identity: tokens are issued by the external auth service
	tokenManager := jwt.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, time.Hour)
	identityProvider := identity.NewProvider(tokenManager, time.Duration(cfg.Auth.RevokedTokenTTLHours)*time.Hour)

	// Live chat connections end with the session
	hub := ws.NewHub()
	stopAuthListener := identityProvider.OnAuthStateChanged(func(change identity.Change) {
		if change.SignedIn() {
			return
		}
		if closed := hub.CloseUser(change.UserID, "signed out"); closed > 0 {
			logger.Info("Closed live connections after sign-out",
				zap.String("uid", change.UserID),
				zap.Int("connections", closed))
		}
	})
	defer stopAuthListener()

	// Repositories and services
	userRepo := repository.NewUserRepository(store)
	chatRepo := repository.NewChatRepository(store)

	logService := services.NewLogService(store, cfg.Store.ReconcileStrategy, verifiedTrigger)
	directoryService := services.NewDirectoryService(userRepo)
	chatService := services.NewChatService(chatRepo)
	enrollmentService := services.NewEnrollmentService(userRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(store, verifiedTrigger)
	routes := handlers.Routes{
		Logs:       handlers.NewLogHandler(logService),
		Directory:  handlers.NewDirectoryHandler(directoryService),
		Chats:      handlers.NewChatHandler(chatService, hub, cfg.Server.AllowedOrigins),
		Enrollment: handlers.NewEnrollmentHandler(enrollmentService),
		Auth:       handlers.NewAuthHandler(identityProvider),
	}

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// CORS configuration - SECURITY: Only allow specific origins
	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// SECURITY: per-user rate limiting on the API, per-IP on operational endpoints
	apiRateLimiter := middleware.NewRateLimiter(rootCtx, rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	opsRateLimiter := middleware.NewRateLimiter(rootCtx, 20, 40)

	// Utility endpoints (not versioned - operational endpoints)
	api := router.Group("/api")
	api.GET("/healthcheck", opsRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", opsRateLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	handlers.RegisterAPIRoutes(router.Group("/api/v1"), routes, identityProvider, apiRateLimiter)

	// Read and write timeouts stay zero: WebSocket streams are long-lived.
	// Request bodies are bounded by BodySizeLimitMiddleware instead.
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // SECURITY: 1 MB max header size
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Hijacked WebSocket connections are not tracked by Shutdown
	hub.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
