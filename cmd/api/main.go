package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/coopbank/coopbank-backend/internal/client/corebank"
	"github.com/dafibh/coopbank/coopbank-backend/internal/config"
	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/dafibh/coopbank/coopbank-backend/internal/handler"
	"github.com/dafibh/coopbank/coopbank-backend/internal/middleware"
	"github.com/dafibh/coopbank/coopbank-backend/internal/repository/postgres"
	"github.com/dafibh/coopbank/coopbank-backend/internal/repository/storage"
	"github.com/dafibh/coopbank/coopbank-backend/internal/service"
	"github.com/dafibh/coopbank/coopbank-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Accounts live either in our own database or behind the core banking API
	var (
		accountRepo    domain.AccountRepository
		paymentGateway domain.MaturityPaymentGateway
	)
	switch cfg.AccountStore {
	case config.AccountStoreCoreBank:
		client := corebank.NewClient(cfg.CoreBank)
		accountRepo = client
		paymentGateway = client
		log.Info().Str("base_url", cfg.CoreBank.BaseURL).Msg("Using core banking API for accounts")
	default:
		accountRepo = postgres.NewAccountRepository(pool)
		paymentGateway = postgres.NewMaturityPaymentRepository(pool)
	}
	closureLogRepo := postgres.NewClosureLogRepository(pool)
	operatorRepo := postgres.NewOperatorRepository(pool)

	// Initialize services
	authService := service.NewAuthService(operatorRepo)
	accountService := service.NewAccountService(accountRepo)
	closureService := service.NewClosureService(accountRepo, paymentGateway, closureLogRepo)

	// Real-time events
	hub := websocket.NewHub()
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	if cfg.RedisURL != "" {
		redisClient, err := websocket.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		closureService.SetEventPublisher(websocket.NewRedisPublisher(redisClient, websocket.DefaultEventChannel))
		relay := websocket.NewRedisRelay(redisClient, websocket.DefaultEventChannel, hub)
		go func() {
			if err := relay.Run(relayCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Redis event relay stopped")
			}
		}()
		log.Info().Msg("Closure events fan out through Redis")
	} else {
		closureService.SetEventPublisher(hub)
	}

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}

	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
	}

	// Initialize handlers
	closureHandler := handler.NewClosureHandler(closureService)

	// Voucher archive is optional
	if cfg.S3.Enabled() {
		var voucherRepo storage.VoucherRepository
		voucherRepo, err = storage.NewS3VoucherRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize voucher storage")
		}
		closureService.SetVoucherRepository(voucherRepo)
		closureHandler.SetVoucherRepository(voucherRepo)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Closure vouchers archived to S3")
	}

	closureLimiter := middleware.NewRateLimiterWithConfig(cfg.ClosureRateLimit, middleware.DefaultBurstSize)
	defer closureLimiter.Stop()

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Account:   handler.NewAccountHandler(accountService),
		Closure:   closureHandler,
		WebSocket: handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, closureLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("account_store", cfg.AccountStore).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	stopRelay()
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Warn()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("operator_id", middleware.GetOperatorID(c)).
				Msg("request")

			return nil
		}
	}
}
