package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-wallet/config"
	httpHandler "campus-wallet/internal/adapter/http/handler"
	pgStorage "campus-wallet/internal/adapter/storage/postgres"
	redisStorage "campus-wallet/internal/adapter/storage/redis"
	"campus-wallet/internal/core/ports"
	"campus-wallet/internal/service"
	"campus-wallet/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Campus Wallet API")

	ctx := context.Background()

	// Run schema migrations
	if err := pgStorage.Migrate(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Database schema up to date")

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	vendorRepo := pgStorage.NewVendorRepo(pool)
	studentRepo := pgStorage.NewStudentRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	ruleRepo := pgStorage.NewRuleRepo(pool)
	requestRepo := pgStorage.NewRequestRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	otpStore := redisStorage.NewOTPStore(rdb)
	deviceStore := redisStorage.NewDeviceStore(rdb)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize business services
	identitySvc := service.NewIdentityService(studentRepo, hashSvc, otpStore, deviceStore, auditSvc, cfg.OTP.TTL, log)
	ruleSvc := service.NewRuleService(ruleRepo, txRepo, log)
	transferSvc := service.NewTransferService(
		txRepo,
		walletRepo,
		studentRepo,
		vendorRepo,
		ruleSvc,
		identitySvc,
		idempotencyCache,
		auditSvc,
		transactor,
		log,
	)
	authSvc := service.NewAuthService(userRepo, vendorRepo, studentRepo, walletRepo, hashSvc, tokenSvc, auditSvc, log)
	studentSvc := service.NewStudentService(studentRepo, walletRepo, txRepo, ruleRepo, hashSvc, auditSvc, transactor, log)
	requestSvc := service.NewRequestService(requestRepo, studentRepo, walletRepo, txRepo, auditSvc, transactor, log)
	vendorSvc := service.NewVendorService(vendorRepo, walletRepo, txRepo, auditSvc, log)
	reportingSvc := service.NewReportingService(userRepo, vendorRepo, studentRepo, walletRepo, txRepo)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		TransferSvc:    transferSvc,
		StudentSvc:     studentSvc,
		IdentitySvc:    identitySvc,
		RequestSvc:     requestSvc,
		VendorSvc:      vendorSvc,
		ReportingSvc:   reportingSvc,
		AuditSvc:       auditSvc,
		SigSvc:         sigSvc,
		TokenSvc:       tokenSvc,
		GatewaySecret:  cfg.Gateway.Secret,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
