package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/quinisports/quinisports/cmd/quinisports/cli"
	"github.com/quinisports/quinisports/internal/app"
	"github.com/quinisports/quinisports/internal/auth"
	"github.com/quinisports/quinisports/internal/businesses"
	"github.com/quinisports/quinisports/internal/events"
	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/images"
	"github.com/quinisports/quinisports/internal/observability"
	"github.com/quinisports/quinisports/internal/platform/blob"
	"github.com/quinisports/quinisports/internal/platform/cache"
	"github.com/quinisports/quinisports/internal/platform/db"
	"github.com/quinisports/quinisports/internal/prizes"
	"github.com/quinisports/quinisports/internal/products"
	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/sports"
	"github.com/quinisports/quinisports/internal/subscriptions"
	"github.com/quinisports/quinisports/internal/users"
	"github.com/quinisports/quinisports/internal/view"
	"github.com/quinisports/quinisports/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := cli.Run(ctx, cfg.RedisAddr, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, "", 0)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	g := guard.New(guard.Config{
		GateHeader:    cfg.GateHeader,
		GateOpenValue: cfg.GateOpenValue,
		GateDisabled:  cfg.GateDisabled,
	}, logger, metrics)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.EventsEnabled() {
		publisher = events.NewKafkaPublisher(logger, cfg.KafkaBrokers, cfg.KafkaAccessTopic, metrics)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("events close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	blobStore := blob.NewClient(blob.Config{
		BaseURL:   cfg.BlobURL,
		Token:     cfg.BlobToken,
		Timeout:   10 * time.Second,
		RetryMax:  2,
		RetryWait: 250 * time.Millisecond,
	})
	janitor := images.NewJanitor(blobStore, jobClient, logger)
	auditLogger := shared.NewAuditLogger(dbpool)
	publicCache := cache.NewVersioned(redisClient, "public", 10*time.Minute)

	authOpts := []auth.Option{auth.WithAutoProvision(cfg.AutoProvision), auth.WithMetrics(metrics)}
	if cfg.FederatedEnabled() {
		authOpts = append(authOpts, auth.WithVerifier(auth.NewJWKSVerifier(auth.VerifierConfig{
			JWKSURL:  cfg.GoogleJWKSURL,
			Audience: cfg.GoogleClientID,
			Issuers:  []string{cfg.GoogleIssuer},
		})))
	}
	authService := auth.NewService(auth.NewRepository(dbpool), authOpts...)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, g)

	usersService := users.NewService(users.NewRepository(dbpool), sessionManager, auditLogger, publisher, logger)
	businessService := businesses.NewService(businesses.NewRepository(dbpool), businesses.Deps{
		Images: janitor,
		Public: publicCache,
		Audit:  auditLogger,
		Logger: logger,
	})
	productService := products.NewService(products.NewRepository(dbpool), products.Deps{
		Images: janitor,
		Public: businessService,
		Audit:  auditLogger,
		Logger: logger,
	})
	prizeService := prizes.NewService(prizes.NewRepository(dbpool), prizes.Deps{
		Images: janitor,
		Public: businessService,
		Audit:  auditLogger,
		Logger: logger,
	})
	sportService := sports.NewService(sports.NewRepository(dbpool), janitor, auditLogger, logger)
	subscriptionService := subscriptions.NewService(subscriptions.NewRepository(dbpool), businessService, auditLogger, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Templates:           templates,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		Guard:               g,
		Metrics:             metrics,
		AuthHandler:         authHandler,
		UsersHandler:        users.NewHandler(logger, usersService, g),
		BusinessHandler:     businesses.NewHandler(logger, businessService, templates, g),
		ProductHandler:      products.NewHandler(logger, productService, g),
		PrizeHandler:        prizes.NewHandler(logger, prizeService, g),
		SportHandler:        sports.NewHandler(logger, sportService, g),
		SubscriptionHandler: subscriptions.NewHandler(logger, subscriptionService, g),
		ImageHandler:        images.NewHandler(logger, blobStore, g),
		JobHandler:          jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
