// Package main is the entry point for the GreenCoach HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/greencoach/greencoach-service/internal/cache"
	"github.com/greencoach/greencoach-service/internal/catalog"
	"github.com/greencoach/greencoach-service/internal/co2"
	"github.com/greencoach/greencoach-service/internal/config"
	"github.com/greencoach/greencoach-service/internal/database"
	"github.com/greencoach/greencoach-service/internal/email"
	"github.com/greencoach/greencoach-service/internal/events"
	"github.com/greencoach/greencoach-service/internal/logging"
	"github.com/greencoach/greencoach-service/internal/news"
	"github.com/greencoach/greencoach-service/internal/repository"
	"github.com/greencoach/greencoach-service/internal/server"
)

const tokenCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		logging.Logger().Error("server stopped", zap.Error(err))
		_ = logging.Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logging.Init(cfg.Server.Environment); err != nil {
		return fmt.Errorf("failed to initialise logger: %w", err)
	}
	defer func() { _ = logging.Sync() }()
	logger := logging.Logger()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}()
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	redisClient, responseCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	publisher := newPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("error closing event publisher", zap.Error(err))
		}
	}()

	emailService, err := newEmailService(cfg, logger)
	if err != nil {
		return err
	}

	cat, err := catalog.New()
	if err != nil {
		return fmt.Errorf("failed to load recycling catalog: %w", err)
	}

	newsClient := news.NewClient(cfg.News, responseCache, cfg.Redis.CacheTTL)
	if !newsClient.Configured() {
		logger.Warn("NAVER_CLIENT_ID/NAVER_CLIENT_SECRET not set, /api/news will answer 503")
	}

	refreshTokenRepo := repository.NewPostgresRefreshTokenRepository(db)
	router, err := server.New(&server.Dependencies{
		Config:           cfg,
		DB:               db,
		UserRepo:         repository.NewPostgresUserRepository(db),
		RefreshTokenRepo: refreshTokenRepo,
		ResetCodeRepo:    repository.NewPostgresResetCodeRepository(db),
		PostRepo:         repository.NewPostgresPostRepository(db),
		CommentRepo:      repository.NewPostgresCommentRepository(db),
		NotificationRepo: repository.NewMemoryNotificationRepository(),
		EmailService:     emailService,
		Catalog:          cat,
		CO2:              co2.NewClient(cfg.CO2, responseCache, cfg.Redis.CacheTTL),
		News:             newsClient,
		Publisher:        publisher,
		Redis:            redisClient,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	go pruneRefreshTokens(ctx, refreshTokenRepo, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// newCache connects to Redis when REDIS_URL is set. Without it responses are
// not cached and rate limits are per instance.
func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, cache.Cache, error) {
	if cfg.Redis.URL == "" {
		logger.Info("REDIS_URL not set, response cache disabled")
		return nil, cache.Noop{}, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to redis")
	return client, cache.NewRedis(client, "greencoach"), nil
}

// newPublisher falls back to dropping events when the broker is unreachable
func newPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.AMQP.URL == "" {
		return events.Noop{}
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		logger.Warn("community events disabled", zap.Error(err))
		return events.Noop{}
	}
	logger.Info("publishing community events", zap.String("exchange", cfg.AMQP.Exchange))
	return publisher
}

func newEmailService(cfg *config.Config, logger *zap.Logger) (email.Service, error) {
	switch cfg.Email.Provider {
	case "mailgun":
		svc, err := email.NewMailgunService(email.MailgunOptions{
			Domain:      cfg.Email.MailgunDomain,
			APIKey:      cfg.Email.MailgunAPIKey,
			APIBase:     cfg.Email.MailgunAPIBase,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure mailgun: %w", err)
		}
		logger.Info("email service initialised", zap.String("provider", "mailgun"))
		return svc, nil
	case "mock":
		logger.Warn("EMAIL_PROVIDER=mock, mail is kept in memory only")
		return email.NewMockService(), nil
	default:
		logger.Info("email service initialised", zap.String("provider", "console"))
		return email.NewConsoleService(logger, cfg.Email.FromAddress, cfg.Email.FromName), nil
	}
}

// pruneRefreshTokens deletes expired refresh tokens until ctx is done
func pruneRefreshTokens(ctx context.Context, repo repository.RefreshTokenRepository, logger *zap.Logger) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("failed to prune refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("pruned expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}
