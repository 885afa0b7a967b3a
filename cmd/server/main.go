package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ams/app/config"
	"ams/app/database"
	"ams/app/handlers"
	"ams/app/logger"
	"ams/app/mail"
	"ams/app/middleware"
	"ams/app/platform/notification"
	"ams/app/platform/outbox"
	"ams/app/platform/ratelimit"
	"ams/app/platform/reference"
	"ams/app/platform/storage"
	"ams/app/platform/user"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logr, err := logger.New(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logr.Sync() }()

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	if cfg.SeedOnStart {
		if _, err := reference.SeedDefaults(ctx, db, logr); err != nil {
			return fmt.Errorf("seed reference data: %w", err)
		}
	}

	var mailer mail.Mailer = mail.NewLogMailer(logr)
	if cfg.MailgunEnabled() {
		mailer = mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase, cfg.Sender())
	}

	jobs := outbox.NewService(db)
	worker := outbox.NewWorker(jobs, mailer, logr.Named("outbox"), cfg.OutboxInterval, cfg.OutboxBatchSize)

	bundle, err := notification.NewBundle()
	if err != nil {
		return err
	}

	users := user.NewService(
		user.NewGormStore(db),
		notification.NewComposer(bundle, cfg.FrontendURL),
		worker,
		logr.Named("users"),
		user.Options{
			JWTSecret:       cfg.JWTSecret,
			MaxRetries:      cfg.OutboxMaxRetries,
			BulkConcurrency: cfg.BulkConcurrency,
		},
	)
	references := reference.NewService(db)

	var objects fiber.Storage
	if s3 := cfg.Storage(); s3 != nil {
		objects = s3
	}
	uploads := storage.NewService(objects, cfg.S3PublicURL)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			return handlers.ErrorResponse(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logr.Named("http")))
	app.Use(helmet.New())
	app.Use(compress.New())
	app.Use(healthcheck.New())
	app.Use(middleware.RobotsMiddleware)

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("db", db)
		c.Locals("logger", logr)
		c.Locals("users", users)
		c.Locals("references", references)
		c.Locals("outbox", jobs)
		c.Locals("storage", uploads)
		return c.Next()
	})

	limit := middleware.RateLimit(newLimiter(cfg, logr))

	registerRoutes(app, limit)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logr.Info("listening", zap.Int("port", cfg.ServerPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.ServerPort))
	})

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newLimiter prefers a shared Redis window so limits hold across instances.
func newLimiter(cfg *config.Config, logr *zap.Logger) ratelimit.Limiter {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemory(cfg.RateLimitPerMinute)
	}

	logr.Info("rate limiting through redis", zap.String("addr", cfg.RedisAddr))
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return ratelimit.NewRedis(client, time.Minute, cfg.RateLimitPerMinute)
}
