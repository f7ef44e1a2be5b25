package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"creatorflow/auth"
	"creatorflow/campaign"
	"creatorflow/config"
	"creatorflow/db"
	"creatorflow/escrow"
	"creatorflow/meeting"
	"creatorflow/outbox"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	g, gctx := errgroup.WithContext(ctx)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret).
		WithTokenTTL(cfg.JWTExpiresIn).
		WithBcryptCost(cfg.BcryptCost)
	if cfg.GoogleClientID != "" {
		allowList, err := buildAllowList(gctx, g, cfg, redisClient, logger)
		if err != nil {
			return err
		}
		authService.WithGoogle(auth.NewGoogleVerifier(cfg.GoogleClientID), allowList)
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	relay := outbox.NewRelay(logger, outbox.NewStore(pool), publisher,
		cfg.OutboxInterval, cfg.OutboxBatchSize, cfg.OutboxMaxRetries)

	escrowService := escrow.NewService(escrow.NewRepository(pool), logger).
		WithObligationWindow(cfg.ObligationWindow)
	recorder := escrow.NewRecorder(escrowService, cfg.SnapshotInterval, logger)

	srv := &Server{
		logger:          logger,
		authService:     authService,
		meetingService:  meeting.NewService(meeting.NewRepository(pool)),
		campaignService: campaign.NewService(campaign.NewRepository(pool)),
		escrowService:   escrowService,
		authLimiter:     newIPLimiter(cfg.AuthRateLimit, 10),
		ping:            pool.Ping,
		corsOrigin:      cfg.CORSOrigin,
		secureCookies:   cfg.Production(),
		exposeErrors:    cfg.ExposeErrors,
		trustProxy:      cfg.TrustProxy,
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return recorder.Run(gctx) })
	g.Go(func() error {
		logger.Info("api listening", "addr", httpServer.Addr, "env", cfg.AppEnv, "broker", cfg.EventBroker)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildAllowList combines every configured allow-list source. Reloading
// sources are started on g.
func buildAllowList(ctx context.Context, g *errgroup.Group, cfg *config.Config, rdb *redis.Client, logger *slog.Logger) (auth.AllowList, error) {
	lists := auth.AnyAllowList{auth.NewStaticAllowList(cfg.GoogleAllowedEmails)}

	if cfg.GoogleAllowlistFile != "" {
		fileList, err := auth.NewFileAllowList(cfg.GoogleAllowlistFile, cfg.AllowlistReload, logger)
		if err != nil {
			return nil, err
		}
		g.Go(func() error { return fileList.Run(ctx) })
		lists = append(lists, fileList)
	}
	if cfg.GoogleAllowlistRedisKey != "" && rdb != nil {
		lists = append(lists, auth.NewRedisAllowList(rdb, cfg.GoogleAllowlistRedisKey))
	}
	return lists, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (outbox.Publisher, error) {
	switch cfg.EventBroker {
	case config.BrokerAMQP:
		return outbox.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case config.BrokerKafka:
		return outbox.NewKafkaPublisher(cfg.KafkaBrokers, nil)
	default:
		return outbox.NewLogPublisher(logger), nil
	}
}
