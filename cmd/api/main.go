package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"example.com/volunteer/internal/accounts"
	"example.com/volunteer/internal/api"
	"example.com/volunteer/internal/auth"
	"example.com/volunteer/internal/certificate"
	"example.com/volunteer/internal/config"
	"example.com/volunteer/internal/domain"
	"example.com/volunteer/internal/logging"
	"example.com/volunteer/internal/outbox"
	persistence "example.com/volunteer/internal/persistence/postgres"
	httptransport "example.com/volunteer/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New("volunteer-api", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		applied, err := persistence.Migrate(ctx, pool)
		if err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", zap.Strings("files", applied))
		}
	}

	repo := persistence.NewRepository(pool)

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}
	accountService := accounts.NewService(repo, auth.NewSigner(authCfg, cfg.JWTTTL), logger)
	if _, err := accountService.EnsureInitialAdmin(ctx, accounts.DefaultInitialAdmin(cfg.AdminPassword)); err != nil {
		logger.Fatal("seeding administrator failed", zap.Error(err))
	}

	certCfg := certificate.DefaultConfig()
	certCfg.Institution = cfg.Institution
	certCfg.City = cfg.City
	service := domain.NewService(repo, certificate.NewPDFRenderer(certCfg))

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, logger.Named("outbox"), cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         authCfg,
		CORSOrigin:   cfg.CORSOrigin,
		Logger:       logger.Named("http"),
		ServeMetrics: true,
	}, api.NewHandler(service, accountService, logger))

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), router)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("volunteer-api listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	logger.Info("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	dispatcher.Wait()
}
