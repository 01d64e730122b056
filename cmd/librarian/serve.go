package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/pawsen/library-org/internal/auth"
	"github.com/pawsen/library-org/internal/catalog"
	"github.com/pawsen/library-org/internal/db"
	"github.com/pawsen/library-org/internal/events"
	"github.com/pawsen/library-org/internal/health"
	apphttp "github.com/pawsen/library-org/internal/http"
	"github.com/pawsen/library-org/internal/metrics"
	"github.com/pawsen/library-org/internal/repo"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the gRPC health service when configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return ctx.serve(runCtx)
		},
	}
}

func (c *commandContext) serve(ctx context.Context) error {
	cfg := c.config
	if err := cfg.ValidateAuth(); err != nil {
		return err
	}
	log := c.serverLogger()
	defer func() { _ = log.Sync() }()

	if path := db.LockPath(cfg.Database.Driver, cfg.Database.DSN); path != "" {
		lock, err := db.AcquireLock(path)
		if err != nil {
			return err
		}
		defer func() { _ = lock.Unlock() }()
	}

	database, err := db.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		return fmt.Errorf("open database %s: %w", db.RedactDSN(cfg.Database.DSN), err)
	}
	defer database.Close()
	if err := db.RunMigrations(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.RabbitMQURL != "" {
		p, err := events.NewAMQPPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	store := repo.NewStore(database, log)
	if n, err := store.Tokens.PurgeExpired(ctx); err != nil {
		log.Warn("Failed to purge expired revocations", zap.Error(err))
	} else if n > 0 {
		log.Info("Purged expired revocations", zap.Int64("count", n))
	}

	m := metrics.New()
	svc := catalog.NewService(
		store,
		c.newFetcher(log, m),
		publisher,
		m,
		log,
		catalog.Config{PerPage: cfg.Catalog.PerPage},
	)

	authSvc, err := auth.NewService(auth.Config{
		Username:     cfg.Auth.Username,
		Password:     cfg.Auth.Password,
		PasswordHash: cfg.Auth.PasswordHash,
		SecretKey:    cfg.Auth.SecretKey,
		SessionTTL:   cfg.SessionTTL(),
	}, store.Tokens, log)
	if err != nil {
		return err
	}

	checker := health.NewChecker(database, publisher, log)
	router := apphttp.NewRouter(apphttp.Deps{
		Catalog:  catalog.NewHTTPHandler(svc, log),
		Auth:     auth.NewHTTPHandler(authSvc, cfg.Auth.CookieSecure),
		Verifier: authSvc,
		Health:   checker,
		Metrics:  m,
		Log:      log,
		Server:   cfg.Server,
	})
	defer router.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// a lookup may wait on both providers in turn
		WriteTimeout: 2*cfg.ProviderTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var grpcLis net.Listener
	if cfg.Server.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.Server.GRPCAddr); err != nil {
			return fmt.Errorf("listen grpc %s: %w", cfg.Server.GRPCAddr, err)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("db_driver", database.Driver()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if grpcLis != nil {
		grpcServer = health.NewGRPCServer(checker, log)
		go func() {
			log.Info("Starting gRPC health server", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcServer.Serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case runErr = <-errCh:
		log.Error("Server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return runErr
}
