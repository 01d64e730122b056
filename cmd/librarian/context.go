package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/catalog"
	"github.com/pawsen/library-org/internal/config"
	"github.com/pawsen/library-org/internal/db"
	"github.com/pawsen/library-org/internal/events"
	"github.com/pawsen/library-org/internal/metadata"
	"github.com/pawsen/library-org/internal/metrics"
	"github.com/pawsen/library-org/internal/platform/googlebooks"
	"github.com/pawsen/library-org/internal/platform/openlibrary"
	"github.com/pawsen/library-org/internal/repo"
	"github.com/pawsen/library-org/pkg/logger"
)

const serviceName = "librarian"

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verbose: verbose}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// serverLogger logs at the configured level.
func (c *commandContext) serverLogger() *zap.Logger {
	return logger.NewLogger(serviceName, c.config.Log.Level)
}

// cliLogger keeps one-shot commands quiet unless --verbose is set.
func (c *commandContext) cliLogger() *zap.Logger {
	if c.verbose != nil && *c.verbose {
		return c.serverLogger()
	}
	return logger.NewLogger(serviceName, "warn")
}

func (c *commandContext) newFetcher(log *zap.Logger, m *metrics.Metrics) *metadata.Fetcher {
	cfg := c.config
	ol := openlibrary.NewClient(openlibrary.Options{
		BaseURL:    cfg.Providers.OpenLibraryURL,
		UserAgent:  cfg.Providers.UserAgent,
		Timeout:    cfg.ProviderTimeout(),
		RPS:        cfg.Providers.RequestsPerSecond,
		MaxRetries: cfg.Providers.MaxRetries,
	})
	gb := googlebooks.NewClient(googlebooks.Options{
		BaseURL:    cfg.Providers.GoogleBooksURL,
		APIKey:     cfg.Providers.GoogleAPIKey,
		UserAgent:  cfg.Providers.UserAgent,
		Timeout:    cfg.ProviderTimeout(),
		RPS:        cfg.Providers.RequestsPerSecond,
		MaxRetries: cfg.Providers.MaxRetries,
	})
	return metadata.NewFetcher(log, m, cfg.ProviderTimeout(),
		metadata.NewOpenLibraryProvider(ol),
		metadata.NewGoogleBooksProvider(gb),
	)
}

// withCatalog opens and migrates the database, builds a catalog service
// without event publishing and passes it to fn.
func (c *commandContext) withCatalog(ctx context.Context, fn func(*catalog.Service) error) error {
	log := c.cliLogger()
	defer func() { _ = log.Sync() }()

	database, err := db.Connect(ctx, c.config.Database.Driver, c.config.Database.DSN, log)
	if err != nil {
		return fmt.Errorf("open database %s: %w", db.RedactDSN(c.config.Database.DSN), err)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	svc := catalog.NewService(
		repo.NewStore(database, log),
		c.newFetcher(log, nil),
		events.Nop{},
		nil,
		log,
		catalog.Config{PerPage: c.config.Catalog.PerPage},
	)
	return fn(svc)
}
