// Package db opens the catalog database through gorm and owns its schema.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// DB wraps the gorm connection. For postgres it also owns the pgx pool the
// connection was built from.
type DB struct {
	*gorm.DB
	driver string
	pool   *pgxpool.Pool
}

// Connect opens the database for driver. A sqlite DSN is a file path (or
// ":memory:"); its parent directory is created when missing.
func Connect(ctx context.Context, driver, dsn string, log *zap.Logger) (*DB, error) {
	gormCfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}

	switch driver {
	case DriverSQLite, "":
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		gdb, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		// one writer; also keeps ":memory:" on a single shared connection
		sqlDB.SetMaxOpenConns(1)
		log.Info("Database connected", zap.String("driver", DriverSQLite), zap.String("dsn", dsn))
		return &DB{DB: gdb, driver: DriverSQLite}, nil

	case DriverPostgres:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("create pgx pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database (%s): %w", RedactDSN(dsn), err)
		}

		sqlDB := stdlib.OpenDBFromPool(pool)
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
		log.Info("Database connected", zap.String("driver", DriverPostgres), zap.String("dsn", RedactDSN(dsn)))
		return &DB{DB: gdb, driver: DriverPostgres, pool: pool}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

func (db *DB) Driver() string {
	return db.driver
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// RedactDSN hides the credentials of a URL-style DSN.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}

func isMemory(dsn string) bool {
	return dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file::memory:")
}

func ensureDir(dsn string) error {
	if isMemory(dsn) || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
