// Package repo holds the gorm repositories for books, locations, the
// transaction log and revoked session tokens.
package repo

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pawsen/library-org/internal/db"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrLocationNotFound  = errors.New("location not found")
	ErrLogNotFound       = errors.New("transaction log entry not found")
	ErrDuplicateLabel    = errors.New("location label already exists")
	ErrInvalidSortColumn = errors.New("invalid sort column")
)

// Store bundles the repositories so a caller can run several writes in one
// transaction.
type Store struct {
	db  *gorm.DB
	log *zap.Logger

	Books     *BookRepository
	Locations *LocationRepository
	Logs      *LogRepository
	Tokens    *TokenRepository
}

func NewStore(database *db.DB, log *zap.Logger) *Store {
	return newStore(database.DB, log)
}

func newStore(gdb *gorm.DB, log *zap.Logger) *Store {
	return &Store{
		db:        gdb,
		log:       log,
		Books:     &BookRepository{db: gdb, log: log},
		Locations: &LocationRepository{db: gdb, log: log},
		Logs:      &LogRepository{db: gdb, log: log},
		Tokens:    &TokenRepository{db: gdb, log: log},
	}
}

// InTx runs fn against a Store bound to a single transaction. The transaction
// is rolled back when fn returns an error.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx, s.log))
	})
}
