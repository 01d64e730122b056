package repo

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pawsen/library-org/internal/db"
)

// LogRepository appends to and reads the transaction log. There is no update
// or delete.
type LogRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func (r *LogRepository) Append(ctx context.Context, entry *db.TransactionLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Error("Failed to append transaction log",
			zap.String("action", entry.Action),
			zap.String("book_title", entry.BookTitle),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *LogRepository) Get(ctx context.Context, id uint) (*db.TransactionLog, error) {
	var entry db.TransactionLog
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		r.log.Error("Failed to get transaction log", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return &entry, nil
}

// List returns entries newest first. limit <= 0 returns everything.
func (r *LogRepository) List(ctx context.Context, limit int) ([]db.TransactionLog, error) {
	query := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []db.TransactionLog
	if err := query.Find(&entries).Error; err != nil {
		r.log.Error("Failed to list transaction log", zap.Error(err))
		return nil, err
	}
	return entries, nil
}
