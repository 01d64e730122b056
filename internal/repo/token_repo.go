package repo

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pawsen/library-org/internal/db"
)

// TokenRepository is the logout blacklist.
type TokenRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

// Revoke blacklists jti until expiresAt. Revoking twice is a no-op.
func (r *TokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.RevokedToken{JTI: jti, ExpiresAt: expiresAt}).Error
	if err != nil {
		r.log.Error("Failed to revoke token", zap.Error(err))
		return err
	}
	return nil
}

func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeExpired drops entries for tokens that can no longer verify.
func (r *TokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&db.RevokedToken{})
	return result.RowsAffected, result.Error
}
