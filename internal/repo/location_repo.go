package repo

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pawsen/library-org/internal/db"
)

type LocationRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func (r *LocationRepository) Create(ctx context.Context, loc *db.Location) error {
	if err := r.checkLabelFree(ctx, loc.LabelName, 0); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(loc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateLabel
		}
		r.log.Error("Failed to create location", zap.String("label", loc.LabelName), zap.Error(err))
		return err
	}
	r.log.Info("Location created", zap.Uint("id", loc.ID), zap.String("label", loc.LabelName))
	return nil
}

func (r *LocationRepository) Get(ctx context.Context, id uint) (*db.Location, error) {
	var loc db.Location
	if err := r.db.WithContext(ctx).First(&loc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		r.log.Error("Failed to get location", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return &loc, nil
}

// List returns all locations ordered by label.
func (r *LocationRepository) List(ctx context.Context) ([]db.Location, error) {
	var locs []db.Location
	if err := r.db.WithContext(ctx).Order("label_name").Find(&locs).Error; err != nil {
		r.log.Error("Failed to list locations", zap.Error(err))
		return nil, err
	}
	return locs, nil
}

// ByIDs loads the given locations keyed by id. Missing ids are absent.
func (r *LocationRepository) ByIDs(ctx context.Context, ids []uint) (map[uint]db.Location, error) {
	out := make(map[uint]db.Location, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var locs []db.Location
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&locs).Error; err != nil {
		r.log.Error("Failed to load locations", zap.Error(err))
		return nil, err
	}
	for _, l := range locs {
		out[l.ID] = l
	}
	return out, nil
}

func (r *LocationRepository) Update(ctx context.Context, loc *db.Location) error {
	if _, err := r.Get(ctx, loc.ID); err != nil {
		return err
	}
	if err := r.checkLabelFree(ctx, loc.LabelName, loc.ID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(loc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateLabel
		}
		r.log.Error("Failed to update location", zap.Uint("id", loc.ID), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes the location. Books that referenced it are left as they are.
func (r *LocationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&db.Location{}, id)
	if result.Error != nil {
		r.log.Error("Failed to delete location", zap.Uint("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLocationNotFound
	}
	return nil
}

func (r *LocationRepository) checkLabelFree(ctx context.Context, label string, exceptID uint) error {
	var existing db.Location
	err := r.db.WithContext(ctx).Where("label_name = ?", label).First(&existing).Error
	if err == nil {
		if existing.ID != exceptID {
			return ErrDuplicateLabel
		}
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	r.log.Error("Failed to check location label", zap.String("label", label), zap.Error(err))
	return err
}
