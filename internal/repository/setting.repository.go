package repository

import (
	"context"
	"errors"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrSettingNotFound = errors.New("setting not found")

type SettingRepository struct {
	*pg.DB
}

func NewSettingRepository(db *pg.DB) *SettingRepository {
	return &SettingRepository{
		db,
	}
}

func (r *SettingRepository) GetByName(ctx context.Context, name string) (*model.Setting, error) {
	var entity SettingEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("name = ?", name).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return toSettingModel(&entity), nil
}
