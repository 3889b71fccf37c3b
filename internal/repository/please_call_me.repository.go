package repository

import (
	"context"
	"errors"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrPleaseCallMeNotFound = errors.New("please call me not found")

type PleaseCallMeRepository struct {
	*pg.DB
}

func NewPleaseCallMeRepository(db *pg.DB) *PleaseCallMeRepository {
	return &PleaseCallMeRepository{
		db,
	}
}

func (r *PleaseCallMeRepository) Create(ctx context.Context, pcm *model.PleaseCallMe) (*model.PleaseCallMe, error) {
	entity := toPleaseCallMeEntity(pcm)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toPleaseCallMeModel(entity), nil
}

func (r *PleaseCallMeRepository) Get(ctx context.Context, id int64) (*model.PleaseCallMe, error) {
	var entity PleaseCallMeEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPleaseCallMeNotFound
		}
		return nil, err
	}
	return toPleaseCallMeModel(&entity), nil
}

// SetClinic records the clinic resolved for a please-call-me request.
func (r *PleaseCallMeRepository) SetClinic(ctx context.Context, id int64, clinicID int64) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&PleaseCallMeEntity{}).
		Where("id = ?", id).
		Update("clinic_id", clinicID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPleaseCallMeNotFound
	}
	return nil
}

func (r *PleaseCallMeRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&PleaseCallMeEntity{}).
		Where("created_at >= ?", since).
		Count(&total).Error
	return total, err
}
