package repository

import (
	"context"
	"errors"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrLanguageNotFound = errors.New("language not found")

type LanguageRepository struct {
	*pg.DB
}

func NewLanguageRepository(db *pg.DB) *LanguageRepository {
	return &LanguageRepository{
		db,
	}
}

func (r *LanguageRepository) Get(ctx context.Context, id int64) (*model.Language, error) {
	var entity LanguageEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLanguageNotFound
		}
		return nil, err
	}
	return toLanguageModel(&entity), nil
}

// List returns all languages keyed by id, loaded once per dispatch run.
func (r *LanguageRepository) List(ctx context.Context) (map[int64]*model.Language, error) {
	var entities []*LanguageEntity
	if err := r.Read(ctx).WithContext(ctx).Find(&entities).Error; err != nil {
		return nil, err
	}
	languages := make(map[int64]*model.Language, len(entities))
	for _, m := range toLanguageModels(entities) {
		languages[m.ID] = m
	}
	return languages, nil
}
