package repository

import (
	"github.com/txtalert/reminder-gateway/internal/model"
)

type SettingEntity struct {
	ID    int64  `db:"id"    gorm:"primaryKey;autoIncrement;column:id"`
	Name  string `db:"name"  gorm:"column:name;not null;uniqueIndex"`
	Value string `db:"value" gorm:"column:value"`
}

func (SettingEntity) TableName() string {
	return "settings"
}

func toSettingModel(e *SettingEntity) *model.Setting {
	if e == nil {
		return nil
	}
	return &model.Setting{
		ID:    e.ID,
		Name:  e.Name,
		Value: e.Value,
	}
}
