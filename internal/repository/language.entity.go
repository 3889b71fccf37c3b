package repository

import (
	"github.com/txtalert/reminder-gateway/internal/model"
)

type LanguageEntity struct {
	ID              int64  `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	Name            string `db:"name"             gorm:"column:name;not null;uniqueIndex"`
	AttendedMessage string `db:"attended_message" gorm:"column:attended_message;not null"`
	MissedMessage   string `db:"missed_message"   gorm:"column:missed_message;not null"`
	TomorrowMessage string `db:"tomorrow_message" gorm:"column:tomorrow_message;not null"`
	TwoWeeksMessage string `db:"twoweeks_message" gorm:"column:twoweeks_message;not null"`
}

func (LanguageEntity) TableName() string {
	return "languages"
}

func toLanguageModel(e *LanguageEntity) *model.Language {
	if e == nil {
		return nil
	}
	return &model.Language{
		ID:              e.ID,
		Name:            e.Name,
		AttendedMessage: e.AttendedMessage,
		MissedMessage:   e.MissedMessage,
		TomorrowMessage: e.TomorrowMessage,
		TwoWeeksMessage: e.TwoWeeksMessage,
	}
}

func toLanguageModels(entities []*LanguageEntity) []*model.Language {
	if entities == nil {
		return nil
	}
	models := make([]*model.Language, len(entities))
	for i, e := range entities {
		models[i] = toLanguageModel(e)
	}
	return models
}
