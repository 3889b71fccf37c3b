package repository

import (
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
)

type PatientEntity struct {
	ID           int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	TeID         string    `db:"te_id"         gorm:"column:te_id;not null;uniqueIndex"`
	ActiveMSISDN string    `db:"active_msisdn" gorm:"column:active_msisdn;index"`
	LanguageID   int64     `db:"language_id"   gorm:"column:language_id;not null"`
	OptedIn      bool      `db:"opted_in"      gorm:"column:opted_in;not null;default:false"`
	Deleted      bool      `db:"deleted"       gorm:"column:deleted;not null;default:false"`
	CreatedAt    time.Time `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (PatientEntity) TableName() string {
	return "patients"
}

func toPatientModel(e *PatientEntity) *model.Patient {
	if e == nil {
		return nil
	}
	return &model.Patient{
		ID:           e.ID,
		TeID:         e.TeID,
		ActiveMSISDN: e.ActiveMSISDN,
		LanguageID:   e.LanguageID,
		OptedIn:      e.OptedIn,
		Deleted:      e.Deleted,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
