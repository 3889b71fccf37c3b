package repository

import (
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
)

type PleaseCallMeEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	MSISDN    string    `db:"msisdn"     gorm:"column:msisdn;not null;index"`
	SMSID     string    `db:"sms_id"     gorm:"column:sms_id;not null"`
	Message   string    `db:"message"    gorm:"column:message"`
	ClinicID  *int64    `db:"clinic_id"  gorm:"column:clinic_id"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (PleaseCallMeEntity) TableName() string {
	return "please_call_mes"
}

func toPleaseCallMeEntity(m *model.PleaseCallMe) *PleaseCallMeEntity {
	if m == nil {
		return nil
	}
	return &PleaseCallMeEntity{
		ID:        m.ID,
		MSISDN:    m.MSISDN,
		SMSID:     m.SMSID,
		Message:   m.Message,
		ClinicID:  m.ClinicID,
		CreatedAt: m.CreatedAt,
	}
}

func toPleaseCallMeModel(e *PleaseCallMeEntity) *model.PleaseCallMe {
	if e == nil {
		return nil
	}
	return &model.PleaseCallMe{
		ID:        e.ID,
		MSISDN:    e.MSISDN,
		SMSID:     e.SMSID,
		Message:   e.Message,
		ClinicID:  e.ClinicID,
		CreatedAt: e.CreatedAt,
	}
}
