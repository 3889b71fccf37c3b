package repository

import (
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
)

type VisitEntity struct {
	ID        int64     `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	PatientID int64     `db:"patient_id"  gorm:"column:patient_id;not null;index"`
	TeVisitID string    `db:"te_visit_id" gorm:"column:te_visit_id"`
	Date      time.Time `db:"date"        gorm:"column:date;not null;index"`
	Status    string    `db:"status"      gorm:"column:status;not null"`
	ClinicID  int64     `db:"clinic_id"   gorm:"column:clinic_id;not null"`
	Deleted   bool      `db:"deleted"     gorm:"column:deleted;not null;default:false"`
}

func (VisitEntity) TableName() string {
	return "visits"
}

type ClinicEntity struct {
	ID   int64  `db:"id"    gorm:"primaryKey;autoIncrement;column:id"`
	TeID string `db:"te_id" gorm:"column:te_id;uniqueIndex"`
	Name string `db:"name"  gorm:"column:name;not null"`
}

func (ClinicEntity) TableName() string {
	return "clinics"
}

func toVisitModel(e *VisitEntity) *model.Visit {
	if e == nil {
		return nil
	}
	return &model.Visit{
		ID:        e.ID,
		PatientID: e.PatientID,
		TeVisitID: e.TeVisitID,
		Date:      e.Date,
		Status:    model.VisitStatus(e.Status),
		ClinicID:  e.ClinicID,
		Deleted:   e.Deleted,
	}
}
