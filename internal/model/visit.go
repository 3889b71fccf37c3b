package model

import "time"

// VisitStatus is the one-letter clinic visit outcome.
type VisitStatus string

const (
	VisitStatusMissed      VisitStatus = "m"
	VisitStatusRescheduled VisitStatus = "r"
	VisitStatusScheduled   VisitStatus = "s"
	VisitStatusAttended    VisitStatus = "a"
)

// Visit is collaborator data: one scheduled clinic appointment.
type Visit struct {
	ID        int64       `json:"id"`
	PatientID int64       `json:"patient_id"`
	TeVisitID string      `json:"te_visit_id"`
	Date      time.Time   `json:"date"` // date only, midnight UTC
	Status    VisitStatus `json:"status"`
	ClinicID  int64       `json:"clinic_id"`
	Deleted   bool        `json:"-"`
}

// ReminderRecipient is the projection the dispatcher works with: a visit
// joined to its opted-in patient.
type ReminderRecipient struct {
	VisitID    int64
	PatientID  int64
	MSISDN     string
	LanguageID int64
}
