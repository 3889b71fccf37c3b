package model

import "time"

// Patient is collaborator data owned by the clinic CRUD system. The core
// only reads patients: the dispatcher needs the active msisdn, language
// and opt-in flag, the worker resolves please-call-me senders by msisdn.
// Deleted is a soft-delete marker checked by every read path.
type Patient struct {
	ID           int64     `json:"id"`
	TeID         string    `json:"te_id"`
	ActiveMSISDN string    `json:"active_msisdn"`
	LanguageID   int64     `json:"language_id"`
	OptedIn      bool      `json:"opted_in"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
