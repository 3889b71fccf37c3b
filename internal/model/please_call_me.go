package model

import (
	"errors"
	"time"
)

// PleaseCallMe is an inbound request, usually relayed by an IVR or
// FrontlineSMS field tool, asking a clinic to call a patient back.
// Clinic resolution happens asynchronously in the worker; ClinicID stays
// nil when the sender's msisdn matches no known patient.
type PleaseCallMe struct {
	ID        int64     `json:"id"`
	MSISDN    string    `json:"msisdn"`
	SMSID     string    `json:"sms_id"`
	Message   string    `json:"message"`
	ClinicID  *int64    `json:"clinic_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PleaseCallMeCreateRequest struct {
	MSISDN  string
	SMSID   string
	Message string
}

func (p PleaseCallMeCreateRequest) Validate() error {
	if p.MSISDN == "" {
		return errors.New("number is required")
	}
	if p.SMSID == "" {
		return errors.New("sms_id is required")
	}
	return nil
}
