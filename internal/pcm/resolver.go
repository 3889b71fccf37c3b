package pcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/txtalert/reminder-gateway/internal/events"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/repository"
	"github.com/txtalert/reminder-gateway/pkg/logger"
)

// HandlerName is the resolver's subscription name on the event bus.
const HandlerName = "pcm-clinic-resolver"

// EventPCMReceived is emitted when a please-call-me lands over the API.
const EventPCMReceived = "pcm.received"

type PatientStore interface {
	GetByMSISDN(ctx context.Context, msisdn string) (*model.Patient, error)
}

type VisitStore interface {
	LatestClinicID(ctx context.Context, patientID int64) (int64, error)
}

type PleaseCallMeStore interface {
	SetClinic(ctx context.Context, id int64, clinicID int64) error
}

type pcmReceivedPayload struct {
	PCMID  int64  `json:"pcm_id"`
	MSISDN string `json:"msisdn"`
}

// Resolver attributes an incoming please-call-me to a clinic: the sender
// msisdn is matched to a patient and the clinic of their most recent
// visit wins. A number we don't know is logged and dropped; it must not
// push the event into retry.
type Resolver struct {
	patients PatientStore
	visits   VisitStore
	pcms     PleaseCallMeStore
}

func NewResolver(patients PatientStore, visits VisitStore, pcms PleaseCallMeStore) *Resolver {
	return &Resolver{
		patients: patients,
		visits:   visits,
		pcms:     pcms,
	}
}

// Handler returns the named event bus subscription.
func (r *Resolver) Handler() events.Handler {
	return events.Handler{
		Name:   HandlerName,
		Event:  EventPCMReceived,
		Handle: r.Handle,
	}
}

func (r *Resolver) Handle(ctx context.Context, event *events.Event) error {
	var payload pcmReceivedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		logger.Warn("Malformed pcm event payload, dropping", "id", event.ID, "error", err)
		return nil
	}

	clinicID, err := r.resolve(ctx, payload.MSISDN)
	if err != nil {
		if errors.Is(err, repository.ErrPatientNotFound) || errors.Is(err, repository.ErrVisitNotFound) {
			logger.Info("No clinic for please-call-me, dropping", "pcm_id", payload.PCMID, "msisdn", payload.MSISDN, "reason", err)
			return nil
		}
		return fmt.Errorf("resolve clinic: %w", err)
	}

	if err := r.pcms.SetClinic(ctx, payload.PCMID, clinicID); err != nil {
		if errors.Is(err, repository.ErrPleaseCallMeNotFound) {
			logger.Warn("Please-call-me row vanished before resolution", "pcm_id", payload.PCMID)
			return nil
		}
		return fmt.Errorf("set clinic: %w", err)
	}

	logger.Info("Resolved please-call-me clinic", "pcm_id", payload.PCMID, "clinic_id", clinicID)
	return nil
}

func (r *Resolver) resolve(ctx context.Context, msisdn string) (int64, error) {
	patient, err := r.patients.GetByMSISDN(ctx, msisdn)
	if err != nil {
		return 0, err
	}
	return r.visits.LatestClinicID(ctx, patient.ID)
}
