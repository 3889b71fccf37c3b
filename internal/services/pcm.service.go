package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/logger"
)

type PleaseCallMeRepository interface {
	Create(ctx context.Context, pcm *model.PleaseCallMe) (*model.PleaseCallMe, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]interface{}) error
}

// PCMStats is the payload of the please-call-me statistics endpoint.
type PCMStats struct {
	Since time.Time `json:"since" xml:"since"`
	Total int64     `json:"total" xml:"total"`
}

type PCMService struct {
	repo      PleaseCallMeRepository
	publisher Publisher
}

// NewPCMService builds the please-call-me intake service. publisher may
// be nil; clinic resolution then simply never happens.
func NewPCMService(repo PleaseCallMeRepository, publisher Publisher) *PCMService {
	return &PCMService{
		repo:      repo,
		publisher: publisher,
	}
}

// Create stores an inbound please-call-me and emits the resolution event.
// A publish failure is logged, not returned: the caller already promised
// the field tool a 200.
func (s *PCMService) Create(ctx context.Context, req model.PleaseCallMeCreateRequest) (*model.PleaseCallMe, error) {
	req.MSISDN = strings.TrimSpace(req.MSISDN)
	req.SMSID = strings.TrimSpace(req.SMSID)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pcm, err := s.repo.Create(ctx, &model.PleaseCallMe{
		MSISDN:  req.MSISDN,
		SMSID:   req.SMSID,
		Message: req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("create please call me: %w", err)
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, "pcm.received", map[string]interface{}{
			"pcm_id": pcm.ID,
			"msisdn": pcm.MSISDN,
		})
		if err != nil {
			logger.Warn("Failed to publish pcm event", "pcm_id", pcm.ID, "error", err)
		}
	}

	return pcm, nil
}

func (s *PCMService) Statistics(ctx context.Context, since time.Time) (*PCMStats, error) {
	total, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return &PCMStats{Since: since, Total: total}, nil
}
