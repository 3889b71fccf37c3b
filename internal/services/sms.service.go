package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/txtalert/reminder-gateway/internal/gateway"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/logger"
)

// MaxSMSLength is the single-segment GSM limit enforced on the send API.
const MaxSMSLength = 160

var (
	ErrEmptyContent      = errors.New("message content cannot be empty")
	ErrTooManyCharacters = errors.New("Too many characters")
	ErrNoRecipients      = errors.New("at least one recipient is required")
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) // results, totalCount
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountSinceByStatus(ctx context.Context, since time.Time, status model.MessageStatus) (int64, error)
}

// SMSStats is the payload of the statistics endpoint.
type SMSStats struct {
	Since     time.Time `json:"since" xml:"since"`
	Total     int64     `json:"total" xml:"total"`
	Delivered int64     `json:"delivered" xml:"delivered"`
	Failed    int64     `json:"failed" xml:"failed"`
	Pending   int64     `json:"pending" xml:"pending"`
}

type SMSService struct {
	repo       MessageRepository
	gateway    gateway.Gateway
	sendWindow time.Duration
}

func NewSMSService(repo MessageRepository, gw gateway.Gateway) *SMSService {
	return &SMSService{
		repo:       repo,
		gateway:    gw,
		sendWindow: 24 * time.Hour,
	}
}

// Send submits one text to a list of recipients and records the
// acknowledged messages. Recipients the aggregator rejects are simply
// absent from the result.
func (s *SMSService) Send(ctx context.Context, msisdns []string, text string) ([]*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(text) > MaxSMSLength {
		return nil, ErrTooManyCharacters
	}

	recipients := make([]string, 0, len(msisdns))
	for _, msisdn := range msisdns {
		msisdn = strings.TrimSpace(msisdn)
		if msisdn == "" {
			continue
		}
		recipients = append(recipients, msisdn)
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	texts := make([]string, len(recipients))
	for i := range texts {
		texts[i] = text
	}

	now := time.Now()
	messages, err := s.gateway.SendBatch(ctx, recipients, texts, gateway.SendOptions{
		Delivery:         now,
		Expiry:           now.Add(s.sendWindow),
		Priority:         model.PriorityStandard,
		ReceiptRequested: true,
	})
	if err != nil {
		return nil, fmt.Errorf("send batch: %w", err)
	}

	created := make([]*model.Message, 0, len(messages))
	for _, msg := range messages {
		record, err := s.repo.Create(ctx, msg)
		if err != nil {
			logger.Error("Failed to persist sent message", "identifier", msg.Identifier, "msisdn", msg.MSISDN, "error", err)
			continue
		}
		created = append(created, record)
	}

	return created, nil
}

func (s *SMSService) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	return s.repo.List(ctx, f)
}

// Statistics counts messages scheduled since the given time, broken down
// by delivery outcome.
func (s *SMSService) Statistics(ctx context.Context, since time.Time) (*SMSStats, error) {
	total, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}
	delivered, err := s.repo.CountSinceByStatus(ctx, since, model.MessageStatusDelivered)
	if err != nil {
		return nil, err
	}
	failed, err := s.repo.CountSinceByStatus(ctx, since, model.MessageStatusFailed)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.CountSinceByStatus(ctx, since, model.MessageStatusPending)
	if err != nil {
		return nil, err
	}

	return &SMSStats{
		Since:     since,
		Total:     total,
		Delivered: delivered,
		Failed:    failed,
		Pending:   pending,
	}, nil
}
