package receipts

import (
	"context"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/logger"
)

// statusMap translates the aggregator's one-letter delivery codes.
// Unknown codes keep the message pending rather than failing the receipt.
var statusMap = map[string]model.MessageStatus{
	"D": model.MessageStatusDelivered,
	"F": model.MessageStatusFailed,
	"X": model.MessageStatusFailed,
	"K": model.MessageStatusFailed,
}

// MessageStore is the slice of the message repository reconciliation needs.
type MessageStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*model.Message, error)
	UpdateDelivery(ctx context.Context, id int64, status model.MessageStatus, deliveredAt time.Time) error
}

// Publisher emits domain events after a receipt lands.
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]interface{}) error
}

// Result partitions a receipt batch for the aggregator's response body.
type Result struct {
	Success []model.Receipt `json:"success"`
	Fail    []model.Receipt `json:"fail"`
}

type Processor struct {
	messages  MessageStore
	publisher Publisher
}

// NewProcessor builds a receipt processor. publisher may be nil, in which
// case reconciliation skips event emission.
func NewProcessor(messages MessageStore, publisher Publisher) *Processor {
	return &Processor{
		messages:  messages,
		publisher: publisher,
	}
}

// Process reconciles a batch of receipts against the message store. Every
// receipt lands in exactly one partition; one bad receipt never aborts the
// batch. Re-delivery of a receipt that already landed is counted as
// success, so aggregator retries stay harmless.
func (p *Processor) Process(ctx context.Context, receipts []model.Receipt) *Result {
	result := &Result{
		Success: make([]model.Receipt, 0, len(receipts)),
		Fail:    make([]model.Receipt, 0),
	}

	for _, receipt := range receipts {
		if err := p.reconcile(ctx, receipt); err != nil {
			logger.Warn("Receipt reconciliation failed", "reference", receipt.Reference, "msisdn", receipt.MSISDN, "error", err)
			result.Fail = append(result.Fail, receipt)
			continue
		}
		result.Success = append(result.Success, receipt)
	}

	return result
}

func (p *Processor) reconcile(ctx context.Context, receipt model.Receipt) error {
	deliveredAt, err := time.Parse(model.TimestampFormat, receipt.Timestamp)
	if err != nil {
		return err
	}

	msg, err := p.messages.GetByIdentifier(ctx, receipt.Reference)
	if err != nil {
		return err
	}

	status, ok := statusMap[receipt.Status]
	if !ok {
		status = model.MessageStatusPending
	}

	if !msg.CanTransition(status) {
		return model.ErrStatusTransition
	}
	if msg.Status == status {
		// already landed, aggregator retry
		return nil
	}

	if err := p.messages.UpdateDelivery(ctx, msg.ID, status, deliveredAt); err != nil {
		return err
	}

	if p.publisher != nil {
		err := p.publisher.Publish(ctx, EventReceiptsReconciled, map[string]interface{}{
			"message_id": msg.ID,
			"reference":  receipt.Reference,
			"msisdn":     receipt.MSISDN,
			"status":     string(status),
		})
		if err != nil {
			logger.Warn("Failed to publish receipt event", "reference", receipt.Reference, "error", err)
		}
	}

	return nil
}
