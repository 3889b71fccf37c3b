package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/logger"
)

// DummyGateway accepts every message and fabricates identifiers locally.
// Used in development and for the mock aggregator's test environments.
type DummyGateway struct{}

func NewDummyGateway() *DummyGateway {
	return &DummyGateway{}
}

func (g *DummyGateway) SendBatch(ctx context.Context, msisdns []string, texts []string, opts SendOptions) ([]*model.Message, error) {
	if err := validateBatch(msisdns, texts, opts); err != nil {
		return nil, err
	}

	messages := make([]*model.Message, len(msisdns))
	for i := range msisdns {
		messages[i] = &model.Message{
			MSISDN:           msisdns[i],
			Content:          texts[i],
			Delivery:         opts.Delivery,
			Expiry:           opts.Expiry,
			Priority:         opts.Priority,
			ReceiptRequested: opts.ReceiptRequested,
			Identifier:       newIdentifier(),
			Status:           model.MessageStatusPending,
		}
		logger.Debug("Dummy gateway accepted message", "msisdn", msisdns[i], "identifier", messages[i].Identifier)
	}
	return messages, nil
}

// newIdentifier mimics the aggregator's short hex references.
func newIdentifier() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
