package receipts

import (
	"context"
	"encoding/json"

	"github.com/txtalert/reminder-gateway/internal/events"
	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/txtalert/reminder-gateway/pkg/prom"
)

const MetricsHandlerName = "receipt-metrics"

// EventReceiptsReconciled is emitted once per receipt that lands against a
// message, carrying the resulting delivery status.
const EventReceiptsReconciled = "receipts.reconciled"

type reconciledPayload struct {
	MessageID int64  `json:"message_id"`
	Reference string `json:"reference"`
	MSISDN    string `json:"msisdn"`
	Status    string `json:"status"`
}

// MetricsHandler counts reconciled receipts per delivery outcome. It runs
// in the worker because that is the binary with a metrics listener.
func MetricsHandler() events.Handler {
	return events.Handler{
		Name:   MetricsHandlerName,
		Event:  EventReceiptsReconciled,
		Handle: handleReconciled,
	}
}

func handleReconciled(ctx context.Context, event *events.Event) error {
	var payload reconciledPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		logger.Warn("Malformed reconciled receipt payload, dropping", "id", event.ID, "error", err)
		return nil
	}

	prom.IncReceiptReconciled(payload.Status)
	return nil
}
