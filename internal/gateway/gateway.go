package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
)

var (
	ErrBatchMismatch   = errors.New("msisdns and texts must have the same length")
	ErrEmptyBatch      = errors.New("batch is empty")
	ErrInvalidPriority = errors.New("invalid priority")
)

// SendOptions carries the delivery window and priority applied to every
// message of a batch.
type SendOptions struct {
	Delivery         time.Time
	Expiry           time.Time
	Priority         model.MessagePriority
	ReceiptRequested bool
}

// Gateway submits SMS batches to the upstream aggregator. Each accepted
// message comes back as a pending record carrying the aggregator's
// correlation identifier; rejected entries are dropped from the result,
// not turned into an error.
type Gateway interface {
	SendBatch(ctx context.Context, msisdns []string, texts []string, opts SendOptions) ([]*model.Message, error)
}

func validateBatch(msisdns, texts []string, opts SendOptions) error {
	if len(msisdns) == 0 {
		return ErrEmptyBatch
	}
	if len(msisdns) != len(texts) {
		return ErrBatchMismatch
	}
	if !opts.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}
