package model

import (
	"errors"
	"time"
)

// TimestampFormat is the wire format used by the aggregator for receipt
// timestamps and by the statistics API for the `since` parameter.
const TimestampFormat = "20060102T15:04:05"

// MessageStatus is the delivery lifecycle state of an outbound SMS.
// A message starts out pending and moves to delivered or failed when the
// aggregator pushes a receipt; it never moves back.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// MessagePriority is the aggregator-side delivery priority.
type MessagePriority string

const (
	PriorityStandard MessagePriority = "standard"
	PriorityHigh     MessagePriority = "high"
)

var validPriorities = map[MessagePriority]bool{
	PriorityStandard: true,
	PriorityHigh:     true,
}

func (p MessagePriority) Valid() bool { return validPriorities[p] }

// Message is the persisted record of one outbound SMS. The identifier is
// the correlation reference shared with the aggregator; it is assigned at
// send time and immutable afterwards.
type Message struct {
	ID                int64           `json:"id"`
	MSISDN            string          `json:"msisdn"`
	Content           string          `json:"smstext"`
	Delivery          time.Time       `json:"delivery"`
	Expiry            time.Time       `json:"expiry"`
	Priority          MessagePriority `json:"priority"`
	ReceiptRequested  bool            `json:"receipt_requested"`
	Identifier        string          `json:"identifier"`
	Status            MessageStatus   `json:"status"`
	DeliveryTimestamp *time.Time      `json:"delivery_timestamp,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// MessageFilter controls List queries.
type MessageFilter struct {
	MSISDN   *string
	Statuses []MessageStatus
	Since    *time.Time // delivery >= Since
	Limit    int        // default 50
	Offset   int
	Desc     bool // order by delivery
}

var ErrStatusTransition = errors.New("delivery status cannot move out of a terminal state")

// CanTransition reports whether a status update is allowed. Re-applying
// the same terminal status is permitted so receipt processing stays
// idempotent.
func (m *Message) CanTransition(next MessageStatus) bool {
	if m.Status == MessageStatusPending {
		return true
	}
	return m.Status == next
}
