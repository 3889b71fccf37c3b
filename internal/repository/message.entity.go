package repository

import (
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
)

type MessageEntity struct {
	ID                int64      `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	MSISDN            string     `db:"msisdn"             gorm:"column:msisdn;not null;index"`
	Content           string     `db:"content"            gorm:"column:content;not null"`
	Delivery          time.Time  `db:"delivery"           gorm:"column:delivery;not null;index"`
	Expiry            time.Time  `db:"expiry"             gorm:"column:expiry;not null"`
	Priority          string     `db:"priority"           gorm:"column:priority;not null;default:standard"`
	ReceiptRequested  bool       `db:"receipt_requested"  gorm:"column:receipt_requested;not null;default:true"`
	Identifier        string     `db:"identifier"         gorm:"column:identifier;not null;uniqueIndex"`
	Status            string     `db:"status"             gorm:"column:status;not null;default:pending;index"`
	DeliveryTimestamp *time.Time `db:"delivery_timestamp" gorm:"column:delivery_timestamp"`
	CreatedAt         time.Time  `db:"created_at"         gorm:"column:created_at;autoCreateTime"`
}

func (MessageEntity) TableName() string {
	return "messages"
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		ID:                m.ID,
		MSISDN:            m.MSISDN,
		Content:           m.Content,
		Delivery:          m.Delivery,
		Expiry:            m.Expiry,
		Priority:          string(m.Priority),
		ReceiptRequested:  m.ReceiptRequested,
		Identifier:        m.Identifier,
		Status:            string(m.Status),
		DeliveryTimestamp: m.DeliveryTimestamp,
		CreatedAt:         m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:                e.ID,
		MSISDN:            e.MSISDN,
		Content:           e.Content,
		Delivery:          e.Delivery,
		Expiry:            e.Expiry,
		Priority:          model.MessagePriority(e.Priority),
		ReceiptRequested:  e.ReceiptRequested,
		Identifier:        e.Identifier,
		Status:            model.MessageStatus(e.Status),
		DeliveryTimestamp: e.DeliveryTimestamp,
		CreatedAt:         e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
