package repository

import (
	"context"
	"errors"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a message does not exist.
	ErrNotFound = errors.New("message not found")
)

type MessageRepository struct {
	*pg.DB
}

func NewMessageRepository(db *pg.DB) *MessageRepository {
	return &MessageRepository{
		db,
	}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	entity := toMessageEntity(msg)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMessageModel(entity), nil
}

// GetByIdentifier resolves a message by its aggregator correlation
// reference. The identifier column is unique, so at most one row matches.
func (r *MessageRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.Message, error) {
	var entity MessageEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("identifier = ?", identifier).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toMessageModel(&entity), nil
}

// UpdateDelivery sets the delivery outcome reported by a receipt. Only the
// status and timestamp columns move, everything else on the row is
// immutable after creation.
func (r *MessageRepository) UpdateDelivery(ctx context.Context, id int64, status model.MessageStatus, deliveredAt time.Time) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             string(status),
			"delivery_timestamp": deliveredAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MessageRepository) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&MessageEntity{})

	if f.MSISDN != nil && *f.MSISDN != "" {
		q = q.Where("msisdn = ?", *f.MSISDN)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.Since != nil {
		q = q.Where("delivery >= ?", *f.Since)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "delivery"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*MessageEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toMessageModels(entities), total, nil
}

// CountSince counts messages scheduled for delivery at or after the given
// time, the "total sent" figure of the statistics digest.
func (r *MessageRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("delivery >= ?", since).
		Count(&total).Error
	return total, err
}

// CountSinceByStatus breaks the sent figure down per delivery outcome.
func (r *MessageRepository) CountSinceByStatus(ctx context.Context, since time.Time, status model.MessageStatus) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("delivery >= ? AND status = ?", since, string(status)).
		Count(&total).Error
	return total, err
}
