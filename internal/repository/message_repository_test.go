package repository

import (
	"context"
	"testing"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMessage(identifier string, delivery time.Time) *model.Message {
	return &model.Message{
		MSISDN:           "27123456789",
		Content:          "Test message",
		Delivery:         delivery,
		Expiry:           delivery.Add(24 * time.Hour),
		Priority:         model.PriorityStandard,
		ReceiptRequested: true,
		Identifier:       identifier,
		Status:           model.MessageStatusPending,
	}
}

func TestMessageRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	t.Run("create message successfully", func(t *testing.T) {
		msg := newTestMessage("001efc31", time.Now())

		created, err := repo.Create(ctx, msg)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, msg.MSISDN, created.MSISDN)
		assert.Equal(t, msg.Content, created.Content)
		assert.Equal(t, msg.Identifier, created.Identifier)
		assert.Equal(t, model.MessageStatusPending, created.Status)
		assert.NotZero(t, created.CreatedAt)
	})

	t.Run("identifier must be unique", func(t *testing.T) {
		_, err := repo.Create(ctx, newTestMessage("dupe-id", time.Now()))
		require.NoError(t, err)

		_, err = repo.Create(ctx, newTestMessage("dupe-id", time.Now()))
		assert.Error(t, err)
	})
}

func TestMessageRepository_GetByIdentifier(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestMessage("001f4041", time.Now()))
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		msg, err := repo.GetByIdentifier(ctx, "001f4041")
		require.NoError(t, err)
		assert.Equal(t, created.ID, msg.ID)
		assert.Equal(t, "001f4041", msg.Identifier)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByIdentifier(ctx, "ffffffff")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessageRepository_UpdateDelivery(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestMessage("aa11bb22", time.Now()))
	require.NoError(t, err)

	t.Run("marks delivered with timestamp", func(t *testing.T) {
		deliveredAt, err := time.Parse(model.TimestampFormat, "20080831T15:59:24")
		require.NoError(t, err)

		err = repo.UpdateDelivery(ctx, created.ID, model.MessageStatusDelivered, deliveredAt)
		require.NoError(t, err)

		msg, err := repo.GetByIdentifier(ctx, "aa11bb22")
		require.NoError(t, err)
		assert.Equal(t, model.MessageStatusDelivered, msg.Status)
		require.NotNil(t, msg.DeliveryTimestamp)
		assert.Equal(t, deliveredAt.Unix(), msg.DeliveryTimestamp.Unix())
	})

	t.Run("unknown id", func(t *testing.T) {
		err := repo.UpdateDelivery(ctx, 99999, model.MessageStatusFailed, time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessageRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		msg := newTestMessage("list-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour))
		_, err := repo.Create(ctx, msg)
		require.NoError(t, err)
	}

	t.Run("list all messages", func(t *testing.T) {
		messages, total, err := repo.List(ctx, model.MessageFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, messages, 5)
	})

	t.Run("list with pagination", func(t *testing.T) {
		messages, total, err := repo.List(ctx, model.MessageFilter{Limit: 2, Offset: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, messages, 2)
	})

	t.Run("list with offset", func(t *testing.T) {
		messages, total, err := repo.List(ctx, model.MessageFilter{Limit: 2, Offset: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, messages, 2)
	})

	t.Run("list with msisdn filter", func(t *testing.T) {
		msisdn := "27123456789"
		messages, total, err := repo.List(ctx, model.MessageFilter{MSISDN: &msisdn, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, messages, 5)
	})

	t.Run("list with status filter", func(t *testing.T) {
		messages, total, err := repo.List(ctx, model.MessageFilter{
			Statuses: []model.MessageStatus{model.MessageStatusDelivered},
			Limit:    10,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Len(t, messages, 0)
	})

	t.Run("list with since filter", func(t *testing.T) {
		since := base.Add(3 * time.Hour)
		messages, total, err := repo.List(ctx, model.MessageFilter{Since: &since, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, messages, 2)
	})

	t.Run("list with desc order", func(t *testing.T) {
		messages, total, err := repo.List(ctx, model.MessageFilter{Limit: 10, Desc: true})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, messages, 5)
		for i := 0; i < len(messages)-1; i++ {
			assert.False(t, messages[i].Delivery.Before(messages[i+1].Delivery))
		}
	})

	t.Run("list with default limit", func(t *testing.T) {
		messages, total, err := repo.List(ctx, model.MessageFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, messages, 5)
	})
}

func TestMessageRepository_CountSince(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := repo.Create(ctx, newTestMessage("count-"+string(rune('a'+i)), base.Add(time.Duration(i)*24*time.Hour)))
		require.NoError(t, err)
	}

	total, err := repo.CountSince(ctx, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
