package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/txtalert/reminder-gateway/internal/gateway"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) CountSinceByStatus(ctx context.Context, since time.Time, status model.MessageStatus) (int64, error) {
	args := m.Called(ctx, since, status)
	return args.Get(0).(int64), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SendBatch(ctx context.Context, msisdns []string, texts []string, opts gateway.SendOptions) ([]*model.Message, error) {
	args := m.Called(ctx, msisdns, texts, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func TestSMSService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("sends and persists acknowledged messages", func(t *testing.T) {
		repo := new(MockMessageRepository)
		gw := new(MockGateway)
		svc := NewSMSService(repo, gw)

		acked := []*model.Message{
			{MSISDN: "27830000001", Identifier: "aaaa0001", Status: model.MessageStatusPending},
			{MSISDN: "27830000002", Identifier: "aaaa0002", Status: model.MessageStatusPending},
		}
		gw.On("SendBatch", ctx, []string{"27830000001", "27830000002"},
			[]string{"hello", "hello"}, mock.Anything).Return(acked, nil)
		repo.On("Create", ctx, acked[0]).Return(&model.Message{ID: 1, Identifier: "aaaa0001"}, nil)
		repo.On("Create", ctx, acked[1]).Return(&model.Message{ID: 2, Identifier: "aaaa0002"}, nil)

		created, err := svc.Send(ctx, []string{"27830000001", " 27830000002 "}, "hello")
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, int64(1), created[0].ID)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		svc := NewSMSService(new(MockMessageRepository), new(MockGateway))
		_, err := svc.Send(ctx, []string{"27830000001"}, "   ")
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("content over 160 characters rejected", func(t *testing.T) {
		svc := NewSMSService(new(MockMessageRepository), new(MockGateway))
		_, err := svc.Send(ctx, []string{"27830000001"}, strings.Repeat("a", 161))
		assert.ErrorIs(t, err, ErrTooManyCharacters)
	})

	t.Run("exactly 160 characters is allowed", func(t *testing.T) {
		repo := new(MockMessageRepository)
		gw := new(MockGateway)
		svc := NewSMSService(repo, gw)

		gw.On("SendBatch", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return([]*model.Message{}, nil)

		_, err := svc.Send(ctx, []string{"27830000001"}, strings.Repeat("a", 160))
		assert.NoError(t, err)
	})

	t.Run("no recipients rejected", func(t *testing.T) {
		svc := NewSMSService(new(MockMessageRepository), new(MockGateway))
		_, err := svc.Send(ctx, []string{"", "  "}, "hello")
		assert.ErrorIs(t, err, ErrNoRecipients)
	})

	t.Run("gateway failure propagates", func(t *testing.T) {
		repo := new(MockMessageRepository)
		gw := new(MockGateway)
		svc := NewSMSService(repo, gw)

		gw.On("SendBatch", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, assert.AnError)

		_, err := svc.Send(ctx, []string{"27830000001"}, "hello")
		assert.Error(t, err)
	})

	t.Run("persist failure drops that record only", func(t *testing.T) {
		repo := new(MockMessageRepository)
		gw := new(MockGateway)
		svc := NewSMSService(repo, gw)

		acked := []*model.Message{
			{MSISDN: "27830000001", Identifier: "aaaa0001"},
			{MSISDN: "27830000002", Identifier: "aaaa0002"},
		}
		gw.On("SendBatch", ctx, mock.Anything, mock.Anything, mock.Anything).Return(acked, nil)
		repo.On("Create", ctx, acked[0]).Return(nil, assert.AnError)
		repo.On("Create", ctx, acked[1]).Return(&model.Message{ID: 2}, nil)

		created, err := svc.Send(ctx, []string{"27830000001", "27830000002"}, "hello")
		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, int64(2), created[0].ID)
	})
}

func TestSMSService_Statistics(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	repo := new(MockMessageRepository)
	svc := NewSMSService(repo, new(MockGateway))

	repo.On("CountSince", ctx, since).Return(int64(10), nil)
	repo.On("CountSinceByStatus", ctx, since, model.MessageStatusDelivered).Return(int64(6), nil)
	repo.On("CountSinceByStatus", ctx, since, model.MessageStatusFailed).Return(int64(1), nil)
	repo.On("CountSinceByStatus", ctx, since, model.MessageStatusPending).Return(int64(3), nil)

	stats, err := svc.Statistics(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(6), stats.Delivered)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(3), stats.Pending)
}
