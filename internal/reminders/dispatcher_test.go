package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/txtalert/reminder-gateway/internal/gateway"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockVisitStore struct {
	mock.Mock
}

func (m *MockVisitStore) Recipients(ctx context.Context, f repository.VisitCohortFilter) ([]*model.ReminderRecipient, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ReminderRecipient), args.Error(1)
}

func (m *MockVisitStore) Count(ctx context.Context, f repository.VisitCohortFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

type MockLanguageStore struct {
	mock.Mock
}

func (m *MockLanguageStore) List(ctx context.Context) (map[int64]*model.Language, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*model.Language), args.Error(1)
}

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
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

func testLanguages() map[int64]*model.Language {
	return map[int64]*model.Language{
		1: {
			ID:              1,
			Name:            "English",
			AttendedMessage: "Thank you for attending your appointment.",
			MissedMessage:   "You missed your appointment, please call the clinic.",
			TomorrowMessage: "You have an appointment tomorrow.",
			TwoWeeksMessage: "You have an appointment on %s.",
		},
		2: {
			ID:              2,
			Name:            "Sotho",
			AttendedMessage: "attended-so",
			MissedMessage:   "missed-so",
			TomorrowMessage: "tomorrow-so",
			TwoWeeksMessage: "twoweeks-so %s",
		},
	}
}

func pendingBatch(msisdns ...string) []*model.Message {
	out := make([]*model.Message, len(msisdns))
	for i, msisdn := range msisdns {
		out[i] = &model.Message{MSISDN: msisdn, Identifier: "id-" + msisdn, Status: model.MessageStatusPending}
	}
	return out
}

func TestRenderTemplate(t *testing.T) {
	lang := testLanguages()[1]
	visitDate := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "You have an appointment tomorrow.", renderTemplate(CohortTomorrow, lang, visitDate))
	assert.Equal(t, "You have an appointment on Monday 05 Jan.", renderTemplate(CohortTwoWeeks, lang, visitDate))
	assert.Equal(t, "Thank you for attending your appointment.", renderTemplate(CohortAttended, lang, visitDate))
	assert.Equal(t, "You missed your appointment, please call the clinic.", renderTemplate(CohortMissed, lang, visitDate))
}

func TestDispatcher_Run(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	midnight := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	attended := model.VisitStatusAttended
	missed := model.VisitStatusMissed

	t.Run("dispatches four disjoint cohorts grouped by language", func(t *testing.T) {
		visits := new(MockVisitStore)
		languages := new(MockLanguageStore)
		messages := new(MockMessageStore)
		gw := new(MockGateway)

		languages.On("List", ctx).Return(testLanguages(), nil)

		visits.On("Recipients", ctx, repository.VisitCohortFilter{Date: midnight.AddDate(0, 0, 1)}).
			Return([]*model.ReminderRecipient{
				{VisitID: 1, PatientID: 1, MSISDN: "27830000001", LanguageID: 1},
				{VisitID: 2, PatientID: 2, MSISDN: "27830000002", LanguageID: 1},
				{VisitID: 3, PatientID: 3, MSISDN: "27830000003", LanguageID: 2},
			}, nil)
		visits.On("Recipients", ctx, repository.VisitCohortFilter{Date: midnight.AddDate(0, 0, 14)}).
			Return([]*model.ReminderRecipient{}, nil)
		visits.On("Recipients", ctx, mock.MatchedBy(func(f repository.VisitCohortFilter) bool {
			return f.Status != nil && *f.Status == attended
		})).Return([]*model.ReminderRecipient{}, nil)
		visits.On("Recipients", ctx, mock.MatchedBy(func(f repository.VisitCohortFilter) bool {
			return f.Status != nil && *f.Status == missed
		})).Return([]*model.ReminderRecipient{}, nil)

		gw.On("SendBatch", ctx, []string{"27830000001", "27830000002"},
			[]string{"You have an appointment tomorrow.", "You have an appointment tomorrow."}, mock.Anything).
			Return(pendingBatch("27830000001", "27830000002"), nil)
		gw.On("SendBatch", ctx, []string{"27830000003"}, []string{"tomorrow-so"}, mock.Anything).
			Return(pendingBatch("27830000003"), nil)

		messages.On("Create", ctx, mock.Anything).Return(&model.Message{ID: 1}, nil)

		dispatcher := NewDispatcher(visits, languages, messages, gw, nil)
		report, err := dispatcher.Run(ctx, today)
		require.NoError(t, err)

		assert.Equal(t, 3, report.Sent[CohortTomorrow])
		assert.Equal(t, 0, report.Sent[CohortTwoWeeks])
		assert.Equal(t, 0, report.Sent[CohortAttended])
		assert.Equal(t, 0, report.Sent[CohortMissed])
		assert.Equal(t, 0, report.Failures)
		gw.AssertExpectations(t)
		messages.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("recipients without an msisdn are skipped", func(t *testing.T) {
		visits := new(MockVisitStore)
		languages := new(MockLanguageStore)
		messages := new(MockMessageStore)
		gw := new(MockGateway)

		languages.On("List", ctx).Return(testLanguages(), nil)

		visits.On("Recipients", ctx, repository.VisitCohortFilter{Date: midnight.AddDate(0, 0, 1)}).
			Return([]*model.ReminderRecipient{
				{VisitID: 1, PatientID: 1, MSISDN: "", LanguageID: 1},
				{VisitID: 2, PatientID: 2, MSISDN: "27830000002", LanguageID: 1},
			}, nil)
		visits.On("Recipients", ctx, mock.Anything).Return([]*model.ReminderRecipient{}, nil)

		gw.On("SendBatch", ctx, []string{"27830000002"}, mock.Anything, mock.Anything).
			Return(pendingBatch("27830000002"), nil)
		messages.On("Create", ctx, mock.Anything).Return(&model.Message{ID: 1}, nil)

		dispatcher := NewDispatcher(visits, languages, messages, gw, nil)
		report, err := dispatcher.Run(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent[CohortTomorrow])
	})

	t.Run("language group with only empty msisdns sends nothing", func(t *testing.T) {
		visits := new(MockVisitStore)
		languages := new(MockLanguageStore)
		messages := new(MockMessageStore)
		gw := new(MockGateway)

		languages.On("List", ctx).Return(testLanguages(), nil)
		visits.On("Recipients", ctx, repository.VisitCohortFilter{Date: midnight.AddDate(0, 0, 1)}).
			Return([]*model.ReminderRecipient{{VisitID: 1, PatientID: 1, MSISDN: "", LanguageID: 1}}, nil)
		visits.On("Recipients", ctx, mock.Anything).Return([]*model.ReminderRecipient{}, nil)

		dispatcher := NewDispatcher(visits, languages, messages, gw, nil)
		report, err := dispatcher.Run(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Sent[CohortTomorrow])
		gw.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failing batch does not abort the run", func(t *testing.T) {
		visits := new(MockVisitStore)
		languages := new(MockLanguageStore)
		messages := new(MockMessageStore)
		gw := new(MockGateway)

		languages.On("List", ctx).Return(testLanguages(), nil)
		visits.On("Recipients", ctx, repository.VisitCohortFilter{Date: midnight.AddDate(0, 0, 1)}).
			Return([]*model.ReminderRecipient{{VisitID: 1, PatientID: 1, MSISDN: "27830000001", LanguageID: 1}}, nil)
		visits.On("Recipients", ctx, mock.MatchedBy(func(f repository.VisitCohortFilter) bool {
			return f.Status != nil && *f.Status == missed
		})).Return([]*model.ReminderRecipient{{VisitID: 9, PatientID: 9, MSISDN: "27830000009", LanguageID: 2}}, nil)
		visits.On("Recipients", ctx, mock.Anything).Return([]*model.ReminderRecipient{}, nil)

		gw.On("SendBatch", ctx, []string{"27830000001"}, mock.Anything, mock.Anything).
			Return(nil, assert.AnError)
		gw.On("SendBatch", ctx, []string{"27830000009"}, []string{"missed-so"}, mock.Anything).
			Return(pendingBatch("27830000009"), nil)
		messages.On("Create", ctx, mock.Anything).Return(&model.Message{ID: 1}, nil)

		dispatcher := NewDispatcher(visits, languages, messages, gw, nil)
		report, err := dispatcher.Run(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Sent[CohortTomorrow])
		assert.Equal(t, 1, report.Sent[CohortMissed])
		assert.Equal(t, 1, report.Failures)
	})

	t.Run("unknown language is counted as failure", func(t *testing.T) {
		visits := new(MockVisitStore)
		languages := new(MockLanguageStore)
		messages := new(MockMessageStore)
		gw := new(MockGateway)

		languages.On("List", ctx).Return(testLanguages(), nil)
		visits.On("Recipients", ctx, repository.VisitCohortFilter{Date: midnight.AddDate(0, 0, 1)}).
			Return([]*model.ReminderRecipient{{VisitID: 1, PatientID: 1, MSISDN: "27830000001", LanguageID: 42}}, nil)
		visits.On("Recipients", ctx, mock.Anything).Return([]*model.ReminderRecipient{}, nil)

		dispatcher := NewDispatcher(visits, languages, messages, gw, nil)
		report, err := dispatcher.Run(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failures)
		gw.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
