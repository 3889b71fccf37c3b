package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/txtalert/reminder-gateway/internal/gateway"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/repository"
	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/txtalert/reminder-gateway/pkg/prom"
)

// Cohort names one of the four daily reminder groups. They are disjoint:
// tomorrow and two-weeks select by future date, attended and missed select
// by yesterday's outcome.
type Cohort string

const (
	CohortTomorrow Cohort = "tomorrow"
	CohortTwoWeeks Cohort = "twoweeks"
	CohortAttended Cohort = "attended"
	CohortMissed   Cohort = "missed"
)

// twoWeeksDateFormat renders the visit date inside the two-weeks template.
const twoWeeksDateFormat = "Monday 02 Jan"

type VisitStore interface {
	Recipients(ctx context.Context, f repository.VisitCohortFilter) ([]*model.ReminderRecipient, error)
	Count(ctx context.Context, f repository.VisitCohortFilter) (int64, error)
}

type LanguageStore interface {
	List(ctx context.Context) (map[int64]*model.Language, error)
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
}

// RunReport summarizes one dispatch run.
type RunReport struct {
	Date     time.Time      `json:"date"`
	Sent     map[Cohort]int `json:"sent"`
	Failures int            `json:"failures"`
}

type Dispatcher struct {
	visits    VisitStore
	languages LanguageStore
	messages  MessageStore
	gateway   gateway.Gateway
	lock      *RunLock

	// SendWindow is how long the aggregator may hold a reminder before
	// it expires.
	SendWindow time.Duration
}

// NewDispatcher builds a dispatcher. lock may be nil, in which case runs
// are not guarded against overlap.
func NewDispatcher(visits VisitStore, languages LanguageStore, messages MessageStore, gw gateway.Gateway, lock *RunLock) *Dispatcher {
	return &Dispatcher{
		visits:     visits,
		languages:  languages,
		messages:   messages,
		gateway:    gw,
		lock:       lock,
		SendWindow: 24 * time.Hour,
	}
}

// Run dispatches all four cohorts for the given day. The run lock stays
// held on success so a second invocation inside the TTL refuses; a failed
// run releases it for retry.
func (d *Dispatcher) Run(ctx context.Context, today time.Time) (*RunReport, error) {
	today = dateOnly(today)

	if d.lock != nil {
		if err := d.lock.Acquire(today); err != nil {
			return nil, err
		}
	}

	report, err := d.run(ctx, today)
	if err != nil {
		if d.lock != nil {
			d.lock.Release(today)
		}
		return nil, err
	}
	return report, nil
}

func (d *Dispatcher) run(ctx context.Context, today time.Time) (*RunReport, error) {
	languages, err := d.languages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load languages: %w", err)
	}

	report := &RunReport{
		Date: today,
		Sent: make(map[Cohort]int, 4),
	}

	attended := model.VisitStatusAttended
	missed := model.VisitStatusMissed

	cohorts := []struct {
		name   Cohort
		filter repository.VisitCohortFilter
	}{
		{CohortTomorrow, repository.VisitCohortFilter{Date: today.AddDate(0, 0, 1)}},
		{CohortTwoWeeks, repository.VisitCohortFilter{Date: today.AddDate(0, 0, 14)}},
		{CohortAttended, repository.VisitCohortFilter{Date: today.AddDate(0, 0, -1), Status: &attended}},
		{CohortMissed, repository.VisitCohortFilter{Date: today.AddDate(0, 0, -1), Status: &missed}},
	}

	for _, cohort := range cohorts {
		logger.Debug("Dispatching reminder cohort", "cohort", string(cohort.name), "date", cohort.filter.Date.Format("2006-01-02"))
		sent, failures := d.dispatchCohort(ctx, cohort.name, cohort.filter, languages, today)
		report.Sent[cohort.name] = sent
		report.Failures += failures
	}

	logger.Info("Reminder run complete",
		"date", today.Format("2006-01-02"),
		"tomorrow", report.Sent[CohortTomorrow],
		"twoweeks", report.Sent[CohortTwoWeeks],
		"attended", report.Sent[CohortAttended],
		"missed", report.Sent[CohortMissed],
		"failures", report.Failures)

	return report, nil
}

// dispatchCohort sends one batch per language group. A failing group never
// aborts the rest of the run.
func (d *Dispatcher) dispatchCohort(ctx context.Context, cohort Cohort, filter repository.VisitCohortFilter, languages map[int64]*model.Language, today time.Time) (sent, failures int) {
	recipients, err := d.visits.Recipients(ctx, filter)
	if err != nil {
		logger.Error("Failed to load cohort recipients", "cohort", string(cohort), "error", err)
		return 0, 1
	}

	opts := gateway.SendOptions{
		Delivery:         time.Now(),
		Expiry:           time.Now().Add(d.SendWindow),
		Priority:         model.PriorityStandard,
		ReceiptRequested: true,
	}

	for languageID, group := range groupByLanguage(recipients) {
		language, ok := languages[languageID]
		if !ok {
			logger.Warn("Unknown language for cohort group", "cohort", string(cohort), "language_id", languageID, "recipients", len(group))
			failures++
			continue
		}

		text := renderTemplate(cohort, language, filter.Date)

		msisdns := make([]string, 0, len(group))
		for _, r := range group {
			if r.MSISDN == "" {
				continue
			}
			msisdns = append(msisdns, r.MSISDN)
		}
		if len(msisdns) == 0 {
			continue
		}

		texts := make([]string, len(msisdns))
		for i := range texts {
			texts[i] = text
		}

		messages, err := d.gateway.SendBatch(ctx, msisdns, texts, opts)
		if err != nil {
			logger.Error("Cohort batch send failed", "cohort", string(cohort), "language", language.Name, "recipients", len(msisdns), "error", err)
			failures++
			continue
		}

		for _, msg := range messages {
			if _, err := d.messages.Create(ctx, msg); err != nil {
				logger.Error("Failed to persist sent message", "identifier", msg.Identifier, "msisdn", msg.MSISDN, "error", err)
				failures++
			}
		}

		prom.AddRemindersSent(string(cohort), language.Name, float64(len(messages)))
		sent += len(messages)
	}

	return sent, failures
}

// groupByLanguage preserves the recipient ordering inside each group.
func groupByLanguage(recipients []*model.ReminderRecipient) map[int64][]*model.ReminderRecipient {
	groups := make(map[int64][]*model.ReminderRecipient)
	for _, r := range recipients {
		groups[r.LanguageID] = append(groups[r.LanguageID], r)
	}
	return groups
}

func renderTemplate(cohort Cohort, language *model.Language, visitDate time.Time) string {
	switch cohort {
	case CohortTomorrow:
		return language.TomorrowMessage
	case CohortTwoWeeks:
		return fmt.Sprintf(language.TwoWeeksMessage, visitDate.Format(twoWeeksDateFormat))
	case CohortAttended:
		return language.AttendedMessage
	case CohortMissed:
		return language.MissedMessage
	}
	return ""
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
