package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/repository"
)

// Stats is the daily attendance and dispatch summary.
type Stats struct {
	Date             time.Time `json:"date"`
	Total            int64     `json:"total"`
	Attended         int64     `json:"attended"`
	Missed           int64     `json:"missed"`
	MissedPercentage float64   `json:"missed_percentage"`
	Tomorrow         int64     `json:"tomorrow"`
	TwoWeeks         int64     `json:"two_weeks"`
}

type MessageCounter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type Reporter struct {
	visits   VisitStore
	messages MessageCounter
}

func NewReporter(visits VisitStore, messages MessageCounter) *Reporter {
	return &Reporter{
		visits:   visits,
		messages: messages,
	}
}

// Report compiles the summary for today's reminder bulk: yesterday's
// attendance outcome, the pending cohorts, and every message dispatched
// since midnight.
func (r *Reporter) Report(ctx context.Context, today time.Time) (*Stats, error) {
	today = dateOnly(today)

	attended := model.VisitStatusAttended
	missed := model.VisitStatusMissed

	attendedCount, err := r.visits.Count(ctx, repository.VisitCohortFilter{Date: today.AddDate(0, 0, -1), Status: &attended})
	if err != nil {
		return nil, fmt.Errorf("count attended: %w", err)
	}
	missedCount, err := r.visits.Count(ctx, repository.VisitCohortFilter{Date: today.AddDate(0, 0, -1), Status: &missed})
	if err != nil {
		return nil, fmt.Errorf("count missed: %w", err)
	}
	tomorrowCount, err := r.visits.Count(ctx, repository.VisitCohortFilter{Date: today.AddDate(0, 0, 1)})
	if err != nil {
		return nil, fmt.Errorf("count tomorrow: %w", err)
	}
	twoWeeksCount, err := r.visits.Count(ctx, repository.VisitCohortFilter{Date: today.AddDate(0, 0, 14)})
	if err != nil {
		return nil, fmt.Errorf("count two weeks: %w", err)
	}

	totalCount, err := r.messages.CountSince(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	return &Stats{
		Date:             today,
		Total:            totalCount,
		Attended:         attendedCount,
		Missed:           missedCount,
		MissedPercentage: missedPercentage(attendedCount, missedCount),
		Tomorrow:         tomorrowCount,
		TwoWeeks:         twoWeeksCount,
	}, nil
}

// missedPercentage is 0 when nothing happened yesterday, not NaN.
func missedPercentage(attended, missed int64) float64 {
	yesterday := attended + missed
	if yesterday == 0 {
		return 0
	}
	return float64(missed) * (100.0 / float64(yesterday))
}
