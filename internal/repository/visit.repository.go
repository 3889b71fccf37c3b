package repository

import (
	"context"
	"errors"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrVisitNotFound = errors.New("visit not found")

type VisitRepository struct {
	*pg.DB
}

func NewVisitRepository(db *pg.DB) *VisitRepository {
	return &VisitRepository{
		db,
	}
}

// VisitCohortFilter selects the visits of one reminder cohort: an exact
// date, optionally narrowed to one outcome status. Only visits of
// opted-in, non-deleted patients ever match.
type VisitCohortFilter struct {
	Date   time.Time
	Status *model.VisitStatus
}

func (r *VisitRepository) cohortQuery(ctx context.Context, f VisitCohortFilter) *gorm.DB {
	q := r.Read(ctx).WithContext(ctx).
		Table("visits AS v").
		Joins("JOIN patients AS p ON p.id = v.patient_id").
		Where("v.deleted = ?", false).
		Where("p.deleted = ?", false).
		Where("p.opted_in = ?", true).
		Where("v.date = ?", f.Date)
	if f.Status != nil {
		q = q.Where("v.status = ?", string(*f.Status))
	}
	return q
}

// Recipients returns the dispatch projection for one cohort: the visit
// joined to its patient's msisdn and language.
func (r *VisitRepository) Recipients(ctx context.Context, f VisitCohortFilter) ([]*model.ReminderRecipient, error) {
	var recipients []*model.ReminderRecipient
	err := r.cohortQuery(ctx, f).
		Select(`
            v.id            AS visit_id,
            p.id            AS patient_id,
            p.active_msisdn AS msisdn,
            p.language_id   AS language_id
        `).
		Order("p.language_id ASC, p.id ASC").
		Scan(&recipients).Error
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

// Count returns the cohort size, used by the statistics reporter.
func (r *VisitRepository) Count(ctx context.Context, f VisitCohortFilter) (int64, error) {
	var total int64
	err := r.cohortQuery(ctx, f).Count(&total).Error
	return total, err
}

// LatestClinicID returns the clinic of the patient's most recent visit.
func (r *VisitRepository) LatestClinicID(ctx context.Context, patientID int64) (int64, error) {
	var entity VisitEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("patient_id = ? AND deleted = ?", patientID, false).
		Order("date DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrVisitNotFound
		}
		return 0, err
	}
	return entity.ClinicID, nil
}
