package repository

import (
	"context"
	"testing"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPatient(t *testing.T, db *testDB, teID, msisdn string, languageID int64, optedIn, deleted bool) int64 {
	t.Helper()
	p := &PatientEntity{
		TeID:         teID,
		ActiveMSISDN: msisdn,
		LanguageID:   languageID,
		OptedIn:      optedIn,
		Deleted:      deleted,
	}
	require.NoError(t, db.rawDB.Create(p).Error)
	return p.ID
}

func seedVisit(t *testing.T, db *testDB, patientID int64, date time.Time, status model.VisitStatus, deleted bool) int64 {
	t.Helper()
	v := &VisitEntity{
		PatientID: patientID,
		TeVisitID: "te-visit",
		Date:      date,
		Status:    string(status),
		ClinicID:  1,
		Deleted:   deleted,
	}
	require.NoError(t, db.rawDB.Create(v).Error)
	return v.ID
}

func TestVisitRepository_Recipients(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVisitRepository(db.DB)
	ctx := context.Background()

	tomorrow := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	active := seedPatient(t, db, "te-1", "27831112222", 1, true, false)
	optedOut := seedPatient(t, db, "te-2", "27833334444", 1, false, false)
	deleted := seedPatient(t, db, "te-3", "27835556666", 2, true, true)

	seedVisit(t, db, active, tomorrow, model.VisitStatusScheduled, false)
	seedVisit(t, db, optedOut, tomorrow, model.VisitStatusScheduled, false)
	seedVisit(t, db, deleted, tomorrow, model.VisitStatusScheduled, false)
	seedVisit(t, db, active, tomorrow.AddDate(0, 0, 1), model.VisitStatusScheduled, false)
	seedVisit(t, db, active, tomorrow, model.VisitStatusScheduled, true)

	t.Run("only opted-in live patients on the exact date", func(t *testing.T) {
		recipients, err := repo.Recipients(ctx, VisitCohortFilter{Date: tomorrow})
		require.NoError(t, err)
		require.Len(t, recipients, 1)
		assert.Equal(t, active, recipients[0].PatientID)
		assert.Equal(t, "27831112222", recipients[0].MSISDN)
		assert.Equal(t, int64(1), recipients[0].LanguageID)
	})

	t.Run("status filter", func(t *testing.T) {
		attended := model.VisitStatusAttended
		recipients, err := repo.Recipients(ctx, VisitCohortFilter{Date: tomorrow, Status: &attended})
		require.NoError(t, err)
		assert.Len(t, recipients, 0)
	})
}

func TestVisitRepository_Count(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVisitRepository(db.DB)
	ctx := context.Background()

	yesterday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	p1 := seedPatient(t, db, "te-1", "27830000001", 1, true, false)
	p2 := seedPatient(t, db, "te-2", "27830000002", 1, true, false)
	p3 := seedPatient(t, db, "te-3", "27830000003", 1, true, false)

	seedVisit(t, db, p1, yesterday, model.VisitStatusAttended, false)
	seedVisit(t, db, p2, yesterday, model.VisitStatusAttended, false)
	seedVisit(t, db, p3, yesterday, model.VisitStatusMissed, false)

	attended := model.VisitStatusAttended
	missed := model.VisitStatusMissed

	gotAttended, err := repo.Count(ctx, VisitCohortFilter{Date: yesterday, Status: &attended})
	require.NoError(t, err)
	assert.Equal(t, int64(2), gotAttended)

	gotMissed, err := repo.Count(ctx, VisitCohortFilter{Date: yesterday, Status: &missed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotMissed)
}

func TestVisitRepository_LatestClinicID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVisitRepository(db.DB)
	ctx := context.Background()

	patient := seedPatient(t, db, "te-1", "27831112222", 1, true, false)

	older := &VisitEntity{PatientID: patient, Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Status: "a", ClinicID: 5}
	newer := &VisitEntity{PatientID: patient, Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Status: "s", ClinicID: 9}
	require.NoError(t, db.rawDB.Create(older).Error)
	require.NoError(t, db.rawDB.Create(newer).Error)

	clinicID, err := repo.LatestClinicID(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, int64(9), clinicID)

	_, err = repo.LatestClinicID(ctx, 12345)
	assert.ErrorIs(t, err, ErrVisitNotFound)
}
