package repository

import (
	"context"
	"testing"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPleaseCallMeRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPleaseCallMeRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.PleaseCallMe{
		MSISDN:  "27831112222",
		SMSID:   "sms-42",
		Message: "Please Call Me",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Nil(t, created.ClinicID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "27831112222", got.MSISDN)
	assert.Equal(t, "sms-42", got.SMSID)

	_, err = repo.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrPleaseCallMeNotFound)
}

func TestPleaseCallMeRepository_SetClinic(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPleaseCallMeRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.PleaseCallMe{MSISDN: "27831112222", SMSID: "sms-1"})
	require.NoError(t, err)

	require.NoError(t, repo.SetClinic(ctx, created.ID, 7))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ClinicID)
	assert.Equal(t, int64(7), *got.ClinicID)

	err = repo.SetClinic(ctx, 9999, 7)
	assert.ErrorIs(t, err, ErrPleaseCallMeNotFound)
}

func TestPleaseCallMeRepository_CountSince(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPleaseCallMeRepository(db)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &model.PleaseCallMe{MSISDN: "27831112222", SMSID: "sms"})
		require.NoError(t, err)
	}

	total, err := repo.CountSince(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	total, err = repo.CountSince(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
