package repository

import (
	"context"
	"errors"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrPatientNotFound = errors.New("patient not found")

type PatientRepository struct {
	*pg.DB
}

func NewPatientRepository(db *pg.DB) *PatientRepository {
	return &PatientRepository{
		db,
	}
}

// GetByMSISDN resolves the patient whose active msisdn matches the given
// number. Soft-deleted patients are invisible here, as everywhere.
func (r *PatientRepository) GetByMSISDN(ctx context.Context, msisdn string) (*model.Patient, error) {
	var entity PatientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("active_msisdn = ? AND deleted = ?", msisdn, false).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return toPatientModel(&entity), nil
}
