package helpers

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/txtalert/reminder-gateway/internal/repository"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"github.com/txtalert/reminder-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.MessageEntity{},
		&repository.PleaseCallMeEntity{},
		&repository.PatientEntity{},
		&repository.VisitEntity{},
		&repository.ClinicEntity{},
		&repository.LanguageEntity{},
		&repository.SettingEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// unique name per test, the adapter registry is process global
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestLanguage(t *testing.T, db *pg.DB, name string) *repository.LanguageEntity {
	ctx := context.Background()
	lang := &repository.LanguageEntity{
		Name:            name,
		AttendedMessage: "Thank you for attending your clinic visit yesterday.",
		MissedMessage:   "You missed your clinic visit yesterday. Please call the clinic.",
		TomorrowMessage: "Remember your clinic visit tomorrow.",
		TwoWeeksMessage: "You have a clinic visit on %s.",
	}
	err := db.Write(ctx).Create(lang).Error
	require.NoError(t, err)
	return lang
}

func CreateTestPatient(t *testing.T, db *pg.DB, teID, msisdn string, languageID int64) *repository.PatientEntity {
	ctx := context.Background()
	patient := &repository.PatientEntity{
		TeID:         teID,
		ActiveMSISDN: msisdn,
		LanguageID:   languageID,
		OptedIn:      true,
	}
	err := db.Write(ctx).Create(patient).Error
	require.NoError(t, err)
	return patient
}

func CreateTestVisit(t *testing.T, db *pg.DB, patientID, clinicID int64, date time.Time, status string) *repository.VisitEntity {
	ctx := context.Background()
	visit := &repository.VisitEntity{
		PatientID: patientID,
		ClinicID:  clinicID,
		Date:      date,
		Status:    status,
	}
	err := db.Write(ctx).Create(visit).Error
	require.NoError(t, err)
	return visit
}

func CreateTestClinic(t *testing.T, db *pg.DB, name string) *repository.ClinicEntity {
	ctx := context.Background()
	clinic := &repository.ClinicEntity{
		TeID: "te-" + name,
		Name: name,
	}
	err := db.Write(ctx).Create(clinic).Error
	require.NoError(t, err)
	return clinic
}

func CreateTestMessage(t *testing.T, db *pg.DB, msisdn, identifier string, delivery time.Time) *repository.MessageEntity {
	ctx := context.Background()
	msg := &repository.MessageEntity{
		MSISDN:           msisdn,
		Content:          "test reminder",
		Delivery:         delivery,
		Expiry:           delivery.Add(24 * time.Hour),
		Priority:         "standard",
		ReceiptRequested: true,
		Identifier:       identifier,
		Status:           "pending",
		CreatedAt:        time.Now(),
	}
	err := db.Write(ctx).Create(msg).Error
	require.NoError(t, err)
	return msg
}

func CreateTestSetting(t *testing.T, db *pg.DB, name, value string) *repository.SettingEntity {
	ctx := context.Background()
	setting := &repository.SettingEntity{
		Name:  name,
		Value: value,
	}
	err := db.Write(ctx).Create(setting).Error
	require.NoError(t, err)
	return setting
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
