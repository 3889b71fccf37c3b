package reminders

import (
	"errors"
	"fmt"
	"time"

	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/txtalert/reminder-gateway/pkg/redis"
)

var ErrRunInProgress = errors.New("reminder run already in progress")

const runLockKeyPrefix = "reminders:runlock:"

// RunLock guards a day's dispatch run. The lock key carries the run date,
// so a crashed run blocks re-dispatch only until the TTL expires and never
// bleeds into the next day.
type RunLock struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func NewRunLock(redisAdapter redis.RedisAdapter, ttl time.Duration) *RunLock {
	return &RunLock{
		redis: redisAdapter,
		ttl:   ttl,
	}
}

func (l *RunLock) key(day time.Time) string {
	return runLockKeyPrefix + day.Format("2006-01-02")
}

func (l *RunLock) Acquire(day time.Time) error {
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := l.redis.SetNX(l.key(day), lockValue, l.ttl)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		logger.Info("Run lock already held", "date", day.Format("2006-01-02"))
		return ErrRunInProgress
	}

	logger.Info("Run lock acquired", "date", day.Format("2006-01-02"), "ttl", l.ttl)
	return nil
}

func (l *RunLock) Release(day time.Time) {
	if err := l.redis.Del(l.key(day)); err != nil {
		logger.Warn("Failed to release run lock", "date", day.Format("2006-01-02"), "error", err)
	}
}
