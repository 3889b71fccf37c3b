package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/txtalert/reminder-gateway/internal/config"
	"github.com/txtalert/reminder-gateway/internal/gateway"
	"github.com/txtalert/reminder-gateway/internal/reminders"
	"github.com/txtalert/reminder-gateway/internal/repository"
	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"github.com/txtalert/reminder-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// The reminders binary runs the daily batch: dispatch the appointment
// reminder cohorts, then email and SMS the stats digest. With --loop it
// keeps running and fires every REMINDERS_INTERVAL; the run lock makes
// overlapping deploys harmless.
func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	gw, err := createGateway()
	if err != nil {
		logger.Error("failed to create sms gateway", "error", err)
		return
	}

	visitRepo := repository.NewVisitRepository(db)
	languageRepo := repository.NewLanguageRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	lock := reminders.NewRunLock(redisAdap, config.Get().RemindersRunLockTTL)
	dispatcher := reminders.NewDispatcher(visitRepo, languageRepo, messageRepo, gw, lock)
	reporter := reminders.NewReporter(visitRepo, messageRepo)
	digest := reminders.NewDigest(settingRepo, smtpSender(), gw)

	runOnce := func() {
		ctx := context.Background()
		today := time.Now()

		report, err := dispatcher.Run(ctx, today)
		if err != nil {
			logger.Error("reminder run failed", "error", err)
			return
		}
		logger.Info("reminder run finished",
			"date", report.Date.Format("2006-01-02"),
			"sent", report.Sent,
			"failures", report.Failures)

		if !config.Get().DigestEnabled {
			return
		}
		stats, err := reporter.Report(ctx, today)
		if err != nil {
			logger.Error("stats report failed", "error", err)
			return
		}
		if err := digest.Send(ctx, stats); err != nil {
			logger.Error("stats digest failed", "error", err)
		}
	}

	if !slices.Contains(os.Args, "--loop") {
		runOnce()
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(config.Get().RemindersInterval)
	defer ticker.Stop()

	runOnce()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-c:
			logger.Info("reminders loop exiting")
			return
		}
	}
}

func createGateway() (gateway.Gateway, error) {
	if config.Get().GatewayBackend == "dummy" {
		logger.Warn("using the dummy sms gateway, nothing will be delivered")
		return gateway.NewDummyGateway(), nil
	}
	return gateway.NewClient(&gateway.Config{
		URL:                     config.Get().AggregatorURL,
		ServiceID:               config.Get().AggregatorServiceID,
		Password:                config.Get().AggregatorPassword,
		Channel:                 config.Get().AggregatorChannel,
		Timeout:                 config.Get().AggregatorTimeout,
		MaxRetries:              3,
		RetryDelay:              time.Millisecond * 100,
		MaxConns:                100,
		ReadBufferSize:          1024 * 4,
		WriteBufferSize:         1024 * 4,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	})
}

func smtpSender() *reminders.SMTPSender {
	host := config.Get().SMTPAddr
	port := 25
	if h, p, err := net.SplitHostPort(config.Get().SMTPAddr); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	return reminders.NewSMTPSender(reminders.SMTPConfig{
		Host:     host,
		Port:     port,
		Username: config.Get().SMTPUsername,
		Password: config.Get().SMTPPassword,
		From:     config.Get().SMTPFrom,
	})
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
