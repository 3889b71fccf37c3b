package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/txtalert/reminder-gateway/internal/config"
	"github.com/txtalert/reminder-gateway/internal/events"
	"github.com/txtalert/reminder-gateway/internal/pcm"
	"github.com/txtalert/reminder-gateway/internal/receipts"
	"github.com/txtalert/reminder-gateway/internal/repository"
	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"github.com/txtalert/reminder-gateway/pkg/prom"
	"github.com/txtalert/reminder-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const consumerInstances = 2

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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	patientRepo := repository.NewPatientRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	pcmRepo := repository.NewPleaseCallMeRepository(db)

	dispatcher := events.NewDispatcher(redisAdap, events.BusConfig{
		Stream:            config.Get().EventsStreamName,
		ConsumerGroup:     config.Get().EventsConsumerGroup,
		ConsumerName:      config.Get().EventsConsumerName,
		MaxRetries:        config.Get().EventsMaxRetries,
		VisibilityTimeout: config.Get().EventsVisibilityTimeout,
		PollInterval:      config.Get().EventsPollInterval,
		BatchSize:         config.Get().EventsBatchSize,
		MaxLen:            config.Get().EventsMaxLen,
		EnableDLQ:         config.Get().EventsEnableDLQ,
	}, consumerInstances)

	resolver := pcm.NewResolver(patientRepo, visitRepo, pcmRepo)
	dispatcher.Register(resolver.Handler())
	dispatcher.Register(receipts.MetricsHandler())

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	if err := dispatcher.Start(); err != nil {
		logger.Error("failed to start event dispatcher", "error", err)
		return
	}

	select {
	case <-c:
		dispatcher.Stop()
	}
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
