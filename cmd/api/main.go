package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/txtalert/reminder-gateway/internal/config"
	"github.com/txtalert/reminder-gateway/internal/events"
	"github.com/txtalert/reminder-gateway/internal/gateway"
	"github.com/txtalert/reminder-gateway/internal/handlers"
	"github.com/txtalert/reminder-gateway/internal/receipts"
	"github.com/txtalert/reminder-gateway/internal/repository"
	"github.com/txtalert/reminder-gateway/internal/services"
	xhttp "github.com/txtalert/reminder-gateway/pkg/http"
	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/txtalert/reminder-gateway/pkg/pg"
	"github.com/txtalert/reminder-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	// the api only publishes to the gateway stream, consumption lives in
	// the worker binary
	bus, err := events.NewBus(redisAdap, events.BusConfig{
		Stream:        config.Get().EventsStreamName,
		ConsumerGroup: config.Get().EventsConsumerGroup,
		MaxLen:        config.Get().EventsMaxLen,
	})
	if err != nil {
		logger.Error("failed creating event bus", "error", err)
		return
	}

	gw, err := createGateway()
	if err != nil {
		logger.Error("failed to create sms gateway", "error", err)
		return
	}

	messageRepo := repository.NewMessageRepository(db)
	pcmRepo := repository.NewPleaseCallMeRepository(db)

	// services
	smsService := services.NewSMSService(messageRepo, gw)
	pcmService := services.NewPCMService(pcmRepo, bus)
	healthService := services.NewHealthService(db, redisAdap)
	receiptProcessor := receipts.NewProcessor(messageRepo, bus)

	auth, err := handlers.NewAuthenticator(config.Get().AppName, config.Get().AuthUsers)
	if err != nil {
		logger.Error("failed to parse auth users", "error", err)
		return
	}

	// v1 handlers
	smsHandler := handlers.NewSMSHandler(smsService, auth)
	pcmHandler := handlers.NewPCMHandler(pcmService, auth)
	receiptHandler := handlers.NewReceiptHandler(receiptProcessor)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterSMSRoutes(g, smsHandler)
	handlers.RegisterPCMRoutes(g, pcmHandler)
	handlers.RegisterReceiptRoutes(g, receiptHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
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
		MaxConns:                1000,
		ReadBufferSize:          1024 * 4,
		WriteBufferSize:         1024 * 4,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
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
