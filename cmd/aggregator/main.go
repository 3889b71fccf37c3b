package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Delivery codes pushed back in receipts, matching what the real
// aggregator emits.
const (
	codeDelivered = "D"
	codeFailed    = "F"
)

// SendMessage is one entry in a bulk send request.
type SendMessage struct {
	MSISDN   string `json:"msisdn" binding:"required"`
	Content  string `json:"smstext" binding:"required"`
	Delivery string `json:"delivery"`
	Expiry   string `json:"expiry"`
	Priority string `json:"priority"`
	Receipt  string `json:"receipt"` // "Y" or "N"
}

// SendBatchRequest is the bulk send request body.
type SendBatchRequest struct {
	ServiceID string        `json:"service_id" binding:"required"`
	Password  string        `json:"password" binding:"required"`
	Channel   string        `json:"channel"`
	Messages  []SendMessage `json:"messages" binding:"required"`
}

// SendResult is the per-entry ack.
type SendResult struct {
	MSISDN     string `json:"msisdn"`
	Identifier string `json:"identifier"`
	Accepted   bool   `json:"accepted"`
	Error      string `json:"error,omitempty"`
}

// SendBatchResponse is the bulk send response body.
type SendBatchResponse struct {
	Results []SendResult `json:"results"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	AggregatorID string    `json:"aggregator_id"`
	Timestamp    time.Time `json:"timestamp"`
	DeliveryRate float64   `json:"delivery_rate"`
}

// MockAggregator simulates the upstream SMS aggregator: it acks each
// batch entry and, when a receipt was requested and a callback URL is
// configured, pushes the XML receipt document back after a short delay.
type MockAggregator struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	receiptURL   string
	aggregatorID string
	rng          *rand.Rand
}

// NewMockAggregator creates a new mock aggregator instance
func NewMockAggregator(deliveryRate float64, minDelay, maxDelay time.Duration, receiptURL string) *MockAggregator {
	return &MockAggregator{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		receiptURL:   receiptURL,
		aggregatorID: "MOCK_AGGREGATOR_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockAggregator) acceptBatch(req *SendBatchRequest) *SendBatchResponse {
	resp := &SendBatchResponse{Results: make([]SendResult, 0, len(req.Messages))}

	for _, msg := range req.Messages {
		if !strings.HasPrefix(strings.TrimPrefix(msg.MSISDN, "+"), "2") && !strings.HasPrefix(msg.MSISDN, "0") {
			resp.Results = append(resp.Results, SendResult{
				MSISDN:   msg.MSISDN,
				Accepted: false,
				Error:    "INVALID_NUMBER",
			})
			continue
		}

		identifier := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
		resp.Results = append(resp.Results, SendResult{
			MSISDN:     msg.MSISDN,
			Identifier: identifier,
			Accepted:   true,
		})

		if msg.Receipt == "Y" && m.receiptURL != "" {
			go m.pushReceipt(msg, identifier)
		}
	}

	return resp
}

// pushReceipt simulates the delayed delivery receipt the real aggregator
// POSTs back as an XML document.
func (m *MockAggregator) pushReceipt(msg SendMessage, identifier string) {
	time.Sleep(m.randomDelay())

	status := codeDelivered
	if !m.shouldSucceed() {
		status = codeFailed
	}

	doc := fmt.Sprintf(`<?xml version="1.0"?>
<receipts>
  <receipt>
    <msgid>%d</msgid>
    <reference>%s</reference>
    <msisdn>%s</msisdn>
    <status>%s</status>
    <timestamp>%s</timestamp>
    <billed>NO</billed>
  </receipt>
</receipts>`, m.rng.Int31(), identifier, msg.MSISDN, status, time.Now().Format("20060102T15:04:05"))

	resp, err := http.Post(m.receiptURL, "text/xml", bytes.NewBufferString(doc))
	if err != nil {
		log.Warn().
			Str("reference", identifier).
			Err(err).
			Msg("Failed to push receipt")
		return
	}
	defer resp.Body.Close()

	log.Info().
		Str("reference", identifier).
		Str("msisdn", msg.MSISDN).
		Str("status", status).
		Int("http_status", resp.StatusCode).
		Msg("Receipt pushed")
}

func (m *MockAggregator) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockAggregator) shouldSucceed() bool {
	return m.rng.Float64() < m.deliveryRate
}

// Handler struct holds the mock aggregator and routes
type Handler struct {
	aggregator *MockAggregator
}

func NewHandler(aggregator *MockAggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// SendBatch handles bulk SMS send requests
func (h *Handler) SendBatch(c *gin.Context) {
	var req SendBatchRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("service_id", req.ServiceID).
		Str("channel", req.Channel).
		Int("messages", len(req.Messages)).
		Msg("Received batch send request")

	c.JSON(http.StatusOK, h.aggregator.acceptBatch(&req))
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		AggregatorID: h.aggregator.aggregatorID,
		Timestamp:    time.Now(),
		DeliveryRate: h.aggregator.deliveryRate,
	})
}

// UpdateConfig allows changing aggregator configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeliveryRate != nil {
		if *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
			h.aggregator.deliveryRate = *config.DeliveryRate
			log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.aggregator.deliveryRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/sms/send", handler.SendBatch)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8081")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 1*time.Second)
	maxDelay := getEnvDuration("MAX_DELAY", 5*time.Second)
	receiptURL := getEnv("RECEIPT_URL", "")

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Str("receipt_url", receiptURL).
		Msg("Starting Mock SMS Aggregator")

	// Create mock aggregator
	aggregator := NewMockAggregator(deliveryRate, minDelay, maxDelay, receiptURL)
	handler := NewHandler(aggregator)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
