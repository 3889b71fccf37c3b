package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

var ErrCircuitOpen = errors.New("aggregator circuit open")

type Config struct {
	URL       string
	ServiceID string
	Password  string
	Channel   string

	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int

	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Request/Response types of the aggregator's bulk endpoint.
type sendBatchRequest struct {
	ServiceID string        `json:"service_id"`
	Password  string        `json:"password"`
	Channel   string        `json:"channel"`
	Messages  []sendMessage `json:"messages"`
}

type sendMessage struct {
	MSISDN   string `json:"msisdn"`
	Content  string `json:"smstext"`
	Delivery string `json:"delivery"`
	Expiry   string `json:"expiry"`
	Priority string `json:"priority"`
	Receipt  string `json:"receipt"` // "Y" or "N"
}

type sendBatchResponse struct {
	Results []sendResult `json:"results"`
}

type sendResult struct {
	MSISDN     string `json:"msisdn"`
	Identifier string `json:"identifier"`
	Accepted   bool   `json:"accepted"`
	Error      string `json:"error,omitempty"`
}

// Client is the HTTP client for the SMS aggregator. A batch is submitted
// in one request; the aggregator acks each entry individually, so one bad
// msisdn never sinks the rest of the batch.
type Client struct {
	config *Config
	client *fasthttp.Client

	consecutiveFails atomic.Int32
	circuitOpenUntil atomic.Int64
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.URL == "" {
		return nil, errors.New("aggregator url is required")
	}

	client := &Client{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		},
	}

	logger.Info("Aggregator client initialized", "url", config.URL, "channel", config.Channel, "timeout", config.Timeout)

	return client, nil
}

func (c *Client) SendBatch(ctx context.Context, msisdns []string, texts []string, opts SendOptions) ([]*model.Message, error) {
	if err := validateBatch(msisdns, texts, opts); err != nil {
		return nil, err
	}

	req := &sendBatchRequest{
		ServiceID: c.config.ServiceID,
		Password:  c.config.Password,
		Channel:   c.config.Channel,
		Messages:  make([]sendMessage, len(msisdns)),
	}
	for i := range msisdns {
		receipt := "N"
		if opts.ReceiptRequested {
			receipt = "Y"
		}
		req.Messages[i] = sendMessage{
			MSISDN:   msisdns[i],
			Content:  texts[i],
			Delivery: opts.Delivery.Format(model.TimestampFormat),
			Expiry:   opts.Expiry.Format(model.TimestampFormat),
			Priority: string(opts.Priority),
			Receipt:  receipt,
		}
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		if !c.available() {
			lastErr = ErrCircuitOpen
			continue
		}

		response, err := c.doRequest(ctx, "POST", "/api/v1/sms/send", reqBody)
		if err != nil {
			c.recordFailure()
			logger.Warn("Aggregator request failed, retrying", "error", err, "attempt", attempt+1)
			lastErr = err
			continue
		}
		c.recordSuccess()

		var resp sendBatchResponse
		if err := json.Unmarshal(response, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		return buildMessages(req.Messages, resp.Results, opts), nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// buildMessages maps per-entry acks back onto the submitted batch.
// Rejected entries are logged and skipped.
func buildMessages(submitted []sendMessage, results []sendResult, opts SendOptions) []*model.Message {
	byMSISDN := make(map[string][]sendResult, len(results))
	for _, r := range results {
		byMSISDN[r.MSISDN] = append(byMSISDN[r.MSISDN], r)
	}

	messages := make([]*model.Message, 0, len(submitted))
	for _, m := range submitted {
		queue := byMSISDN[m.MSISDN]
		if len(queue) == 0 {
			logger.Warn("Aggregator returned no ack for msisdn", "msisdn", m.MSISDN)
			continue
		}
		result := queue[0]
		byMSISDN[m.MSISDN] = queue[1:]

		if !result.Accepted {
			logger.Warn("Aggregator rejected message", "msisdn", m.MSISDN, "error", result.Error)
			continue
		}

		messages = append(messages, &model.Message{
			MSISDN:           m.MSISDN,
			Content:          m.Content,
			Delivery:         opts.Delivery,
			Expiry:           opts.Expiry,
			Priority:         opts.Priority,
			ReceiptRequested: opts.ReceiptRequested,
			Identifier:       result.Identifier,
			Status:           model.MessageStatusPending,
		})
	}
	return messages
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.URL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}

func (c *Client) available() bool {
	openUntil := c.circuitOpenUntil.Load()
	if openUntil == 0 {
		return true
	}
	if time.Now().Unix() > openUntil {
		c.circuitOpenUntil.Store(0)
		c.consecutiveFails.Store(0)
		return true
	}
	return false
}

func (c *Client) recordSuccess() {
	c.consecutiveFails.Store(0)
}

func (c *Client) recordFailure() {
	fails := c.consecutiveFails.Add(1)
	if c.config.CircuitBreakerThreshold > 0 && fails >= int32(c.config.CircuitBreakerThreshold) {
		openUntil := time.Now().Add(c.config.CircuitBreakerTimeout).Unix()
		c.circuitOpenUntil.Store(openUntil)
		logger.Warn("Aggregator circuit breaker opened", "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
	}
}
