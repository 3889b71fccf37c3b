package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/receipts"
	"github.com/txtalert/reminder-gateway/internal/services"
	xhttp "github.com/txtalert/reminder-gateway/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockSMSService struct {
	mock.Mock
}

func (m *MockSMSService) Send(ctx context.Context, msisdns []string, text string) ([]*model.Message, error) {
	args := m.Called(ctx, msisdns, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockSMSService) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockSMSService) Statistics(ctx context.Context, since time.Time) (*services.SMSStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SMSStats), args.Error(1)
}

type MockPCMService struct {
	mock.Mock
}

func (m *MockPCMService) Create(ctx context.Context, req model.PleaseCallMeCreateRequest) (*model.PleaseCallMe, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PleaseCallMe), args.Error(1)
}

func (m *MockPCMService) Statistics(ctx context.Context, since time.Time) (*services.PCMStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PCMStats), args.Error(1)
}

type MockReceiptProcessor struct {
	mock.Mock
}

func (m *MockReceiptProcessor) Process(ctx context.Context, batch []model.Receipt) *receipts.Result {
	args := m.Called(ctx, batch)
	return args.Get(0).(*receipts.Result)
}

func testAuth(t *testing.T) *Authenticator {
	t.Helper()
	auth, err := NewAuthenticator("txtalert", []string{
		"sender:sekret:can_send_sms",
		"viewer:sekret:can_view_sms_statistics|can_view_pcm_statistics",
	})
	require.NoError(t, err)
	return auth
}

func formCtx(uri, body string) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI(uri)
	ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
	ctx.Request.SetBodyString(body)
	return ctx
}

func getCtx(uri string) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodGet)
	ctx.Request.SetRequestURI(uri)
	return ctx
}

func basicAuth(ctx *xhttp.RequestCtx, user, password string) {
	cred := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	ctx.Request.Header.Set("Authorization", "Basic "+cred)
}

func TestAuthenticator(t *testing.T) {
	auth := testAuth(t)
	handler := auth.Require(PermSendSMS, func(ctx *xhttp.RequestCtx) {
		ctx.Response.SetStatusCode(xhttp.StatusOK)
	})

	t.Run("missing credentials get a challenge", func(t *testing.T) {
		ctx := getCtx("/api/v1/sms/json")
		handler(ctx)
		assert.Equal(t, xhttp.StatusUnauthorized, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Header.Peek("WWW-Authenticate")), "Basic realm=")
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		ctx := getCtx("/api/v1/sms/json")
		basicAuth(ctx, "sender", "wrong")
		handler(ctx)
		assert.Equal(t, xhttp.StatusUnauthorized, ctx.Response.StatusCode())
	})

	t.Run("missing permission is forbidden", func(t *testing.T) {
		ctx := getCtx("/api/v1/sms/json")
		basicAuth(ctx, "viewer", "sekret")
		handler(ctx)
		assert.Equal(t, xhttp.StatusForbidden, ctx.Response.StatusCode())
	})

	t.Run("holder passes through", func(t *testing.T) {
		ctx := getCtx("/api/v1/sms/json")
		basicAuth(ctx, "sender", "sekret")
		handler(ctx)
		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("malformed entry rejected at parse time", func(t *testing.T) {
		_, err := NewAuthenticator("txtalert", []string{"nopassword"})
		assert.Error(t, err)
	})
}

func TestSMSHandler_SendSMS(t *testing.T) {
	t.Run("accepted batch returns 201", func(t *testing.T) {
		svc := new(MockSMSService)
		h := NewSMSHandler(svc, testAuth(t))

		svc.On("Send", mock.Anything, []string{"27830000001", "27830000002"}, "hello").
			Return([]*model.Message{{ID: 1, Identifier: "aaaa0001"}}, nil)

		body := url.Values{"number": {"27830000001", "27830000002"}, "smstext": {"hello"}}.Encode()
		ctx := formCtx("/api/v1/sms/json", body)
		ctx.SetUserValue("format", "json")
		h.SendSMS(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		var resp sendSMSResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, 1, resp.Total)
		assert.Equal(t, "aaaa0001", resp.Items[0].Identifier)
	})

	t.Run("oversized text is a 400", func(t *testing.T) {
		svc := new(MockSMSService)
		h := NewSMSHandler(svc, testAuth(t))

		svc.On("Send", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.ErrTooManyCharacters)

		ctx := formCtx("/api/v1/sms/json", "number=27830000001&smstext=x")
		ctx.SetUserValue("format", "json")
		h.SendSMS(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), "Too many characters")
	})

	t.Run("xml format renders xml", func(t *testing.T) {
		svc := new(MockSMSService)
		h := NewSMSHandler(svc, testAuth(t))

		svc.On("Send", mock.Anything, mock.Anything, mock.Anything).
			Return([]*model.Message{{ID: 1}}, nil)

		ctx := formCtx("/api/v1/sms/xml", "number=27830000001&smstext=hi")
		ctx.SetUserValue("format", "xml")
		h.SendSMS(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Header.ContentType()), "text/xml")
		assert.Contains(t, string(ctx.Response.Body()), "<messages")
	})

	t.Run("unknown format is a 404", func(t *testing.T) {
		h := NewSMSHandler(new(MockSMSService), testAuth(t))
		ctx := formCtx("/api/v1/sms/yaml", "number=27830000001&smstext=hi")
		ctx.SetUserValue("format", "yaml")
		h.SendSMS(ctx)
		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})
}

func TestSMSHandler_GetStatistics(t *testing.T) {
	t.Run("requires since", func(t *testing.T) {
		h := NewSMSHandler(new(MockSMSService), testAuth(t))
		ctx := getCtx("/api/v1/sms/statistics/json")
		ctx.SetUserValue("format", "json")
		h.GetStatistics(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("counts since the given timestamp", func(t *testing.T) {
		svc := new(MockSMSService)
		h := NewSMSHandler(svc, testAuth(t))

		since := time.Date(2008, 8, 31, 15, 59, 24, 0, time.UTC)
		svc.On("Statistics", mock.Anything, since).
			Return(&services.SMSStats{Since: since, Total: 5, Delivered: 3, Failed: 1, Pending: 1}, nil)

		ctx := getCtx("/api/v1/sms/statistics/json?since=20080831T15:59:24")
		ctx.SetUserValue("format", "json")
		h.GetStatistics(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var stats services.SMSStats
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &stats))
		assert.Equal(t, int64(5), stats.Total)
	})
}

func TestPCMHandler_ReceivePCM(t *testing.T) {
	t.Run("stores and acknowledges", func(t *testing.T) {
		svc := new(MockPCMService)
		h := NewPCMHandler(svc, testAuth(t))

		svc.On("Create", mock.Anything, model.PleaseCallMeCreateRequest{
			MSISDN: "27831112222",
			SMSID:  "sms-1",
		}).Return(&model.PleaseCallMe{ID: 1}, nil)

		ctx := getCtx("/api/v1/pcm?number=27831112222&sms_id=sms-1")
		h.ReceivePCM(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.Equal(t, "Your PCM has been received", string(ctx.Response.Body()))
	})

	t.Run("validation failure is a 400", func(t *testing.T) {
		svc := new(MockPCMService)
		h := NewPCMHandler(svc, testAuth(t))

		svc.On("Create", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		ctx := getCtx("/api/v1/pcm?number=27831112222")
		h.ReceivePCM(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestReceiptHandler_PostReceipts(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<receipts>
  <receipt>
    <msgid>26567958</msgid>
    <reference>001efc31</reference>
    <msisdn>+27831112222</msisdn>
    <status>D</status>
    <timestamp>20080831T15:59:24</timestamp>
    <billed>NO</billed>
  </receipt>
</receipts>`

	t.Run("reconciled document returns 201", func(t *testing.T) {
		proc := new(MockReceiptProcessor)
		h := NewReceiptHandler(proc)

		proc.On("Process", mock.Anything, mock.MatchedBy(func(batch []model.Receipt) bool {
			return len(batch) == 1 && batch[0].Reference == "001efc31"
		})).Return(&receipts.Result{
			Success: []model.Receipt{{Reference: "001efc31"}},
			Fail:    []model.Receipt{},
		})

		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.SetMethod(fasthttp.MethodPost)
		ctx.Request.SetRequestURI("/api/v1/receipts")
		ctx.Request.Header.SetContentType("text/xml")
		ctx.Request.SetBodyString(doc)
		h.PostReceipts(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
		var result receipts.Result
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &result))
		assert.Len(t, result.Success, 1)
		assert.Empty(t, result.Fail)
	})

	t.Run("malformed document is a 400", func(t *testing.T) {
		h := NewReceiptHandler(new(MockReceiptProcessor))

		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.SetMethod(fasthttp.MethodPost)
		ctx.Request.SetRequestURI("/api/v1/receipts")
		ctx.Request.SetBodyString("not xml at all <<<")
		h.PostReceipts(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}
