package handlers

import (
	"context"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/services"
	xhttp "github.com/txtalert/reminder-gateway/pkg/http"
)

type SMSService interface {
	Send(ctx context.Context, msisdns []string, text string) ([]*model.Message, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
	Statistics(ctx context.Context, since time.Time) (*services.SMSStats, error)
}

type SMSHandler struct {
	svc  SMSService
	auth *Authenticator
}

func RegisterSMSRoutes(e *router.Group, h *SMSHandler) {
	e.POST("/sms/{format}", h.auth.Require(PermSendSMS, h.SendSMS))
	e.GET("/sms", h.auth.Require(PermSendSMS, h.ListSMS))
	e.GET("/sms/statistics/{format}", h.auth.Require(PermViewSMSStats, h.GetStatistics))
}

func NewSMSHandler(smsService SMSService, auth *Authenticator) *SMSHandler {
	return &SMSHandler{
		svc:  smsService,
		auth: auth,
	}
}

type sendSMSResponse struct {
	XMLName xml.Name         `json:"-" xml:"messages"`
	Items   []*model.Message `json:"items" xml:"message"`
	Total   int              `json:"total" xml:"total,attr"`
}

type listResponse struct {
	Items []*model.Message `json:"items"`
	Total int64            `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

// SendSMS submits one text to every `number` form value. The response
// lists the accepted messages; recipients the aggregator refused are
// simply absent.
func (h *SMSHandler) SendSMS(ctx *xhttp.RequestCtx) {
	format, ok := pathFormat(ctx)
	if !ok {
		writeError(ctx, xhttp.StatusNotFound, "unknown format: "+format)
		return
	}

	numbers := formValues(ctx, "number")
	text := form(ctx, "smstext")

	msgs, err := h.svc.Send(ctx, numbers, text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTooManyCharacters),
			errors.Is(err, services.ErrEmptyContent),
			errors.Is(err, services.ErrNoRecipients):
			renderError(ctx, format, xhttp.StatusBadRequest, err.Error())
		default:
			renderError(ctx, format, xhttp.StatusInternalServerError, err.Error())
		}
		return
	}

	render(ctx, format, xhttp.StatusCreated, sendSMSResponse{Items: msgs, Total: len(msgs)})
}

func (h *SMSHandler) ListSMS(ctx *xhttp.RequestCtx) {
	var f model.MessageFilter

	if v := query(ctx, "msisdn"); v != "" {
		f.MSISDN = &v
	}
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.MessageStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "since"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.Since = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Total: total})
}

// GetStatistics counts sent messages by outcome since the required
// `since` timestamp (aggregator wire format, e.g. 20080831T15:59:24).
func (h *SMSHandler) GetStatistics(ctx *xhttp.RequestCtx) {
	format, ok := pathFormat(ctx)
	if !ok {
		writeError(ctx, xhttp.StatusNotFound, "unknown format: "+format)
		return
	}

	since, err := time.Parse(model.TimestampFormat, query(ctx, "since"))
	if err != nil {
		renderError(ctx, format, xhttp.StatusBadRequest, "since is required, format "+model.TimestampFormat)
		return
	}

	stats, err := h.svc.Statistics(ctx, since)
	if err != nil {
		renderError(ctx, format, xhttp.StatusInternalServerError, err.Error())
		return
	}
	render(ctx, format, xhttp.StatusOK, stats)
}
