package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/services"
	xhttp "github.com/txtalert/reminder-gateway/pkg/http"
)

// pcmReceivedBody is the exact acknowledgement the FrontlineSMS relay
// expects; changing it breaks deployed field tools.
const pcmReceivedBody = "Your PCM has been received"

type PCMService interface {
	Create(ctx context.Context, req model.PleaseCallMeCreateRequest) (*model.PleaseCallMe, error)
	Statistics(ctx context.Context, since time.Time) (*services.PCMStats, error)
}

type PCMHandler struct {
	svc  PCMService
	auth *Authenticator
}

func RegisterPCMRoutes(e *router.Group, h *PCMHandler) {
	e.GET("/pcm", h.ReceivePCM)
	e.GET("/pcm/statistics/{format}", h.auth.Require(PermViewPCMStats, h.GetStatistics))
}

func NewPCMHandler(pcmService PCMService, auth *Authenticator) *PCMHandler {
	return &PCMHandler{
		svc:  pcmService,
		auth: auth,
	}
}

// ReceivePCM stores an inbound please-call-me relayed by the field tool.
// The relay retries anything that is not a 200, so validation failures
// are the only errors worth returning.
func (h *PCMHandler) ReceivePCM(ctx *xhttp.RequestCtx) {
	req := model.PleaseCallMeCreateRequest{
		MSISDN:  query(ctx, "number"),
		SMSID:   query(ctx, "sms_id"),
		Message: query(ctx, "message"),
	}

	if _, err := h.svc.Create(ctx, req); err != nil {
		writePlain(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writePlain(ctx, xhttp.StatusOK, pcmReceivedBody)
}

func (h *PCMHandler) GetStatistics(ctx *xhttp.RequestCtx) {
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
