package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/internal/receipts"
	xhttp "github.com/txtalert/reminder-gateway/pkg/http"
)

type ReceiptProcessor interface {
	Process(ctx context.Context, batch []model.Receipt) *receipts.Result
}

type ReceiptHandler struct {
	processor ReceiptProcessor
}

func RegisterReceiptRoutes(e *router.Group, h *ReceiptHandler) {
	e.POST("/receipts", h.PostReceipts)
}

func NewReceiptHandler(processor ReceiptProcessor) *ReceiptHandler {
	return &ReceiptHandler{
		processor: processor,
	}
}

// PostReceipts takes the aggregator's XML receipt document and reconciles
// each receipt against its message. The response always carries both the
// reconciled and the unmatched receipts so the aggregator can retry the
// failures alone.
func (h *ReceiptHandler) PostReceipts(ctx *xhttp.RequestCtx) {
	batch, err := receipts.ParseReceipts(ctx.PostBody())
	if err != nil {
		if errors.Is(err, receipts.ErrParse) {
			writeError(ctx, xhttp.StatusBadRequest, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	result := h.processor.Process(ctx, batch)
	writeJSON(ctx, xhttp.StatusCreated, result)
}
