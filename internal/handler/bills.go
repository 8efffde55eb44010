package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/service"
)

type BillHandler struct {
	svc *service.BillService
	log *zap.Logger
}

func NewBillHandler(svc *service.BillService, log *zap.Logger) *BillHandler {
	return &BillHandler{svc: svc, log: log}
}

type paymentStatusReq struct {
	PaymentStatus string `json:"payment_status"`
}

// UpdateStatus corrects the payment status of an issued bill.
func (h *BillHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid bill id")
	}
	var req paymentStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	status := model.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.PaymentStatus)))
	b, err := h.svc.UpdatePaymentStatus(c.Request().Context(), actor, id, status)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}
