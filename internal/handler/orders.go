package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/service"
)

// OrderHandler serves the employee order endpoints.
type OrderHandler struct {
	wf    *service.OrderWorkflow
	bills *service.BillService
	log   *zap.Logger
}

func NewOrderHandler(wf *service.OrderWorkflow, bills *service.BillService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{wf: wf, bills: bills, log: log}
}

type createOrderReq struct {
	TableID    uint64 `json:"table_id"`
	EmployeeID uint64 `json:"employee_id"`
}

type addItemReq struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type statusReq struct {
	Status string `json:"status"`
}

type payReq struct {
	PaymentMethod string `json:"payment_method"`
}

// Create opens an order at a free table. employee_id defaults to the caller.
func (h *OrderHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.TableID == 0 {
		return badRequest(c, "table_id required")
	}
	o, err := h.wf.CreateOrder(c.Request().Context(), actor, req.TableID, req.EmployeeID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) AddItem(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req addItemReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ProductID == 0 {
		return badRequest(c, "product_id required")
	}
	o, err := h.wf.AddOrderItem(c.Request().Context(), actor, orderID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// UpdateStatus handles PATCH /orders/:id/status. Only CANCELLED changes an
// order here. PAID answers 409 because payment goes through POST
// /orders/:id/pay, which issues the bill. PENDING on a settled order also
// answers 409, and resending the current status is a 200 no-op.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	status := model.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	o, err := h.wf.UpdateOrderStatus(c.Request().Context(), actor, orderID, status)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Pay settles an order and returns the bill.
func (h *OrderHandler) Pay(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	var req payReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	method := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	b, err := h.wf.PayOrder(c.Request().Context(), actor, orderID, method)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *OrderHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	if err := h.wf.DeleteOrder(c.Request().Context(), actor, orderID); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orders, err := h.wf.ListOrders(c.Request().Context(), actor)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Pending(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orders, err := h.wf.PendingOrders(c.Request().Context(), actor)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) ByTable(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	tableID, ok := pathID(c, "tableId")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	orders, err := h.wf.OrdersByTable(c.Request().Context(), actor, tableID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	o, err := h.wf.GetOrder(c.Request().Context(), actor, orderID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Bill(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	b, err := h.bills.BillForOrder(c.Request().Context(), actor, orderID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}
