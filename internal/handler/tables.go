package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/service"
)

type TableHandler struct {
	svc *service.TableService
	log *zap.Logger
}

func NewTableHandler(svc *service.TableService, log *zap.Logger) *TableHandler {
	return &TableHandler{svc: svc, log: log}
}

type createTableReq struct {
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
}

type tableStatusReq struct {
	Status string `json:"status"`
}

// List supports ?status=FREE|OCCUPIED and ?min_capacity=n.
func (h *TableHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	f := service.TableFilter{Status: model.TableStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))}
	if v := c.QueryParam("min_capacity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "min_capacity must be a non-negative integer")
		}
		f.MinCapacity = n
	}
	tables, err := h.svc.List(c.Request().Context(), actor, f)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, tables)
}

func (h *TableHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	t, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TableHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createTableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t, err := h.svc.Create(c.Request().Context(), actor, req.Name, req.Number, req.Capacity)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TableHandler) SetStatus(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	var req tableStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	status := model.TableStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	t, err := h.svc.SetTableStatus(c.Request().Context(), actor, id, status)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}
