package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/service"
)

// CatalogHandler serves the read-only menu.
type CatalogHandler struct {
	svc *service.CatalogService
	log *zap.Logger
}

func NewCatalogHandler(svc *service.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log}
}

func (h *CatalogHandler) Products(c echo.Context) error {
	products, err := h.svc.Products(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) Product(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid product id")
	}
	p, err := h.svc.Product(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) Categories(c echo.Context) error {
	cats, err := h.svc.Categories(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cats)
}
