package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-pos/internal/handler"
	"github.com/iliyamo/cafe-pos/internal/middleware"
	"github.com/iliyamo/cafe-pos/internal/model"
)

// Employee groups the handlers mounted under /v1/employee.
type Employee struct {
	Orders  *handler.OrderHandler
	Tables  *handler.TableHandler
	Bills   *handler.BillHandler
	Catalog *handler.CatalogHandler
	Live    *handler.LiveHandler

	JWTSecret string
	// RateLimit guards every /v1/employee route; Cache fronts categories.
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterEmployee mounts the POS API. All routes need a staff token;
// creating tables is reserved to moderators and admins.
func RegisterEmployee(e *echo.Echo, h Employee) {
	mws := []echo.MiddlewareFunc{
		middleware.JWTAuth(h.JWTSecret),
		middleware.RequireRole(staffRoles...),
	}
	if h.RateLimit != nil {
		mws = append(mws, h.RateLimit)
	}
	g := e.Group("/v1/employee", mws...)

	g.GET("/orders", h.Orders.List)
	g.POST("/orders", h.Orders.Create)
	g.GET("/orders/pending", h.Orders.Pending)
	g.GET("/orders/table/:tableId", h.Orders.ByTable)
	g.GET("/orders/:id", h.Orders.Get)
	g.POST("/orders/:id/items", h.Orders.AddItem)
	g.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
	g.POST("/orders/:id/pay", h.Orders.Pay)
	g.DELETE("/orders/:id", h.Orders.Delete)
	g.GET("/orders/:id/bill", h.Orders.Bill)

	g.GET("/tables", h.Tables.List)
	g.GET("/tables/:id", h.Tables.Get)
	g.POST("/tables", h.Tables.Create, middleware.RequireRole(model.RoleModerator, model.RoleAdmin))
	g.PATCH("/tables/:id/status", h.Tables.SetStatus)

	g.PATCH("/bills/:id/status", h.Bills.UpdateStatus)

	g.GET("/products", h.Catalog.Products)
	g.GET("/products/:id", h.Catalog.Product)
	if h.Cache != nil {
		g.GET("/categories", h.Catalog.Categories, h.Cache)
	} else {
		g.GET("/categories", h.Catalog.Categories)
	}

	// The feed lives outside the rate-limited group: one upgrade, many frames.
	if h.Live != nil {
		e.GET("/v1/ws", h.Live.Subscribe,
			middleware.JWTAuth(h.JWTSecret),
			middleware.RequireRole(staffRoles...))
	}
}
