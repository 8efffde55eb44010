// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-pos/internal/handler"
	"github.com/iliyamo/cafe-pos/internal/middleware"
	"github.com/iliyamo/cafe-pos/internal/model"
)

// RegisterRoutes registers the unauthenticated probes. db may be nil, in
// which case /readyz is not exposed.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth exposes sign-in under /v1/auth and the session endpoints
// that need a valid access token under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(staffRoles...),
	)
	auth.GET("/me", a.Me)
	auth.POST("/logout-all", a.LogoutAll)
}

var staffRoles = []string{model.RoleEmployee, model.RoleModerator, model.RoleAdmin}
