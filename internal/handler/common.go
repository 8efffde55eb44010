// Package handler exposes the POS services over HTTP with echo. Handlers
// translate requests into service calls with an explicit model.Actor and
// map domain errors onto status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/middleware"
	"github.com/iliyamo/cafe-pos/internal/model"
)

var errNoIdentity = errors.New("invalid user_id in context")

// actorFrom builds the caller's identity from the claims JWTAuth stored.
func actorFrom(c echo.Context) (model.Actor, error) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok || id == 0 {
		return model.Actor{}, errNoIdentity
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return model.Actor{UserID: id, Role: role}, nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// statusFor maps workflow errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}. Internal errors are logged and
// replaced with a generic message.
func fail(c echo.Context, log *zap.Logger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method), zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
