package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is the root of every "entity absent" error. Handlers translate
// it into HTTP 404 via errors.Is.
var ErrNotFound = errors.New("not found")

var (
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrTableNotFound    = fmt.Errorf("table %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrBillNotFound     = fmt.Errorf("bill %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
)

// ErrInsufficientStock is returned by the stock ledger when a reservation
// asks for more than the product has on hand.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidState is returned when a status transition is not allowed from
// the entity's current state.
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidArgument flags caller input that can never succeed (zero
// quantity, unknown payment method).
var ErrInvalidArgument = errors.New("invalid argument")

// ErrConflict signals a uniqueness violation in the store, e.g. a second
// bill for the same order or a duplicate table number.
var ErrConflict = errors.New("conflict")

// ErrRefreshInvalid covers unknown, expired and revoked refresh tokens alike.
// Revoking a token that is already revoked reports it too, so only one
// caller can rotate a given token.
var ErrRefreshInvalid = errors.New("refresh token invalid")
