package model

import "fmt"

// OrderEvent is an action applied to an order.
type OrderEvent string

const (
	OrderEventAddItem OrderEvent = "ADD_ITEM"
	OrderEventPay     OrderEvent = "PAY"
	OrderEventCancel  OrderEvent = "CANCEL"
)

// orderTransitions lists every legal (state, event) pair. Anything absent
// is rejected.
var orderTransitions = map[OrderStatus]map[OrderEvent]OrderStatus{
	OrderPending: {
		OrderEventAddItem: OrderPending,
		OrderEventPay:     OrderPaid,
		OrderEventCancel:  OrderCancelled,
	},
	OrderPaid:      {},
	OrderCancelled: {},
}

// Apply returns the state reached by applying e to s, or an error wrapping
// ErrInvalidState.
func (s OrderStatus) Apply(e OrderEvent) (OrderStatus, error) {
	next, ok := orderTransitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: order %s cannot %s", ErrInvalidState, s, e)
	}
	return next, nil
}

// Terminal reports whether no event is accepted from s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// TableEvent is an action applied to a table's occupancy.
type TableEvent string

const (
	// TableEventSeat binds a new party (or order) to a free table.
	TableEventSeat TableEvent = "SEAT"
	// TableEventHold re-asserts occupancy, e.g. after payment.
	TableEventHold TableEvent = "HOLD"
	// TableEventRelease frees the table.
	TableEventRelease TableEvent = "RELEASE"
)

var tableTransitions = map[TableStatus]map[TableEvent]TableStatus{
	TableFree: {
		TableEventSeat:    TableOccupied,
		TableEventRelease: TableFree,
	},
	TableOccupied: {
		TableEventHold:    TableOccupied,
		TableEventRelease: TableFree,
	},
}

// Apply returns the state reached by applying e to s, or an error wrapping
// ErrInvalidState. Seating an occupied table is rejected.
func (s TableStatus) Apply(e TableEvent) (TableStatus, error) {
	next, ok := tableTransitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: table %s cannot %s", ErrInvalidState, s, e)
	}
	return next, nil
}
