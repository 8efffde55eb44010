package model

import "time"

// TableStatus is the occupancy state of a coffee table.
type TableStatus string

const (
	TableFree     TableStatus = "FREE"
	TableOccupied TableStatus = "OCCUPIED"
)

// Valid reports whether s is a known table status.
func (s TableStatus) Valid() bool {
	return s == TableFree || s == TableOccupied
}

// CoffeeTable is a seat group in the café. Status is written explicitly by
// the order workflow; it is never derived from the orders table.
type CoffeeTable struct {
	ID        uint64      `json:"id"`
	Name      string      `json:"name"`
	Number    int         `json:"number"`
	Capacity  int         `json:"capacity"`
	Status    TableStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
