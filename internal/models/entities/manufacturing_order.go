package entities

import "time"

// ManufacturingOrder is the read-only view of a local order owned by the planning board
type ManufacturingOrder struct {
	ID          int64      `db:"id"`
	OrderNumber string     `db:"order_number"`
	Status      string     `db:"status"`
	Quantity    int        `db:"quantity"`
	DueDate     *time.Time `db:"due_date"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
