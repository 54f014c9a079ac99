package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GrantWise/factory-board-sub001/internal/models/entities"
)

// ManufacturingOrderRepo reads the planning board's order table. The ERP sync
// core never writes to it.
type ManufacturingOrderRepo struct {
	db *sqlx.DB
}

func NewManufacturingOrderRepo(db *sqlx.DB) *ManufacturingOrderRepo {
	return &ManufacturingOrderRepo{db: db}
}

// GetByID returns nil, nil when the order does not exist
func (r *ManufacturingOrderRepo) GetByID(ctx context.Context, id int64) (*entities.ManufacturingOrder, error) {
	const query = `
		SELECT id, order_number, status, quantity, due_date, updated_at
		FROM manufacturing_orders
		WHERE id = ?`

	var order entities.ManufacturingOrder
	err := r.db.GetContext(ctx, &order, r.db.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch manufacturing order: %w", err)
	}
	return &order, nil
}

// Exists reports whether a local order with the id is present
func (r *ManufacturingOrderRepo) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT COUNT(1) FROM manufacturing_orders WHERE id = ?`

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), id); err != nil {
		return false, fmt.Errorf("failed to check manufacturing order: %w", err)
	}
	return count > 0, nil
}
