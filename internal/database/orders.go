package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, tab_id, product_id, state, price, note,
	ordered_at, preparing_at, prepared_at, served_at, voided_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.TabID, &o.ProductID, &o.State, &o.Price, &o.Note,
		&o.OrderedAt, &o.PreparingAt, &o.PreparedAt, &o.ServedAt, &o.VoidedAt,
	)
	return o, err
}

// CreateOrder captures the product price at order time; timestamps beyond
// ordered_at are pre-populated for walk-in entry at a later initial state.
const createOrder = `
INSERT INTO orders (tab_id, product_id, state, price, note, ordered_at, preparing_at, prepared_at, served_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	TabID       uuid.UUID
	ProductID   uuid.UUID
	State       string
	Price       decimal.Decimal
	Note        *string
	OrderedAt   time.Time
	PreparingAt *time.Time
	PreparedAt  *time.Time
	ServedAt    *time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.TabID, arg.ProductID, arg.State, arg.Price, arg.Note,
		arg.OrderedAt, arg.PreparingAt, arg.PreparedAt, arg.ServedAt,
	))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderDetail = `
SELECT o.id, o.tab_id, o.product_id, o.state, o.price, o.note,
       o.ordered_at, o.preparing_at, o.prepared_at, o.served_at, o.voided_at,
       p.name, t.name, t.owner_id
FROM orders o
JOIN products p ON p.id = o.product_id
JOIN tabs t ON t.id = o.tab_id
WHERE o.id = $1`

func (q *Queries) GetOrderDetail(ctx context.Context, id uuid.UUID) (OrderDetail, error) {
	var d OrderDetail
	err := q.db.QueryRow(ctx, getOrderDetail, id).Scan(
		&d.ID, &d.TabID, &d.ProductID, &d.State, &d.Price, &d.Note,
		&d.OrderedAt, &d.PreparingAt, &d.PreparedAt, &d.ServedAt, &d.VoidedAt,
		&d.ProductName, &d.TabName, &d.TabOwnerID,
	)
	return d, err
}

const listOrdersByTab = `SELECT ` + orderColumns + ` FROM orders WHERE tab_id = $1 ORDER BY ordered_at`

func (q *Queries) ListOrdersByTab(ctx context.Context, tabID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByTab, tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Each bump step is a conditional update: pgx.ErrNoRows means the order moved
// on (or was voided) since the caller read it.

const markOrderPreparing = `
UPDATE orders SET state = 'PREPARING', preparing_at = $2
WHERE id = $1 AND state = 'ORDERED'
RETURNING ` + orderColumns

func (q *Queries) MarkOrderPreparing(ctx context.Context, id uuid.UUID, at time.Time) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPreparing, id, at))
}

const markOrderToServe = `
UPDATE orders SET state = 'TO_SERVE', prepared_at = $2
WHERE id = $1 AND state = 'PREPARING'
RETURNING ` + orderColumns

func (q *Queries) MarkOrderToServe(ctx context.Context, id uuid.UUID, at time.Time) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderToServe, id, at))
}

const markOrderServed = `
UPDATE orders SET state = 'SERVED', served_at = $2
WHERE id = $1 AND state = 'TO_SERVE'
RETURNING ` + orderColumns

func (q *Queries) MarkOrderServed(ctx context.Context, id uuid.UUID, at time.Time) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderServed, id, at))
}

// VoidOrder is a no-op on an already voided order (no rows), which the
// service treats as idempotent success.
const voidOrder = `
UPDATE orders SET state = 'VOIDED', voided_at = $2
WHERE id = $1 AND state != 'VOIDED'
RETURNING ` + orderColumns

func (q *Queries) VoidOrder(ctx context.Context, id uuid.UUID, at time.Time) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, voidOrder, id, at))
}
