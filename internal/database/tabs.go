package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const tabColumns = `id, name, state, owner_id, opened_at, closed_at`

func scanTab(row interface{ Scan(dest ...any) error }) (Tab, error) {
	var t Tab
	err := row.Scan(&t.ID, &t.Name, &t.State, &t.OwnerID, &t.OpenedAt, &t.ClosedAt)
	return t, err
}

const createTab = `
INSERT INTO tabs (name, owner_id) VALUES ($1, $2)
RETURNING ` + tabColumns

func (q *Queries) CreateTab(ctx context.Context, name string, ownerID uuid.UUID) (Tab, error) {
	return scanTab(q.db.QueryRow(ctx, createTab, name, ownerID))
}

const getTab = `SELECT ` + tabColumns + ` FROM tabs WHERE id = $1`

func (q *Queries) GetTab(ctx context.Context, id uuid.UUID) (Tab, error) {
	return scanTab(q.db.QueryRow(ctx, getTab, id))
}

// GetTabForUpdate row-locks the tab for the rest of the transaction, so the
// paid transition and concurrent order placement serialize.
const getTabForUpdate = `SELECT ` + tabColumns + ` FROM tabs WHERE id = $1 FOR UPDATE`

func (q *Queries) GetTabForUpdate(ctx context.Context, id uuid.UUID) (Tab, error) {
	return scanTab(q.db.QueryRow(ctx, getTabForUpdate, id))
}

const listTabsByState = `SELECT ` + tabColumns + ` FROM tabs WHERE state = $1 ORDER BY opened_at`

func (q *Queries) ListTabsByState(ctx context.Context, state string) ([]Tab, error) {
	rows, err := q.db.Query(ctx, listTabsByState, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tab
	for rows.Next() {
		t, err := scanTab(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const updateTabOwner = `
UPDATE tabs SET owner_id = $2 WHERE id = $1
RETURNING ` + tabColumns

func (q *Queries) UpdateTabOwner(ctx context.Context, id, ownerID uuid.UUID) (Tab, error) {
	return scanTab(q.db.QueryRow(ctx, updateTabOwner, id, ownerID))
}

// MarkTabPaid flips the state only if the tab is still OPEN; pgx.ErrNoRows
// means a concurrent close won the race.
const markTabPaid = `
UPDATE tabs SET state = 'PAID', closed_at = $2
WHERE id = $1 AND state = 'OPEN'
RETURNING ` + tabColumns

func (q *Queries) MarkTabPaid(ctx context.Context, id uuid.UUID, closedAt time.Time) (Tab, error) {
	return scanTab(q.db.QueryRow(ctx, markTabPaid, id, closedAt))
}

// SumTabOrders is the tab total: voided orders never count.
const sumTabOrders = `
SELECT COALESCE(SUM(price), 0) FROM orders WHERE tab_id = $1 AND state != 'VOIDED'`

func (q *Queries) SumTabOrders(ctx context.Context, tabID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx, sumTabOrders, tabID).Scan(&sum)
	return sum, err
}

// SumTabPayments converts every payment through its method's currency ratio.
const sumTabPayments = `
SELECT COALESCE(SUM(p.amount * c.ratio), 0)
FROM payments p
JOIN till_money_counts mc ON mc.id = p.count_id
JOIN payment_methods pm ON pm.id = mc.payment_method_id
JOIN currencies c ON c.id = pm.currency_id
WHERE p.tab_id = $1`

func (q *Queries) SumTabPayments(ctx context.Context, tabID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx, sumTabPayments, tabID).Scan(&sum)
	return sum, err
}

const createPayment = `
INSERT INTO payments (tab_id, count_id, amount) VALUES ($1, $2, $3)
RETURNING id, tab_id, count_id, amount, created_at`

type CreatePaymentParams struct {
	TabID   uuid.UUID
	CountID uuid.UUID
	Amount  decimal.Decimal
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	var p Payment
	err := q.db.QueryRow(ctx, createPayment, arg.TabID, arg.CountID, arg.Amount).
		Scan(&p.ID, &p.TabID, &p.CountID, &p.Amount, &p.CreatedAt)
	return p, err
}

const listPaymentsByTab = `
SELECT id, tab_id, count_id, amount, created_at FROM payments WHERE tab_id = $1 ORDER BY created_at`

func (q *Queries) ListPaymentsByTab(ctx context.Context, tabID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByTab, tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TabID, &p.CountID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
