package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const tillColumns = `id, state, change_method_id, deposit_amount, opened_at, stopped_at, counted_at, counted_by`

func scanTill(row interface{ Scan(dest ...any) error }) (Till, error) {
	var t Till
	err := row.Scan(
		&t.ID, &t.State, &t.ChangeMethodID, &t.DepositAmount,
		&t.OpenedAt, &t.StoppedAt, &t.CountedAt, &t.CountedBy,
	)
	return t, err
}

const createTill = `
INSERT INTO tills (change_method_id, deposit_amount) VALUES ($1, $2)
RETURNING ` + tillColumns

func (q *Queries) CreateTill(ctx context.Context, changeMethodID uuid.UUID, depositAmount decimal.Decimal) (Till, error) {
	return scanTill(q.db.QueryRow(ctx, createTill, changeMethodID, depositAmount))
}

const getTill = `SELECT ` + tillColumns + ` FROM tills WHERE id = $1`

func (q *Queries) GetTill(ctx context.Context, id uuid.UUID) (Till, error) {
	return scanTill(q.db.QueryRow(ctx, getTill, id))
}

const listTillsByState = `SELECT ` + tillColumns + ` FROM tills WHERE state = $1 ORDER BY opened_at`

func (q *Queries) ListTillsByState(ctx context.Context, state string) ([]Till, error) {
	rows, err := q.db.Query(ctx, listTillsByState, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Till
	for rows.Next() {
		t, err := scanTill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// StopTill only succeeds from OPEN; pgx.ErrNoRows signals the no-op.
const stopTill = `
UPDATE tills SET state = 'STOPPED', stopped_at = $2
WHERE id = $1 AND state = 'OPEN'
RETURNING ` + tillColumns

func (q *Queries) StopTill(ctx context.Context, id uuid.UUID, at time.Time) (Till, error) {
	return scanTill(q.db.QueryRow(ctx, stopTill, id, at))
}

// CloseTill only succeeds from STOPPED.
const closeTill = `
UPDATE tills SET state = 'COUNTED', counted_at = $2, counted_by = $3
WHERE id = $1 AND state = 'STOPPED'
RETURNING ` + tillColumns

func (q *Queries) CloseTill(ctx context.Context, id uuid.UUID, at time.Time, countedBy uuid.UUID) (Till, error) {
	return scanTill(q.db.QueryRow(ctx, closeTill, id, at, countedBy))
}

const addTillCashier = `INSERT INTO till_cashiers (till_id, user_id) VALUES ($1, $2)`

func (q *Queries) AddTillCashier(ctx context.Context, tillID, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, addTillCashier, tillID, userID)
	return err
}

const listTillCashiers = `
SELECT ` + userColumns + ` FROM users u
JOIN till_cashiers tc ON tc.user_id = u.id
WHERE tc.till_id = $1
ORDER BY u.username`

func (q *Queries) ListTillCashiers(ctx context.Context, tillID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, listTillCashiers, tillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- Money counts ---

const createMoneyCount = `
INSERT INTO till_money_counts (till_id, payment_method_id) VALUES ($1, $2)
RETURNING id, till_id, payment_method_id, amount`

func (q *Queries) CreateMoneyCount(ctx context.Context, tillID, methodID uuid.UUID) (TillMoneyCount, error) {
	var mc TillMoneyCount
	err := q.db.QueryRow(ctx, createMoneyCount, tillID, methodID).
		Scan(&mc.ID, &mc.TillID, &mc.PaymentMethodID, &mc.Amount)
	return mc, err
}

const getMoneyCountDetail = `
SELECT mc.id, mc.till_id, mc.payment_method_id, mc.amount,
       pm.name, (pm.enabled AND c.enabled), pm.change_allowed, c.ratio
FROM till_money_counts mc
JOIN payment_methods pm ON pm.id = mc.payment_method_id
JOIN currencies c ON c.id = pm.currency_id
WHERE mc.id = $1`

func (q *Queries) GetMoneyCountDetail(ctx context.Context, id uuid.UUID) (MoneyCountDetail, error) {
	var d MoneyCountDetail
	err := q.db.QueryRow(ctx, getMoneyCountDetail, id).Scan(
		&d.ID, &d.TillID, &d.PaymentMethodID, &d.Amount,
		&d.MethodName, &d.MethodEnabled, &d.ChangeAllowed, &d.CurrencyRatio,
	)
	return d, err
}

// GetMoneyCountForUpdate locks the count row so the clamp rule is evaluated
// against a stable counted value within the transaction.
const getMoneyCountForUpdate = `
SELECT id, till_id, payment_method_id, amount FROM till_money_counts WHERE id = $1 FOR UPDATE`

func (q *Queries) GetMoneyCountForUpdate(ctx context.Context, id uuid.UUID) (TillMoneyCount, error) {
	var mc TillMoneyCount
	err := q.db.QueryRow(ctx, getMoneyCountForUpdate, id).
		Scan(&mc.ID, &mc.TillID, &mc.PaymentMethodID, &mc.Amount)
	return mc, err
}

const listMoneyCountsByTill = `
SELECT id, till_id, payment_method_id, amount FROM till_money_counts WHERE till_id = $1`

func (q *Queries) ListMoneyCountsByTill(ctx context.Context, tillID uuid.UUID) ([]TillMoneyCount, error) {
	rows, err := q.db.Query(ctx, listMoneyCountsByTill, tillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TillMoneyCount
	for rows.Next() {
		var mc TillMoneyCount
		if err := rows.Scan(&mc.ID, &mc.TillID, &mc.PaymentMethodID, &mc.Amount); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

const setMoneyCountAmount = `
UPDATE till_money_counts SET amount = $2 WHERE id = $1
RETURNING id, till_id, payment_method_id, amount`

func (q *Queries) SetMoneyCountAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (TillMoneyCount, error) {
	var mc TillMoneyCount
	err := q.db.QueryRow(ctx, setMoneyCountAmount, id, amount).
		Scan(&mc.ID, &mc.TillID, &mc.PaymentMethodID, &mc.Amount)
	return mc, err
}

// GetChangeCountForTill resolves the money count wired to the till's change
// method, used for automatic change payments at tab close.
const getChangeCountForTill = `
SELECT mc.id, mc.till_id, mc.payment_method_id, mc.amount
FROM till_money_counts mc
JOIN tills t ON t.id = mc.till_id
WHERE mc.till_id = $1 AND mc.payment_method_id = t.change_method_id`

func (q *Queries) GetChangeCountForTill(ctx context.Context, tillID uuid.UUID) (TillMoneyCount, error) {
	var mc TillMoneyCount
	err := q.db.QueryRow(ctx, getChangeCountForTill, tillID).
		Scan(&mc.ID, &mc.TillID, &mc.PaymentMethodID, &mc.Amount)
	return mc, err
}

// SumMoneyCountPayments is the expected value: derived live, never stored.
const sumMoneyCountPayments = `
SELECT COALESCE(SUM(amount), 0) FROM payments WHERE count_id = $1`

func (q *Queries) SumMoneyCountPayments(ctx context.Context, countID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx, sumMoneyCountPayments, countID).Scan(&sum)
	return sum, err
}

const sumMoneyCountEdits = `
SELECT COALESCE(SUM(amount), 0) FROM till_edits WHERE count_id = $1`

func (q *Queries) SumMoneyCountEdits(ctx context.Context, countID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx, sumMoneyCountEdits, countID).Scan(&sum)
	return sum, err
}

// --- Edits (append-only) ---

const createTillEdit = `
INSERT INTO till_edits (count_id, amount, reason) VALUES ($1, $2, $3)
RETURNING id, count_id, amount, reason, created_at`

type CreateTillEditParams struct {
	CountID uuid.UUID
	Amount  decimal.Decimal
	Reason  string
}

func (q *Queries) CreateTillEdit(ctx context.Context, arg CreateTillEditParams) (TillEdit, error) {
	var e TillEdit
	err := q.db.QueryRow(ctx, createTillEdit, arg.CountID, arg.Amount, arg.Reason).
		Scan(&e.ID, &e.CountID, &e.Amount, &e.Reason, &e.CreatedAt)
	return e, err
}

const listTillEditsByCount = `
SELECT id, count_id, amount, reason, created_at FROM till_edits WHERE count_id = $1 ORDER BY created_at`

func (q *Queries) ListTillEditsByCount(ctx context.Context, countID uuid.UUID) ([]TillEdit, error) {
	rows, err := q.db.Query(ctx, listTillEditsByCount, countID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TillEdit
	for rows.Next() {
		var e TillEdit
		if err := rows.Scan(&e.ID, &e.CountID, &e.Amount, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
