package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const voidRequestColumns = `id, order_id, waiter_id, manager_id, requested_at, resolved_at, resolution`

func scanVoidRequest(row interface{ Scan(dest ...any) error }) (VoidRequest, error) {
	var r VoidRequest
	err := row.Scan(&r.ID, &r.OrderID, &r.WaiterID, &r.ManagerID, &r.RequestedAt, &r.ResolvedAt, &r.Resolution)
	return r, err
}

// CreateVoidRequest relies on the partial unique index over unresolved
// requests per order as the concurrency backstop (pg error 23505).
const createVoidRequest = `
INSERT INTO void_requests (order_id, waiter_id) VALUES ($1, $2)
RETURNING ` + voidRequestColumns

func (q *Queries) CreateVoidRequest(ctx context.Context, orderID, waiterID uuid.UUID) (VoidRequest, error) {
	return scanVoidRequest(q.db.QueryRow(ctx, createVoidRequest, orderID, waiterID))
}

const getVoidRequest = `SELECT ` + voidRequestColumns + ` FROM void_requests WHERE id = $1`

func (q *Queries) GetVoidRequest(ctx context.Context, id uuid.UUID) (VoidRequest, error) {
	return scanVoidRequest(q.db.QueryRow(ctx, getVoidRequest, id))
}

const hasUnresolvedVoidRequest = `
SELECT EXISTS (SELECT 1 FROM void_requests WHERE order_id = $1 AND resolution IS NULL)`

func (q *Queries) HasUnresolvedVoidRequest(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasUnresolvedVoidRequest, orderID).Scan(&exists)
	return exists, err
}

const listUnresolvedVoidRequests = `
SELECT ` + voidRequestColumns + ` FROM void_requests WHERE resolution IS NULL ORDER BY requested_at`

func (q *Queries) ListUnresolvedVoidRequests(ctx context.Context) ([]VoidRequest, error) {
	rows, err := q.db.Query(ctx, listUnresolvedVoidRequests)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VoidRequest
	for rows.Next() {
		r, err := scanVoidRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResolveVoidRequest is the compare-and-set: a request resolves exactly once.
// pgx.ErrNoRows means another manager already resolved it.
const resolveVoidRequest = `
UPDATE void_requests SET resolution = $2, manager_id = $3, resolved_at = $4
WHERE id = $1 AND resolution IS NULL
RETURNING ` + voidRequestColumns

type ResolveVoidRequestParams struct {
	ID         uuid.UUID
	Resolution string
	ManagerID  uuid.UUID
	ResolvedAt time.Time
}

func (q *Queries) ResolveVoidRequest(ctx context.Context, arg ResolveVoidRequestParams) (VoidRequest, error) {
	return scanVoidRequest(q.db.QueryRow(ctx, resolveVoidRequest,
		arg.ID, arg.Resolution, arg.ManagerID, arg.ResolvedAt))
}

// --- Transfer/claim requests (deleted on resolution, not archived) ---

const transferRequestColumns = `id, tab_id, requester_id, new_owner_id, requested_at`

func scanTransferRequest(row interface{ Scan(dest ...any) error }) (TransferRequest, error) {
	var r TransferRequest
	err := row.Scan(&r.ID, &r.TabID, &r.RequesterID, &r.NewOwnerID, &r.RequestedAt)
	return r, err
}

// The UNIQUE constraint on tab_id enforces one outstanding request per tab.
const createTransferRequest = `
INSERT INTO transfer_requests (tab_id, requester_id, new_owner_id) VALUES ($1, $2, $3)
RETURNING ` + transferRequestColumns

func (q *Queries) CreateTransferRequest(ctx context.Context, tabID, requesterID, newOwnerID uuid.UUID) (TransferRequest, error) {
	return scanTransferRequest(q.db.QueryRow(ctx, createTransferRequest, tabID, requesterID, newOwnerID))
}

const getTransferRequest = `SELECT ` + transferRequestColumns + ` FROM transfer_requests WHERE id = $1`

func (q *Queries) GetTransferRequest(ctx context.Context, id uuid.UUID) (TransferRequest, error) {
	return scanTransferRequest(q.db.QueryRow(ctx, getTransferRequest, id))
}

const tabHasTransferRequest = `
SELECT EXISTS (SELECT 1 FROM transfer_requests WHERE tab_id = $1)`

func (q *Queries) TabHasTransferRequest(ctx context.Context, tabID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, tabHasTransferRequest, tabID).Scan(&exists)
	return exists, err
}

const listTransferRequests = `
SELECT ` + transferRequestColumns + ` FROM transfer_requests ORDER BY requested_at`

func (q *Queries) ListTransferRequests(ctx context.Context) ([]TransferRequest, error) {
	rows, err := q.db.Query(ctx, listTransferRequests)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TransferRequest
	for rows.Next() {
		r, err := scanTransferRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteTransferRequest doubles as the resolution compare-and-set: only one
// resolver gets the row back.
const deleteTransferRequest = `
DELETE FROM transfer_requests WHERE id = $1
RETURNING ` + transferRequestColumns

func (q *Queries) DeleteTransferRequest(ctx context.Context, id uuid.UUID) (TransferRequest, error) {
	return scanTransferRequest(q.db.QueryRow(ctx, deleteTransferRequest, id))
}
