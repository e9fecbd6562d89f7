package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, username, password_hash, first_name, last_name, mobile_phone,
	is_waiter, is_manager, is_director, current_till_id, current_temp_tab_id, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.MobilePhone,
		&u.IsWaiter, &u.IsManager, &u.IsDirector, &u.CurrentTillID, &u.CurrentTempTabID, &u.CreatedAt,
	)
	return u, err
}

const createUser = `
INSERT INTO users (username, password_hash, first_name, last_name, mobile_phone, is_waiter, is_manager, is_director)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumns

type CreateUserParams struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	MobilePhone  string
	IsWaiter     bool
	IsManager    bool
	IsDirector   bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Username, arg.PasswordHash, arg.FirstName, arg.LastName, arg.MobilePhone,
		arg.IsWaiter, arg.IsManager, arg.IsDirector,
	)
	return scanUser(row)
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUser, id))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByUsername, username))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY username`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const setCurrentTill = `UPDATE users SET current_till_id = $2 WHERE id = $1`

func (q *Queries) SetCurrentTill(ctx context.Context, userID uuid.UUID, tillID uuid.NullUUID) error {
	_, err := q.db.Exec(ctx, setCurrentTill, userID, tillID)
	return err
}

// ClearCurrentTillForTill frees every cashier assigned to the till. Runs in
// the same transaction as the till stop.
const clearCurrentTillForTill = `UPDATE users SET current_till_id = NULL WHERE current_till_id = $1`

func (q *Queries) ClearCurrentTillForTill(ctx context.Context, tillID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearCurrentTillForTill, tillID)
	return err
}

const setCurrentTempTab = `UPDATE users SET current_temp_tab_id = $2 WHERE id = $1`

func (q *Queries) SetCurrentTempTab(ctx context.Context, userID uuid.UUID, tabID uuid.NullUUID) error {
	_, err := q.db.Exec(ctx, setCurrentTempTab, userID, tabID)
	return err
}

// GetTempTabOwner resolves the temp-tab back-reference: the user whose
// current_temp_tab_id points at the tab. pgx.ErrNoRows means the tab is a
// regular one.
const getTempTabOwner = `SELECT ` + userColumns + ` FROM users WHERE current_temp_tab_id = $1`

func (q *Queries) GetTempTabOwner(ctx context.Context, tabID uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getTempTabOwner, tabID))
}
