package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Error kinds returned by all services. Handlers map these to HTTP
// statuses with errors.Is; services wrap them with fmt.Errorf("%w")
// to add detail.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failure")
	ErrPermission   = errors.New("permission denied")
	ErrConflict     = errors.New("concurrency conflict")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// notFound converts pgx.ErrNoRows into the NotFound kind, leaving
// other errors untouched.
func notFound(err error, entity string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return err
}
