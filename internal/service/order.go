package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/enum"
)

// OrderStore defines the DB methods needed by the order service.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetail, error)
	MarkOrderPreparing(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error)
	MarkOrderToServe(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error)
	MarkOrderServed(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error)
	VoidOrder(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService advances line items through the kitchen pipeline.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// nextState is the single-step bump table. Absent keys are terminal.
var nextState = map[string]string{
	enum.OrderStateOrdered:   enum.OrderStatePreparing,
	enum.OrderStatePreparing: enum.OrderStateToServe,
	enum.OrderStateToServe:   enum.OrderStateServed,
}

// Bump advances one order a single pipeline step. The conditional
// update races cleanly with other bumps: whoever loses gets a conflict
// instead of a double advance.
func (s *OrderService) Bump(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	order, err := bumpOne(ctx, store, orderID)
	if err != nil {
		return database.Order{}, err
	}
	return order, tx.Commit(ctx)
}

func bumpOne(ctx context.Context, store OrderStore, orderID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, notFound(err, "order")
	}

	target, ok := nextState[order.State]
	if !ok {
		return database.Order{}, fmt.Errorf("order is %s: %w", order.State, ErrInvalidState)
	}

	now := time.Now().UTC()
	var bumped database.Order
	switch target {
	case enum.OrderStatePreparing:
		bumped, err = store.MarkOrderPreparing(ctx, orderID, now)
	case enum.OrderStateToServe:
		bumped, err = store.MarkOrderToServe(ctx, orderID, now)
	case enum.OrderStateServed:
		bumped, err = store.MarkOrderServed(ctx, orderID, now)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("order left %s concurrently: %w", order.State, ErrConflict)
		}
		return database.Order{}, fmt.Errorf("bump order: %w", err)
	}
	return bumped, nil
}

// BumpN advances an order up to n steps in one transaction, stopping at
// the first step that cannot advance. Steps already taken stay taken;
// the returned count says how far it got.
func (s *OrderService) BumpN(ctx context.Context, orderID uuid.UUID, n int) (database.Order, int, error) {
	if n <= 0 {
		return database.Order{}, 0, fmt.Errorf("bump count must be positive: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	var order database.Order
	steps := 0
	for ; steps < n; steps++ {
		bumped, err := bumpOne(ctx, store, orderID)
		if errors.Is(err, ErrInvalidState) && steps > 0 {
			// Hit the end of the pipeline partway through; keep what
			// was advanced.
			break
		}
		if err != nil {
			return database.Order{}, 0, err
		}
		order = bumped
	}
	return order, steps, tx.Commit(ctx)
}

// Void cancels an order from any state. Voiding an already voided order
// is a no-op that returns the order as it stands.
func (s *OrderService) Void(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	order, err := voidOrder(ctx, store, orderID)
	if err != nil {
		return database.Order{}, err
	}
	return order, tx.Commit(ctx)
}

func voidOrder(ctx context.Context, store OrderStore, orderID uuid.UUID) (database.Order, error) {
	order, err := store.VoidOrder(ctx, orderID, time.Now().UTC())
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, fmt.Errorf("void order: %w", err)
	}
	// Already voided, or missing entirely.
	order, err = store.GetOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, notFound(err, "order")
	}
	return order, nil
}

// Get returns one order with its product and tab context.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (database.OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderDetail{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	detail, err := s.newStore(tx).GetOrderDetail(ctx, id)
	if err != nil {
		return database.OrderDetail{}, notFound(err, "order")
	}
	return detail, tx.Commit(ctx)
}
