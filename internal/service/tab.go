package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/enum"
)

// TabStore defines the DB methods needed by the tab service.
// Satisfied by *database.Queries (and its WithTx variant).
type TabStore interface {
	CreateTab(ctx context.Context, name string, ownerID uuid.UUID) (database.Tab, error)
	GetTab(ctx context.Context, id uuid.UUID) (database.Tab, error)
	GetTabForUpdate(ctx context.Context, id uuid.UUID) (database.Tab, error)
	ListTabsByState(ctx context.Context, state string) ([]database.Tab, error)
	MarkTabPaid(ctx context.Context, id uuid.UUID, closedAt time.Time) (database.Tab, error)
	SumTabOrders(ctx context.Context, tabID uuid.UUID) (decimal.Decimal, error)
	SumTabPayments(ctx context.Context, tabID uuid.UUID) (decimal.Decimal, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	ListPaymentsByTab(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	ListOrdersByTab(ctx context.Context, tabID uuid.UUID) ([]database.Order, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	GetTill(ctx context.Context, id uuid.UUID) (database.Till, error)
	GetMoneyCountDetail(ctx context.Context, id uuid.UUID) (database.MoneyCountDetail, error)
	GetChangeCountForTill(ctx context.Context, tillID uuid.UUID) (database.TillMoneyCount, error)
	GetTempTabOwner(ctx context.Context, tabID uuid.UUID) (database.User, error)
	SetCurrentTempTab(ctx context.Context, userID uuid.UUID, tabID uuid.NullUUID) error
	UpdateTabOwner(ctx context.Context, id, ownerID uuid.UUID) (database.Tab, error)
}

// NewTabStore creates a TabStore from a DBTX (pool or tx).
type NewTabStore func(db database.DBTX) TabStore

// TabService handles tab lifecycle and payments.
type TabService struct {
	pool     TxBeginner
	newStore NewTabStore
}

func NewTabService(pool TxBeginner, newStore NewTabStore) *TabService {
	return &TabService{pool: pool, newStore: newStore}
}

// Open creates a named tab owned by the given waiter.
func (s *TabService) Open(ctx context.Context, name string, ownerID uuid.UUID) (database.Tab, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return database.Tab{}, fmt.Errorf("tab name is required: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	owner, err := store.GetUser(ctx, ownerID)
	if err != nil {
		return database.Tab{}, notFound(err, "owner")
	}
	if !owner.IsWaiter {
		return database.Tab{}, fmt.Errorf("tab owner must be a waiter: %w", ErrValidation)
	}

	tab, err := store.CreateTab(ctx, name, ownerID)
	if err != nil {
		return database.Tab{}, fmt.Errorf("create tab: %w", err)
	}
	return tab, tx.Commit(ctx)
}

// OpenDirect creates the waiter's personal walk-in tab. A waiter holds
// at most one at a time; the slot frees up when the tab is paid.
func (s *TabService) OpenDirect(ctx context.Context, userID uuid.UUID) (database.Tab, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	user, err := store.GetUser(ctx, userID)
	if err != nil {
		return database.Tab{}, notFound(err, "user")
	}
	if !user.IsWaiter {
		return database.Tab{}, fmt.Errorf("only waiters hold direct tabs: %w", ErrPermission)
	}

	if user.CurrentTempTabID.Valid {
		return database.Tab{}, fmt.Errorf("waiter already has an open direct tab: %w", ErrConflict)
	}

	name := fmt.Sprintf("direct-%s-%s", user.Username, uuid.NewString()[:8])
	tab, err := store.CreateTab(ctx, name, userID)
	if err != nil {
		return database.Tab{}, fmt.Errorf("create direct tab: %w", err)
	}
	if err := store.SetCurrentTempTab(ctx, userID, uuid.NullUUID{UUID: tab.ID, Valid: true}); err != nil {
		return database.Tab{}, fmt.Errorf("attach direct tab: %w", err)
	}
	return tab, tx.Commit(ctx)
}

// PlaceOrdersRequest adds Count line items of one product to a tab.
// State is the initial kitchen state; walk-in sales enter as SERVED,
// table service as ORDERED.
type PlaceOrdersRequest struct {
	TabID     uuid.UUID
	ProductID uuid.UUID
	Count     int
	Note      string
	State     string
}

// PlaceOrders creates the line items atomically and snapshots the
// product price on each one.
func (s *TabService) PlaceOrders(ctx context.Context, req PlaceOrdersRequest) ([]database.Order, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("count must be positive: %w", ErrValidation)
	}
	state := req.State
	if state == "" {
		state = enum.OrderStateOrdered
	}
	switch state {
	case enum.OrderStateOrdered, enum.OrderStatePreparing, enum.OrderStateToServe, enum.OrderStateServed:
	default:
		return nil, fmt.Errorf("invalid initial order state %q: %w", state, ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	tab, err := store.GetTabForUpdate(ctx, req.TabID)
	if err != nil {
		return nil, notFound(err, "tab")
	}
	if tab.State != enum.TabStateOpen {
		return nil, fmt.Errorf("tab is %s: %w", tab.State, ErrInvalidState)
	}

	product, err := store.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, notFound(err, "product")
	}
	if !product.Enabled {
		return nil, fmt.Errorf("product %q is disabled: %w", product.Name, ErrValidation)
	}

	now := time.Now().UTC()
	params := database.CreateOrderParams{
		TabID:     req.TabID,
		ProductID: req.ProductID,
		State:     state,
		Price:     product.Price,
		OrderedAt: now,
	}
	if req.Note != "" {
		note := req.Note
		params.Note = &note
	}
	// An order entering past ORDERED carries every earlier timestamp too,
	// all set to the entry time.
	switch state {
	case enum.OrderStateServed:
		params.ServedAt = &now
		fallthrough
	case enum.OrderStateToServe:
		params.PreparedAt = &now
		fallthrough
	case enum.OrderStatePreparing:
		params.PreparingAt = &now
	}

	orders := make([]database.Order, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		order, err := store.CreateOrder(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, tx.Commit(ctx)
}

// TabTotals is the live financial position of a tab. Variance is
// orders minus payments, positive while the customer still owes and
// negative when change is due.
type TabTotals struct {
	Ordered  decimal.Decimal `json:"ordered"`
	Paid     decimal.Decimal `json:"paid"`
	Variance decimal.Decimal `json:"variance"`
}

// Totals derives the tab's position from its live line items and
// payments. Nothing is cached; voided orders are excluded.
func (s *TabService) Totals(ctx context.Context, tabID uuid.UUID) (TabTotals, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return TabTotals{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	if _, err := store.GetTab(ctx, tabID); err != nil {
		return TabTotals{}, notFound(err, "tab")
	}
	totals, err := tabTotals(ctx, store, tabID)
	if err != nil {
		return TabTotals{}, err
	}
	return totals, tx.Commit(ctx)
}

func tabTotals(ctx context.Context, store TabStore, tabID uuid.UUID) (TabTotals, error) {
	ordered, err := store.SumTabOrders(ctx, tabID)
	if err != nil {
		return TabTotals{}, fmt.Errorf("sum orders: %w", err)
	}
	paid, err := store.SumTabPayments(ctx, tabID)
	if err != nil {
		return TabTotals{}, fmt.Errorf("sum payments: %w", err)
	}
	ordered = ordered.Round(3)
	paid = paid.Round(3)
	return TabTotals{Ordered: ordered, Paid: paid, Variance: ordered.Sub(paid)}, nil
}

// AddPaymentRequest records money received against a tab. Amount is in
// the payment method's own currency.
type AddPaymentRequest struct {
	TabID   uuid.UUID
	CountID uuid.UUID
	Amount  decimal.Decimal
}

// AddPayment validates the target money count and records the payment.
// Negative amounts are reserved for change, which only MarkPaid writes.
func (s *TabService) AddPayment(ctx context.Context, req AddPaymentRequest) (database.Payment, error) {
	if !req.Amount.IsPositive() {
		return database.Payment{}, fmt.Errorf("payment amount must be positive: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Payment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	tab, err := store.GetTabForUpdate(ctx, req.TabID)
	if err != nil {
		return database.Payment{}, notFound(err, "tab")
	}
	if tab.State != enum.TabStateOpen {
		return database.Payment{}, fmt.Errorf("tab is %s: %w", tab.State, ErrInvalidState)
	}

	count, err := store.GetMoneyCountDetail(ctx, req.CountID)
	if err != nil {
		return database.Payment{}, notFound(err, "money count")
	}
	if !count.MethodEnabled {
		return database.Payment{}, fmt.Errorf("payment method %q is disabled: %w", count.MethodName, ErrValidation)
	}
	till, err := store.GetTill(ctx, count.TillID)
	if err != nil {
		return database.Payment{}, fmt.Errorf("get till: %w", err)
	}
	if till.State != enum.TillStateOpen {
		return database.Payment{}, fmt.Errorf("till is %s: %w", till.State, ErrInvalidState)
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		TabID:   req.TabID,
		CountID: req.CountID,
		Amount:  req.Amount.Round(3),
	})
	if err != nil {
		return database.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return payment, tx.Commit(ctx)
}

// MarkPaid settles and closes a tab on behalf of the acting cashier.
// An overpaid tab gets the surplus back as a negative payment on the
// change count of the cashier's current till; the generated payment is
// returned so the client can show the change due. A direct tab is
// detached from its waiter before the state flips.
func (s *TabService) MarkPaid(ctx context.Context, tabID, cashierID uuid.UUID) (database.Tab, *database.Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	tab, err := store.GetTabForUpdate(ctx, tabID)
	if err != nil {
		return database.Tab{}, nil, notFound(err, "tab")
	}
	if tab.State != enum.TabStateOpen {
		return database.Tab{}, nil, fmt.Errorf("tab is %s: %w", tab.State, ErrInvalidState)
	}

	totals, err := tabTotals(ctx, store, tabID)
	if err != nil {
		return database.Tab{}, nil, err
	}

	var change *database.Payment
	if totals.Variance.IsNegative() {
		cashier, err := store.GetUser(ctx, cashierID)
		if err != nil {
			return database.Tab{}, nil, notFound(err, "cashier")
		}
		if !cashier.CurrentTillID.Valid {
			return database.Tab{}, nil, fmt.Errorf("cashier %q has no open till to give change from: %w", cashier.Username, ErrValidation)
		}
		count, err := store.GetChangeCountForTill(ctx, cashier.CurrentTillID.UUID)
		if err != nil {
			return database.Tab{}, nil, notFound(err, "change count")
		}

		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			TabID:   tabID,
			CountID: count.ID,
			Amount:  totals.Variance,
		})
		if err != nil {
			return database.Tab{}, nil, fmt.Errorf("create change payment: %w", err)
		}
		change = &payment
	}

	// The direct tab slot must be freed before the tab leaves OPEN; a
	// PAID tab may never be referenced as someone's current direct tab.
	owner, err := store.GetTempTabOwner(ctx, tabID)
	switch {
	case err == nil:
		if err := store.SetCurrentTempTab(ctx, owner.ID, uuid.NullUUID{}); err != nil {
			return database.Tab{}, nil, fmt.Errorf("detach direct tab: %w", err)
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return database.Tab{}, nil, fmt.Errorf("get direct tab owner: %w", err)
	}

	paid, err := store.MarkTabPaid(ctx, tabID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tab{}, nil, fmt.Errorf("tab was closed concurrently: %w", ErrConflict)
		}
		return database.Tab{}, nil, fmt.Errorf("close tab: %w", err)
	}

	return paid, change, tx.Commit(ctx)
}

// ChangeOwner reassigns an open tab to another waiter. Direct tabs stay
// with their waiter.
func (s *TabService) ChangeOwner(ctx context.Context, tabID, newOwnerID uuid.UUID) (database.Tab, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	tab, err := changeOwner(ctx, store, tabID, newOwnerID)
	if err != nil {
		return database.Tab{}, err
	}
	return tab, tx.Commit(ctx)
}

// changeOwner contains the reassignment rules shared with the transfer
// approval workflow, which runs it inside its own transaction.
func changeOwner(ctx context.Context, store TabStore, tabID, newOwnerID uuid.UUID) (database.Tab, error) {
	tab, err := store.GetTabForUpdate(ctx, tabID)
	if err != nil {
		return database.Tab{}, notFound(err, "tab")
	}
	if tab.State != enum.TabStateOpen {
		return database.Tab{}, fmt.Errorf("tab is %s: %w", tab.State, ErrInvalidState)
	}
	if _, err := store.GetTempTabOwner(ctx, tabID); err == nil {
		return database.Tab{}, fmt.Errorf("direct tabs cannot change owner: %w", ErrValidation)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.Tab{}, fmt.Errorf("get direct tab owner: %w", err)
	}

	owner, err := store.GetUser(ctx, newOwnerID)
	if err != nil {
		return database.Tab{}, notFound(err, "new owner")
	}
	if !owner.IsWaiter {
		return database.Tab{}, fmt.Errorf("new owner must be a waiter: %w", ErrValidation)
	}

	updated, err := store.UpdateTabOwner(ctx, tabID, newOwnerID)
	if err != nil {
		return database.Tab{}, fmt.Errorf("update owner: %w", err)
	}
	return updated, nil
}

// Get returns one tab.
func (s *TabService) Get(ctx context.Context, id uuid.UUID) (database.Tab, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Tab{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tab, err := s.newStore(tx).GetTab(ctx, id)
	if err != nil {
		return database.Tab{}, notFound(err, "tab")
	}
	return tab, tx.Commit(ctx)
}

// ListByState returns tabs in the given lifecycle state.
func (s *TabService) ListByState(ctx context.Context, state string) ([]database.Tab, error) {
	if state != enum.TabStateOpen && state != enum.TabStatePaid {
		return nil, fmt.Errorf("invalid tab state %q: %w", state, ErrValidation)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tabs, err := s.newStore(tx).ListTabsByState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	return tabs, tx.Commit(ctx)
}

// Orders lists a tab's line items.
func (s *TabService) Orders(ctx context.Context, tabID uuid.UUID) ([]database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	if _, err := store.GetTab(ctx, tabID); err != nil {
		return nil, notFound(err, "tab")
	}
	orders, err := store.ListOrdersByTab(ctx, tabID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, tx.Commit(ctx)
}

// Payments lists a tab's payments, change lines included.
func (s *TabService) Payments(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	if _, err := store.GetTab(ctx, tabID); err != nil {
		return nil, notFound(err, "tab")
	}
	payments, err := store.ListPaymentsByTab(ctx, tabID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, tx.Commit(ctx)
}
