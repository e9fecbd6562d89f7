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

// TillStore defines the DB methods needed by the till service.
type TillStore interface {
	CreateTill(ctx context.Context, changeMethodID uuid.UUID, depositAmount decimal.Decimal) (database.Till, error)
	GetTill(ctx context.Context, id uuid.UUID) (database.Till, error)
	ListTillsByState(ctx context.Context, state string) ([]database.Till, error)
	StopTill(ctx context.Context, id uuid.UUID, at time.Time) (database.Till, error)
	CloseTill(ctx context.Context, id uuid.UUID, at time.Time, countedBy uuid.UUID) (database.Till, error)
	AddTillCashier(ctx context.Context, tillID, userID uuid.UUID) error
	ListTillCashiers(ctx context.Context, tillID uuid.UUID) ([]database.User, error)
	ClearCurrentTillForTill(ctx context.Context, tillID uuid.UUID) error
	SetCurrentTill(ctx context.Context, userID uuid.UUID, tillID uuid.NullUUID) error
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	GetDeposit(ctx context.Context, id uuid.UUID) (database.Deposit, error)
	ListDepositMethodIDs(ctx context.Context, depositID uuid.UUID) ([]uuid.UUID, error)
	CreateMoneyCount(ctx context.Context, tillID, methodID uuid.UUID) (database.TillMoneyCount, error)
	GetMoneyCountDetail(ctx context.Context, id uuid.UUID) (database.MoneyCountDetail, error)
	GetMoneyCountForUpdate(ctx context.Context, id uuid.UUID) (database.TillMoneyCount, error)
	ListMoneyCountsByTill(ctx context.Context, tillID uuid.UUID) ([]database.TillMoneyCount, error)
	SetMoneyCountAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (database.TillMoneyCount, error)
	GetChangeCountForTill(ctx context.Context, tillID uuid.UUID) (database.TillMoneyCount, error)
	SumMoneyCountPayments(ctx context.Context, countID uuid.UUID) (decimal.Decimal, error)
	SumMoneyCountEdits(ctx context.Context, countID uuid.UUID) (decimal.Decimal, error)
	CreateTillEdit(ctx context.Context, arg database.CreateTillEditParams) (database.TillEdit, error)
	ListTillEditsByCount(ctx context.Context, countID uuid.UUID) ([]database.TillEdit, error)
}

// NewTillStore creates a TillStore from a DBTX (pool or tx).
type NewTillStore func(db database.DBTX) TillStore

// TillService handles the till lifecycle from opening through counting.
type TillService struct {
	pool     TxBeginner
	newStore NewTillStore
}

func NewTillService(pool TxBeginner, newStore NewTillStore) *TillService {
	return &TillService{pool: pool, newStore: newStore}
}

// OpenFromDeposit opens a till from a deposit template: one money count
// per template method, the template's float amount, and the given
// waiters assigned as cashiers.
func (s *TillService) OpenFromDeposit(ctx context.Context, depositID uuid.UUID, cashierIDs []uuid.UUID) (database.Till, error) {
	if len(cashierIDs) == 0 {
		return database.Till{}, fmt.Errorf("at least one cashier is required: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Till{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	deposit, err := store.GetDeposit(ctx, depositID)
	if err != nil {
		return database.Till{}, notFound(err, "deposit")
	}
	if !deposit.Enabled {
		return database.Till{}, fmt.Errorf("deposit %q is disabled: %w", deposit.Name, ErrValidation)
	}

	till, err := store.CreateTill(ctx, deposit.ChangeMethodID, deposit.DepositAmount)
	if err != nil {
		return database.Till{}, fmt.Errorf("create till: %w", err)
	}

	methodIDs, err := store.ListDepositMethodIDs(ctx, depositID)
	if err != nil {
		return database.Till{}, fmt.Errorf("list deposit methods: %w", err)
	}
	for _, methodID := range methodIDs {
		if _, err := store.CreateMoneyCount(ctx, till.ID, methodID); err != nil {
			return database.Till{}, fmt.Errorf("create money count: %w", err)
		}
	}

	for _, cashierID := range cashierIDs {
		cashier, err := store.GetUser(ctx, cashierID)
		if err != nil {
			return database.Till{}, notFound(err, "cashier")
		}
		if !cashier.IsWaiter {
			return database.Till{}, fmt.Errorf("cashier %q is not a waiter: %w", cashier.Username, ErrValidation)
		}
		if cashier.CurrentTillID.Valid {
			return database.Till{}, fmt.Errorf("cashier %q already has a till: %w", cashier.Username, ErrValidation)
		}
		if err := store.AddTillCashier(ctx, till.ID, cashierID); err != nil {
			return database.Till{}, fmt.Errorf("assign cashier: %w", err)
		}
		if err := store.SetCurrentTill(ctx, cashierID, uuid.NullUUID{UUID: till.ID, Valid: true}); err != nil {
			return database.Till{}, fmt.Errorf("set current till: %w", err)
		}
	}

	return till, tx.Commit(ctx)
}

// Stop closes the till for business and releases its cashiers. Payments
// can no longer land on a stopped till.
func (s *TillService) Stop(ctx context.Context, tillID uuid.UUID) (database.Till, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Till{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	till, err := store.StopTill(ctx, tillID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, getErr := store.GetTill(ctx, tillID)
			if getErr != nil {
				return database.Till{}, notFound(getErr, "till")
			}
			return database.Till{}, fmt.Errorf("till is %s: %w", existing.State, ErrInvalidState)
		}
		return database.Till{}, fmt.Errorf("stop till: %w", err)
	}

	if err := store.ClearCurrentTillForTill(ctx, tillID); err != nil {
		return database.Till{}, fmt.Errorf("release cashiers: %w", err)
	}
	return till, tx.Commit(ctx)
}

// CountEntry is the counted amount entered for one money count.
type CountEntry struct {
	CountID uuid.UUID
	Amount  decimal.Decimal
}

// Count records the counted base amounts and moves the till to
// COUNTED. Every count on the till must be entered; amounts below zero
// are clamped to zero and the affected count IDs reported back.
func (s *TillService) Count(ctx context.Context, tillID, countedBy uuid.UUID, entries []CountEntry) (database.Till, []uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Till{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	till, err := store.GetTill(ctx, tillID)
	if err != nil {
		return database.Till{}, nil, notFound(err, "till")
	}
	if till.State != enum.TillStateStopped {
		return database.Till{}, nil, fmt.Errorf("till is %s: %w", till.State, ErrInvalidState)
	}

	counts, err := store.ListMoneyCountsByTill(ctx, tillID)
	if err != nil {
		return database.Till{}, nil, fmt.Errorf("list money counts: %w", err)
	}
	entered := make(map[uuid.UUID]decimal.Decimal, len(entries))
	for _, entry := range entries {
		entered[entry.CountID] = entry.Amount
	}
	if len(entered) != len(counts) {
		return database.Till{}, nil, fmt.Errorf("expected %d count entries, got %d: %w", len(counts), len(entered), ErrValidation)
	}
	var clamped []uuid.UUID
	for _, count := range counts {
		amount, ok := entered[count.ID]
		if !ok {
			return database.Till{}, nil, fmt.Errorf("missing entry for count %s: %w", count.ID, ErrValidation)
		}
		if amount.IsNegative() {
			amount = decimal.Zero
			clamped = append(clamped, count.ID)
		}
		if _, err := store.SetMoneyCountAmount(ctx, count.ID, amount.Round(3)); err != nil {
			return database.Till{}, nil, fmt.Errorf("set counted amount: %w", err)
		}
	}

	counted, err := store.CloseTill(ctx, tillID, time.Now().UTC(), countedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Till{}, nil, fmt.Errorf("till was counted concurrently: %w", ErrConflict)
		}
		return database.Till{}, nil, fmt.Errorf("close till: %w", err)
	}
	return counted, clamped, tx.Commit(ctx)
}

// AddEdit appends a correction to a counted till's money count. The
// entered base amount is never touched; the effective counted value is
// base plus the edit ledger, and can never go below zero: an edit that
// would is clamped and the clamp reported to the caller.
func (s *TillService) AddEdit(ctx context.Context, countID uuid.UUID, amount decimal.Decimal, reason string) (database.TillEdit, bool, error) {
	if amount.IsZero() {
		return database.TillEdit{}, false, fmt.Errorf("edit amount cannot be zero: %w", ErrValidation)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return database.TillEdit{}, false, fmt.Errorf("edit reason is required: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TillEdit{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	count, err := store.GetMoneyCountForUpdate(ctx, countID)
	if err != nil {
		return database.TillEdit{}, false, notFound(err, "money count")
	}
	till, err := store.GetTill(ctx, count.TillID)
	if err != nil {
		return database.TillEdit{}, false, fmt.Errorf("get till: %w", err)
	}
	if till.State != enum.TillStateCounted {
		return database.TillEdit{}, false, fmt.Errorf("till is %s: %w", till.State, ErrInvalidState)
	}

	editSum, err := store.SumMoneyCountEdits(ctx, countID)
	if err != nil {
		return database.TillEdit{}, false, fmt.Errorf("sum edits: %w", err)
	}
	counted := count.Amount.Add(editSum)

	applied := amount.Round(3)
	clamped := false
	if counted.Add(applied).IsNegative() {
		// Record only the part that fit.
		applied = counted.Neg()
		clamped = true
	}
	if applied.IsZero() {
		return database.TillEdit{}, false, fmt.Errorf("count is already zero: %w", ErrValidation)
	}

	edit, err := store.CreateTillEdit(ctx, database.CreateTillEditParams{
		CountID: countID,
		Amount:  applied,
		Reason:  reason,
	})
	if err != nil {
		return database.TillEdit{}, false, fmt.Errorf("create edit: %w", err)
	}
	return edit, clamped, tx.Commit(ctx)
}

// CountSummary is one money count's reconciliation line. Expected is
// the sum of payments routed to the count, derived live and never
// stored. The deposit float sits in the change drawer but is not a
// payment, so it gets its own column; counted is the entered base
// amount plus the edit ledger.
type CountSummary struct {
	Count        database.TillMoneyCount `json:"count"`
	Expected     decimal.Decimal         `json:"expected"`
	DepositFloat decimal.Decimal         `json:"deposit_float"`
	Counted      decimal.Decimal         `json:"counted"`
	EditsTotal   decimal.Decimal         `json:"edits_total"`
	Variance     decimal.Decimal         `json:"variance"`
}

// Summary reconciles every money count of a till.
func (s *TillService) Summary(ctx context.Context, tillID uuid.UUID) ([]CountSummary, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	till, err := store.GetTill(ctx, tillID)
	if err != nil {
		return nil, notFound(err, "till")
	}
	counts, err := store.ListMoneyCountsByTill(ctx, tillID)
	if err != nil {
		return nil, fmt.Errorf("list money counts: %w", err)
	}

	summaries := make([]CountSummary, 0, len(counts))
	for _, count := range counts {
		expected, err := store.SumMoneyCountPayments(ctx, count.ID)
		if err != nil {
			return nil, fmt.Errorf("sum payments: %w", err)
		}
		float := decimal.Zero
		if count.PaymentMethodID == till.ChangeMethodID {
			float = till.DepositAmount
		}
		editsTotal, err := store.SumMoneyCountEdits(ctx, count.ID)
		if err != nil {
			return nil, fmt.Errorf("sum edits: %w", err)
		}
		counted := count.Amount.Add(editsTotal)
		summaries = append(summaries, CountSummary{
			Count:        count,
			Expected:     expected.Round(3),
			DepositFloat: float,
			Counted:      counted.Round(3),
			EditsTotal:   editsTotal.Round(3),
			Variance:     counted.Sub(expected).Sub(float).Round(3),
		})
	}
	return summaries, tx.Commit(ctx)
}

// ChangeCount resolves the money count that gives change for a till,
// for clients closing a tab against it.
func (s *TillService) ChangeCount(ctx context.Context, tillID uuid.UUID) (database.TillMoneyCount, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TillMoneyCount{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	count, err := s.newStore(tx).GetChangeCountForTill(ctx, tillID)
	if err != nil {
		return database.TillMoneyCount{}, notFound(err, "change count")
	}
	return count, tx.Commit(ctx)
}

// Get returns one till.
func (s *TillService) Get(ctx context.Context, id uuid.UUID) (database.Till, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Till{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	till, err := s.newStore(tx).GetTill(ctx, id)
	if err != nil {
		return database.Till{}, notFound(err, "till")
	}
	return till, tx.Commit(ctx)
}

// ListByState returns tills in the given lifecycle state.
func (s *TillService) ListByState(ctx context.Context, state string) ([]database.Till, error) {
	switch state {
	case enum.TillStateOpen, enum.TillStateStopped, enum.TillStateCounted:
	default:
		return nil, fmt.Errorf("invalid till state %q: %w", state, ErrValidation)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tills, err := s.newStore(tx).ListTillsByState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("list tills: %w", err)
	}
	return tills, tx.Commit(ctx)
}

// Edits lists the append-only corrections on one money count.
func (s *TillService) Edits(ctx context.Context, countID uuid.UUID) ([]database.TillEdit, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	if _, err := store.GetMoneyCountDetail(ctx, countID); err != nil {
		return nil, notFound(err, "money count")
	}
	edits, err := store.ListTillEditsByCount(ctx, countID)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	return edits, tx.Commit(ctx)
}

// Cashiers lists the waiters assigned to a till.
func (s *TillService) Cashiers(ctx context.Context, tillID uuid.UUID) ([]database.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	if _, err := store.GetTill(ctx, tillID); err != nil {
		return nil, notFound(err, "till")
	}
	cashiers, err := store.ListTillCashiers(ctx, tillID)
	if err != nil {
		return nil, fmt.Errorf("list cashiers: %w", err)
	}
	return cashiers, tx.Commit(ctx)
}
