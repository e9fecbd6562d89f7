package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/enum"
	"github.com/barpos/api/internal/notify"
)

// WorkflowStore defines the DB methods needed by the approval
// workflows. It reuses the tab and order surfaces because resolutions
// cascade into both.
type WorkflowStore interface {
	TabStore
	OrderStore
	CreateVoidRequest(ctx context.Context, orderID, waiterID uuid.UUID) (database.VoidRequest, error)
	GetVoidRequest(ctx context.Context, id uuid.UUID) (database.VoidRequest, error)
	HasUnresolvedVoidRequest(ctx context.Context, orderID uuid.UUID) (bool, error)
	ListUnresolvedVoidRequests(ctx context.Context) ([]database.VoidRequest, error)
	ResolveVoidRequest(ctx context.Context, arg database.ResolveVoidRequestParams) (database.VoidRequest, error)
	CreateTransferRequest(ctx context.Context, tabID, requesterID, newOwnerID uuid.UUID) (database.TransferRequest, error)
	GetTransferRequest(ctx context.Context, id uuid.UUID) (database.TransferRequest, error)
	TabHasTransferRequest(ctx context.Context, tabID uuid.UUID) (bool, error)
	ListTransferRequests(ctx context.Context) ([]database.TransferRequest, error)
	DeleteTransferRequest(ctx context.Context, id uuid.UUID) (database.TransferRequest, error)
}

// NewWorkflowStore creates a WorkflowStore from a DBTX (pool or tx).
type NewWorkflowStore func(db database.DBTX) WorkflowStore

// WorkflowService runs the void and transfer approval workflows.
// Notifications go out after the transaction commits and are
// best-effort only.
type WorkflowService struct {
	pool     TxBeginner
	newStore NewWorkflowStore
	notifier notify.Notifier
}

func NewWorkflowService(pool TxBeginner, newStore NewWorkflowStore, notifier notify.Notifier) *WorkflowService {
	return &WorkflowService{pool: pool, newStore: newStore, notifier: notifier}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SubmitVoidRequest files a waiter's request to void one of their own
// line items. Managers are notified; at most one unresolved request may
// exist per order.
func (s *WorkflowService) SubmitVoidRequest(ctx context.Context, orderID, waiterID uuid.UUID) (database.VoidRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.VoidRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	order, err := store.GetOrderDetail(ctx, orderID)
	if err != nil {
		return database.VoidRequest{}, notFound(err, "order")
	}
	if order.State == enum.OrderStateVoided {
		return database.VoidRequest{}, fmt.Errorf("order is already voided: %w", ErrInvalidState)
	}
	if !order.TabOwnerID.Valid || order.TabOwnerID.UUID != waiterID {
		return database.VoidRequest{}, fmt.Errorf("order belongs to another waiter's tab: %w", ErrPermission)
	}

	pending, err := store.HasUnresolvedVoidRequest(ctx, orderID)
	if err != nil {
		return database.VoidRequest{}, fmt.Errorf("check pending requests: %w", err)
	}
	if pending {
		return database.VoidRequest{}, fmt.Errorf("order already has a pending void request: %w", ErrConflict)
	}

	waiter, err := store.GetUser(ctx, waiterID)
	if err != nil {
		return database.VoidRequest{}, notFound(err, "waiter")
	}

	request, err := store.CreateVoidRequest(ctx, orderID, waiterID)
	if err != nil {
		if isUniqueViolation(err) {
			return database.VoidRequest{}, fmt.Errorf("order already has a pending void request: %w", ErrConflict)
		}
		return database.VoidRequest{}, fmt.Errorf("create void request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return database.VoidRequest{}, fmt.Errorf("commit: %w", err)
	}

	s.notifier.NotifyRole(ctx, enum.RoleManager, notify.Event{
		Type: enum.EventVoidRequestCreated,
		Payload: map[string]any{
			"request_id": request.ID,
			"order_id":   orderID,
			"product":    order.ProductName,
			"tab":        order.TabName,
			"waiter":     waiter.Name(),
		},
	})
	return request, nil
}

// ResolveVoidRequest approves or rejects a pending void request.
// Approval cascades into voiding the order. A request resolves exactly
// once; a second resolver gets a conflict.
func (s *WorkflowService) ResolveVoidRequest(ctx context.Context, requestID, managerID uuid.UUID, approve bool) (database.VoidRequest, error) {
	resolution := enum.ResolutionRejected
	if approve {
		resolution = enum.ResolutionApproved
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.VoidRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	request, err := store.ResolveVoidRequest(ctx, database.ResolveVoidRequestParams{
		ID:         requestID,
		Resolution: resolution,
		ManagerID:  managerID,
		ResolvedAt: time.Now().UTC(),
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.VoidRequest{}, fmt.Errorf("resolve void request: %w", err)
		}
		if _, getErr := store.GetVoidRequest(ctx, requestID); getErr != nil {
			return database.VoidRequest{}, notFound(getErr, "void request")
		}
		return database.VoidRequest{}, fmt.Errorf("void request already resolved: %w", ErrConflict)
	}

	if approve {
		if _, err := voidOrder(ctx, store, request.OrderID); err != nil {
			return database.VoidRequest{}, err
		}
	}

	// The waiter's client deep-links back to where the order lives.
	order, err := store.GetOrderDetail(ctx, request.OrderID)
	if err != nil {
		return database.VoidRequest{}, fmt.Errorf("get order: %w", err)
	}
	link := "/waiter/tabs/" + order.TabID.String()
	if _, err := store.GetTempTabOwner(ctx, order.TabID); err == nil {
		link = "/waiter/direct"
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.VoidRequest{}, fmt.Errorf("get direct tab owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.VoidRequest{}, fmt.Errorf("commit: %w", err)
	}

	s.notifier.NotifyUser(ctx, request.WaiterID.String(), notify.Event{
		Type: enum.EventVoidRequestResolved,
		Payload: map[string]any{
			"request_id": request.ID,
			"order_id":   request.OrderID,
			"product":    order.ProductName,
			"resolution": resolution,
			"link":       link,
		},
	})
	return request, nil
}

// SubmitTransferRequest files a request to move a tab between waiters.
// A transfer is the owner handing the tab to someone else; a claim is a
// waiter asking for a tab they do not own. Managers are notified and
// resolve it.
func (s *WorkflowService) SubmitTransferRequest(ctx context.Context, tabID, requesterID, newOwnerID uuid.UUID) (database.TransferRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TransferRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	tab, err := store.GetTab(ctx, tabID)
	if err != nil {
		return database.TransferRequest{}, notFound(err, "tab")
	}
	if tab.State != enum.TabStateOpen {
		return database.TransferRequest{}, fmt.Errorf("tab is %s: %w", tab.State, ErrInvalidState)
	}
	if _, err := store.GetTempTabOwner(ctx, tabID); err == nil {
		return database.TransferRequest{}, fmt.Errorf("direct tabs cannot be transferred: %w", ErrValidation)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.TransferRequest{}, fmt.Errorf("get direct tab owner: %w", err)
	}

	claim := requesterID == newOwnerID
	if claim {
		if !tab.OwnerID.Valid {
			return database.TransferRequest{}, fmt.Errorf("tab has no owner to claim from: %w", ErrValidation)
		}
		if tab.OwnerID.UUID == requesterID {
			return database.TransferRequest{}, fmt.Errorf("cannot claim your own tab: %w", ErrValidation)
		}
	} else if !tab.OwnerID.Valid || tab.OwnerID.UUID != requesterID {
		return database.TransferRequest{}, fmt.Errorf("only the owner can transfer a tab: %w", ErrPermission)
	}

	newOwner, err := store.GetUser(ctx, newOwnerID)
	if err != nil {
		return database.TransferRequest{}, notFound(err, "new owner")
	}
	if !newOwner.IsWaiter {
		return database.TransferRequest{}, fmt.Errorf("new owner must be a waiter: %w", ErrValidation)
	}
	requester, err := store.GetUser(ctx, requesterID)
	if err != nil {
		return database.TransferRequest{}, notFound(err, "requester")
	}

	pending, err := store.TabHasTransferRequest(ctx, tabID)
	if err != nil {
		return database.TransferRequest{}, fmt.Errorf("check pending requests: %w", err)
	}
	if pending {
		return database.TransferRequest{}, fmt.Errorf("tab already has a pending transfer request: %w", ErrConflict)
	}

	request, err := store.CreateTransferRequest(ctx, tabID, requesterID, newOwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return database.TransferRequest{}, fmt.Errorf("tab already has a pending transfer request: %w", ErrConflict)
		}
		return database.TransferRequest{}, fmt.Errorf("create transfer request: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return database.TransferRequest{}, fmt.Errorf("commit: %w", err)
	}

	s.notifier.NotifyRole(ctx, enum.RoleManager, notify.Event{
		Type: enum.EventTransferRequestCreated,
		Payload: map[string]any{
			"request_id": request.ID,
			"tab_id":     tabID,
			"tab":        tab.Name,
			"requester":  requester.Name(),
			"new_owner":  newOwner.Name(),
			"claim":      claim,
		},
	})
	return request, nil
}

// ResolveTransferRequest approves or rejects a pending transfer.
// Approval reassigns the tab and notifies both owners; rejection goes
// back to the requester. The request row is deleted either way.
func (s *WorkflowService) ResolveTransferRequest(ctx context.Context, requestID, managerID uuid.UUID, approve bool) (database.TransferRequest, error) {
	resolution := enum.ResolutionRejected
	if approve {
		resolution = enum.ResolutionApproved
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TransferRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	store := s.newStore(tx)

	request, err := store.GetTransferRequest(ctx, requestID)
	if err != nil {
		return database.TransferRequest{}, notFound(err, "transfer request")
	}
	tab, err := store.GetTab(ctx, request.TabID)
	if err != nil {
		return database.TransferRequest{}, notFound(err, "tab")
	}

	previousOwner := tab.OwnerID

	if _, err := store.DeleteTransferRequest(ctx, requestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TransferRequest{}, fmt.Errorf("transfer request already resolved: %w", ErrConflict)
		}
		return database.TransferRequest{}, fmt.Errorf("delete transfer request: %w", err)
	}

	if approve {
		if _, err := changeOwner(ctx, store, request.TabID, request.NewOwnerID); err != nil {
			return database.TransferRequest{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return database.TransferRequest{}, fmt.Errorf("commit: %w", err)
	}

	event := notify.Event{
		Type: enum.EventTransferRequestResolved,
		Payload: map[string]any{
			"request_id": request.ID,
			"tab_id":     request.TabID,
			"tab":        tab.Name,
			"resolution": resolution,
		},
	}
	if approve {
		s.notifier.NotifyUser(ctx, request.NewOwnerID.String(), event)
		if previousOwner.Valid && previousOwner.UUID != request.NewOwnerID {
			s.notifier.NotifyUser(ctx, previousOwner.UUID.String(), event)
		}
	} else {
		s.notifier.NotifyUser(ctx, request.RequesterID.String(), event)
	}
	return request, nil
}

// PendingVoidRequests lists unresolved void requests for manager review.
func (s *WorkflowService) PendingVoidRequests(ctx context.Context) ([]database.VoidRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	requests, err := s.newStore(tx).ListUnresolvedVoidRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list void requests: %w", err)
	}
	return requests, tx.Commit(ctx)
}

// PendingTransferRequests lists outstanding transfer requests.
func (s *WorkflowService) PendingTransferRequests(ctx context.Context) ([]database.TransferRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	requests, err := s.newStore(tx).ListTransferRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transfer requests: %w", err)
	}
	return requests, tx.Commit(ctx)
}
