package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/enum"
)

type workflowFixture struct {
	store   *fakeStore
	svc     *WorkflowService
	sink    *recordingNotifier
	waiter  database.User
	other   database.User
	manager database.User
	tab     database.Tab
	order   database.Order
}

func seedWorkflow(t *testing.T) workflowFixture {
	t.Helper()
	store := newFakeStore()
	fx := workflowFixture{
		store:   store,
		waiter:  store.addUser(database.User{Username: "ana", FirstName: "Ana", IsWaiter: true}),
		other:   store.addUser(database.User{Username: "ben", FirstName: "Ben", IsWaiter: true}),
		manager: store.addUser(database.User{Username: "mia", IsManager: true}),
	}
	product := store.addProduct("pilsner", "3.500", true)
	tabSvc := newTestTabService(store)
	ctx := context.Background()

	tab, err := tabSvc.Open(ctx, "table 4", fx.waiter.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	orders, err := tabSvc.PlaceOrders(ctx, PlaceOrdersRequest{TabID: tab.ID, ProductID: product.ID, Count: 1})
	if err != nil {
		t.Fatalf("PlaceOrders: %v", err)
	}
	fx.tab = tab
	fx.order = orders[0]
	fx.svc, fx.sink = newTestWorkflowService(store)
	return fx
}

func TestSubmitVoidRequestNotifiesManagers(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	request, err := fx.svc.SubmitVoidRequest(ctx, fx.order.ID, fx.waiter.ID)
	if err != nil {
		t.Fatalf("SubmitVoidRequest: %v", err)
	}
	if request.Resolution != nil {
		t.Fatal("new request must be unresolved")
	}

	events := fx.sink.roleEvents[enum.RoleManager]
	if len(events) != 1 || events[0].Type != enum.EventVoidRequestCreated {
		t.Fatalf("managers not notified: %v", events)
	}

	pending, _ := fx.svc.PendingVoidRequests(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}
}

func TestSubmitVoidRequestRules(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	// Another waiter's order.
	if _, err := fx.svc.SubmitVoidRequest(ctx, fx.order.ID, fx.other.ID); !errors.Is(err, ErrPermission) {
		t.Fatalf("foreign order: expected permission error, got %v", err)
	}
	// Unknown order.
	if _, err := fx.svc.SubmitVoidRequest(ctx, uuid.New(), fx.waiter.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown order: expected not found, got %v", err)
	}

	if _, err := fx.svc.SubmitVoidRequest(ctx, fx.order.ID, fx.waiter.ID); err != nil {
		t.Fatalf("SubmitVoidRequest: %v", err)
	}
	// One unresolved request per order.
	if _, err := fx.svc.SubmitVoidRequest(ctx, fx.order.ID, fx.waiter.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: expected conflict, got %v", err)
	}

	// A voided order cannot be requested at all.
	tabSvc := newTestTabService(fx.store)
	orderSvc := newTestOrderService(fx.store)
	product := fx.store.addProduct("stout", "4.000", true)
	orders, err := tabSvc.PlaceOrders(ctx, PlaceOrdersRequest{TabID: fx.tab.ID, ProductID: product.ID, Count: 1})
	if err != nil {
		t.Fatalf("PlaceOrders: %v", err)
	}
	if _, err := orderSvc.Void(ctx, orders[0].ID); err != nil {
		t.Fatalf("Void: %v", err)
	}
	if _, err := fx.svc.SubmitVoidRequest(ctx, orders[0].ID, fx.waiter.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("voided order: expected invalid state, got %v", err)
	}
}

func TestApproveVoidRequestCascades(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	request, _ := fx.svc.SubmitVoidRequest(ctx, fx.order.ID, fx.waiter.ID)

	resolved, err := fx.svc.ResolveVoidRequest(ctx, request.ID, fx.manager.ID, true)
	if err != nil {
		t.Fatalf("ResolveVoidRequest: %v", err)
	}
	if resolved.ID != request.ID {
		t.Fatal("wrong request resolved")
	}

	// The request is retained with its resolution.
	stored, _ := fx.store.GetVoidRequest(ctx, request.ID)
	if stored.Resolution == nil || *stored.Resolution != enum.ResolutionApproved {
		t.Fatal("resolution not recorded")
	}
	if !stored.ManagerID.Valid || stored.ManagerID.UUID != fx.manager.ID {
		t.Fatal("resolving manager not recorded")
	}

	order, _ := fx.store.GetOrder(ctx, fx.order.ID)
	if order.State != enum.OrderStateVoided {
		t.Fatal("approval must void the order")
	}

	events := fx.sink.userEvents[fx.waiter.ID.String()]
	if len(events) != 1 || events[0].Type != enum.EventVoidRequestResolved {
		t.Fatalf("waiter not notified: %v", events)
	}
	payload := events[0].Payload.(map[string]any)
	if payload["link"] != "/waiter/tabs/"+fx.tab.ID.String() {
		t.Errorf("unexpected deep link %v", payload["link"])
	}
}

func TestRejectVoidRequestLeavesOrderAlone(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	request, _ := fx.svc.SubmitVoidRequest(ctx, fx.order.ID, fx.waiter.ID)
	if _, err := fx.svc.ResolveVoidRequest(ctx, request.ID, fx.manager.ID, false); err != nil {
		t.Fatalf("ResolveVoidRequest: %v", err)
	}

	order, _ := fx.store.GetOrder(ctx, fx.order.ID)
	if order.State == enum.OrderStateVoided {
		t.Fatal("rejection must not void the order")
	}
	stored, _ := fx.store.GetVoidRequest(ctx, request.ID)
	if stored.Resolution == nil || *stored.Resolution != enum.ResolutionRejected {
		t.Fatal("resolution not recorded")
	}
}

func TestResolveVoidRequestExactlyOnce(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	request, _ := fx.svc.SubmitVoidRequest(ctx, fx.order.ID, fx.waiter.ID)
	if _, err := fx.svc.ResolveVoidRequest(ctx, request.ID, fx.manager.ID, false); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	// A second manager racing to approve gets a conflict, and the order
	// stays untouched.
	if _, err := fx.svc.ResolveVoidRequest(ctx, request.ID, fx.manager.ID, true); !errors.Is(err, ErrConflict) {
		t.Fatalf("second resolve: expected conflict, got %v", err)
	}
	order, _ := fx.store.GetOrder(ctx, fx.order.ID)
	if order.State == enum.OrderStateVoided {
		t.Fatal("lost resolver must not void the order")
	}

	if _, err := fx.svc.ResolveVoidRequest(ctx, uuid.New(), fx.manager.ID, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown request: expected not found, got %v", err)
	}
}

func TestVoidRequestDeepLinkForDirectTab(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()
	tabSvc := newTestTabService(fx.store)
	product := fx.store.addProduct("stout", "4.000", true)

	direct, err := tabSvc.OpenDirect(ctx, fx.waiter.ID)
	if err != nil {
		t.Fatalf("OpenDirect: %v", err)
	}
	orders, err := tabSvc.PlaceOrders(ctx, PlaceOrdersRequest{TabID: direct.ID, ProductID: product.ID, Count: 1})
	if err != nil {
		t.Fatalf("PlaceOrders: %v", err)
	}

	request, err := fx.svc.SubmitVoidRequest(ctx, orders[0].ID, fx.waiter.ID)
	if err != nil {
		t.Fatalf("SubmitVoidRequest: %v", err)
	}
	if _, err := fx.svc.ResolveVoidRequest(ctx, request.ID, fx.manager.ID, true); err != nil {
		t.Fatalf("ResolveVoidRequest: %v", err)
	}

	events := fx.sink.userEvents[fx.waiter.ID.String()]
	payload := events[len(events)-1].Payload.(map[string]any)
	if payload["link"] != "/waiter/direct" {
		t.Errorf("expected direct deep link, got %v", payload["link"])
	}
}

func TestSubmitTransferRequest(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	request, err := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.waiter.ID, fx.other.ID)
	if err != nil {
		t.Fatalf("SubmitTransferRequest: %v", err)
	}
	if request.NewOwnerID != fx.other.ID {
		t.Fatal("wrong new owner")
	}

	// Managers arbitrate transfers, so the manager group is notified.
	events := fx.sink.roleEvents[enum.RoleManager]
	if len(events) != 1 || events[0].Type != enum.EventTransferRequestCreated {
		t.Fatalf("managers not notified: %v", events)
	}
	payload := events[0].Payload.(map[string]any)
	if payload["claim"] != false {
		t.Errorf("expected claim=false, got %v", payload["claim"])
	}

	// One outstanding request per tab.
	if _, err := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.waiter.ID, fx.other.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: expected conflict, got %v", err)
	}
}

func TestSubmitTransferRequestRules(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	// Only the owner can hand a tab off.
	if _, err := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.other.ID, fx.manager.ID); !errors.Is(err, ErrPermission) {
		t.Fatalf("non-owner transfer: expected permission error, got %v", err)
	}
	// Claiming your own tab is meaningless.
	if _, err := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.waiter.ID, fx.waiter.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("self claim: expected validation error, got %v", err)
	}
	// The new owner must be a waiter.
	if _, err := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.waiter.ID, fx.manager.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("manager owner: expected validation error, got %v", err)
	}

	// Direct tabs stay with their waiter.
	tabSvc := newTestTabService(fx.store)
	direct, _ := tabSvc.OpenDirect(ctx, fx.waiter.ID)
	if _, err := fx.svc.SubmitTransferRequest(ctx, direct.ID, fx.waiter.ID, fx.other.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("direct tab: expected validation error, got %v", err)
	}
}

func TestApproveTransferReassignsTab(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	request, _ := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.waiter.ID, fx.other.ID)

	if _, err := fx.svc.ResolveTransferRequest(ctx, request.ID, fx.manager.ID, true); err != nil {
		t.Fatalf("ResolveTransferRequest: %v", err)
	}

	tab, _ := fx.store.GetTab(ctx, fx.tab.ID)
	if !tab.OwnerID.Valid || tab.OwnerID.UUID != fx.other.ID {
		t.Fatal("tab not reassigned")
	}
	// Resolved requests are deleted, not archived.
	if _, err := fx.store.GetTransferRequest(ctx, request.ID); err == nil {
		t.Fatal("request should be deleted on resolution")
	}
	// Both sides of the handoff hear about it.
	newOwnerEvents := fx.sink.userEvents[fx.other.ID.String()]
	if len(newOwnerEvents) != 1 || newOwnerEvents[0].Type != enum.EventTransferRequestResolved {
		t.Fatalf("new owner not notified: %v", newOwnerEvents)
	}
	prevOwnerEvents := fx.sink.userEvents[fx.waiter.ID.String()]
	if len(prevOwnerEvents) != 1 || prevOwnerEvents[0].Type != enum.EventTransferRequestResolved {
		t.Fatalf("previous owner not notified: %v", prevOwnerEvents)
	}

	if _, err := fx.svc.ResolveTransferRequest(ctx, request.ID, fx.manager.ID, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("re-resolve: expected not found, got %v", err)
	}
}

func TestApproveClaimNotifiesBothWaiters(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	// Ben claims Ana's tab.
	request, err := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.other.ID, fx.other.ID)
	if err != nil {
		t.Fatalf("SubmitTransferRequest: %v", err)
	}
	events := fx.sink.roleEvents[enum.RoleManager]
	if len(events) != 1 || events[0].Type != enum.EventTransferRequestCreated {
		t.Fatalf("managers not notified: %v", events)
	}
	if payload := events[0].Payload.(map[string]any); payload["claim"] != true {
		t.Errorf("expected claim=true, got %v", payload["claim"])
	}

	if _, err := fx.svc.ResolveTransferRequest(ctx, request.ID, fx.manager.ID, true); err != nil {
		t.Fatalf("ResolveTransferRequest: %v", err)
	}
	tab, _ := fx.store.GetTab(ctx, fx.tab.ID)
	if !tab.OwnerID.Valid || tab.OwnerID.UUID != fx.other.ID {
		t.Fatal("claim approval must reassign the tab")
	}
	// Ana loses the tab and Ben gains it; both are told.
	if events := fx.sink.userEvents[fx.waiter.ID.String()]; len(events) != 1 {
		t.Fatalf("previous owner not notified: %v", events)
	}
	if events := fx.sink.userEvents[fx.other.ID.String()]; len(events) != 1 {
		t.Fatalf("new owner not notified: %v", events)
	}
}

func TestRejectTransferKeepsOwner(t *testing.T) {
	fx := seedWorkflow(t)
	ctx := context.Background()

	request, _ := fx.svc.SubmitTransferRequest(ctx, fx.tab.ID, fx.waiter.ID, fx.other.ID)
	if _, err := fx.svc.ResolveTransferRequest(ctx, request.ID, fx.manager.ID, false); err != nil {
		t.Fatalf("ResolveTransferRequest: %v", err)
	}

	tab, _ := fx.store.GetTab(ctx, fx.tab.ID)
	if !tab.OwnerID.Valid || tab.OwnerID.UUID != fx.waiter.ID {
		t.Fatal("rejection must keep the original owner")
	}
	if pending, _ := fx.svc.PendingTransferRequests(ctx); len(pending) != 0 {
		t.Fatal("rejected request should be deleted")
	}
	// Only the requester hears about a rejection.
	events := fx.sink.userEvents[fx.waiter.ID.String()]
	if len(events) != 1 || events[0].Type != enum.EventTransferRequestResolved {
		t.Fatalf("requester not notified: %v", events)
	}
	if events := fx.sink.userEvents[fx.other.ID.String()]; len(events) != 0 {
		t.Fatalf("prospective owner should not be notified on reject: %v", events)
	}
}
