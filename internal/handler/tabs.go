package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/enum"
	"github.com/barpos/api/internal/middleware"
	"github.com/barpos/api/internal/service"
)

// TabServicer is the slice of the tab service the handlers use.
type TabServicer interface {
	Open(ctx context.Context, name string, ownerID uuid.UUID) (database.Tab, error)
	OpenDirect(ctx context.Context, userID uuid.UUID) (database.Tab, error)
	PlaceOrders(ctx context.Context, req service.PlaceOrdersRequest) ([]database.Order, error)
	Totals(ctx context.Context, tabID uuid.UUID) (service.TabTotals, error)
	AddPayment(ctx context.Context, req service.AddPaymentRequest) (database.Payment, error)
	MarkPaid(ctx context.Context, tabID, cashierID uuid.UUID) (database.Tab, *database.Payment, error)
	ChangeOwner(ctx context.Context, tabID, newOwnerID uuid.UUID) (database.Tab, error)
	Get(ctx context.Context, id uuid.UUID) (database.Tab, error)
	ListByState(ctx context.Context, state string) ([]database.Tab, error)
	Orders(ctx context.Context, tabID uuid.UUID) ([]database.Order, error)
	Payments(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error)
}

type TabHandler struct {
	svc TabServicer
}

func NewTabHandler(svc TabServicer) *TabHandler {
	return &TabHandler{svc: svc}
}

// RegisterRoutes registers tab endpoints on the given Chi router.
func (h *TabHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Post("/direct", h.OpenDirect)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/totals", h.Totals)
	r.Get("/{id}/orders", h.Orders)
	r.Get("/{id}/payments", h.Payments)
	r.Post("/{id}/orders", h.PlaceOrders)
	r.Post("/{id}/payments", h.AddPayment)
	r.Post("/{id}/mark-paid", h.MarkPaid)
	r.Post("/{id}/change-owner", h.ChangeOwner)
}

type openTabRequest struct {
	Name string `json:"name"`
}

// Open creates a named tab owned by the caller.
func (h *TabHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	tab, err := h.svc.Open(r.Context(), req.Name, claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tab)
}

// OpenDirect returns the caller's temporary tab, creating one first if
// none is attached. Calling it twice yields the same tab.
func (h *TabHandler) OpenDirect(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	tab, err := h.svc.OpenDirect(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tab)
}

func (h *TabHandler) List(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = enum.TabStateOpen
	}
	tabs, err := h.svc.ListByState(r.Context(), state)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tabs)
}

func (h *TabHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	tab, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tab)
}

func (h *TabHandler) Totals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	totals, err := h.svc.Totals(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (h *TabHandler) Orders(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	orders, err := h.svc.Orders(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *TabHandler) Payments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	payments, err := h.svc.Payments(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

type placeOrdersRequest struct {
	ProductID string `json:"product_id"`
	Count     int    `json:"count"`
	Note      string `json:"note"`
	State     string `json:"state"`
}

// PlaceOrders adds count line items of one product to the tab. State
// defaults to ORDERED; direct sales pass SERVED.
func (h *TabHandler) PlaceOrders(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	var req placeOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product_id")
		return
	}
	if req.State == "" {
		req.State = enum.OrderStateOrdered
	}

	orders, err := h.svc.PlaceOrders(r.Context(), service.PlaceOrdersRequest{
		TabID:     tabID,
		ProductID: productID,
		Count:     req.Count,
		Note:      req.Note,
		State:     req.State,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orders)
}

type addPaymentRequest struct {
	CountID string `json:"count_id"`
	Amount  string `json:"amount"`
}

func (h *TabHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	countID, err := uuid.Parse(req.CountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid count_id")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	payment, err := h.svc.AddPayment(r.Context(), service.AddPaymentRequest{
		TabID:   tabID,
		CountID: countID,
		Amount:  amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

type markPaidResponse struct {
	Tab           database.Tab      `json:"tab"`
	ChangePayment *database.Payment `json:"change_payment,omitempty"`
}

// MarkPaid settles the tab as the calling cashier. Overpayment comes
// back as a change payment drawn from the cashier's current till.
func (h *TabHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	tab, change, err := h.svc.MarkPaid(r.Context(), tabID, claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, markPaidResponse{Tab: tab, ChangePayment: change})
}

type changeOwnerRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

func (h *TabHandler) ChangeOwner(w http.ResponseWriter, r *http.Request) {
	tabID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	var req changeOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	newOwnerID, err := uuid.Parse(req.NewOwnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_owner_id")
		return
	}
	tab, err := h.svc.ChangeOwner(r.Context(), tabID, newOwnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tab)
}
