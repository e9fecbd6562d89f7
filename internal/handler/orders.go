package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/barpos/api/internal/database"
)

// OrderServicer is the slice of the order service the handlers use.
type OrderServicer interface {
	Bump(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	BumpN(ctx context.Context, orderID uuid.UUID, n int) (database.Order, int, error)
	Void(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	Get(ctx context.Context, id uuid.UUID) (database.OrderDetail, error)
}

type OrderHandler struct {
	svc OrderServicer
}

func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Void is routed separately behind the manager role.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Post("/{id}/bump", h.Bump)
}

// RegisterManagerRoutes registers the endpoints that bypass the void
// request workflow.
func (h *OrderHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/{id}/void", h.Void)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type bumpRequest struct {
	Count int `json:"count"`
}

type bumpResponse struct {
	Order database.Order `json:"order"`
	Steps int            `json:"steps"`
}

// Bump advances the order one step in the prep pipeline, or count
// steps when the body asks for more. Advancing past SERVED stops
// without error.
func (h *OrderHandler) Bump(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	req := bumpRequest{Count: 1}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Count < 1 {
		writeError(w, http.StatusBadRequest, "count must be at least 1")
		return
	}

	if req.Count == 1 {
		order, err := h.svc.Bump(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bumpResponse{Order: order, Steps: 1})
		return
	}

	order, steps, err := h.svc.BumpN(r.Context(), id, req.Count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bumpResponse{Order: order, Steps: steps})
}

// Void cancels the order directly, without an approval request.
// Voiding an already voided order is a no-op.
func (h *OrderHandler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.svc.Void(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
