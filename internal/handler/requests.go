package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/middleware"
)

// WorkflowServicer is the slice of the approval workflow service the
// handlers use.
type WorkflowServicer interface {
	SubmitVoidRequest(ctx context.Context, orderID, waiterID uuid.UUID) (database.VoidRequest, error)
	ResolveVoidRequest(ctx context.Context, requestID, managerID uuid.UUID, approve bool) (database.VoidRequest, error)
	SubmitTransferRequest(ctx context.Context, tabID, requesterID, newOwnerID uuid.UUID) (database.TransferRequest, error)
	ResolveTransferRequest(ctx context.Context, requestID, managerID uuid.UUID, approve bool) (database.TransferRequest, error)
	PendingVoidRequests(ctx context.Context) ([]database.VoidRequest, error)
	PendingTransferRequests(ctx context.Context) ([]database.TransferRequest, error)
}

type RequestHandler struct {
	svc WorkflowServicer
}

func NewRequestHandler(svc WorkflowServicer) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// RegisterRoutes registers the approval workflow endpoints on the
// given Chi router. Submission and listing are open to any waiter;
// resolution is routed separately behind the manager role.
func (h *RequestHandler) RegisterRoutes(r chi.Router) {
	r.Post("/void", h.SubmitVoid)
	r.Get("/void", h.ListVoid)
	r.Post("/transfer", h.SubmitTransfer)
	r.Get("/transfer", h.ListTransfer)
}

// RegisterManagerRoutes registers void and transfer resolution for
// managers.
func (h *RequestHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/void/{id}/approve", h.ApproveVoid)
	r.Post("/void/{id}/reject", h.RejectVoid)
	r.Post("/transfer/{id}/approve", h.ApproveTransfer)
	r.Post("/transfer/{id}/reject", h.RejectTransfer)
}

type submitVoidRequest struct {
	OrderID string `json:"order_id"`
}

// SubmitVoid files a void request for one of the caller's own orders.
func (h *RequestHandler) SubmitVoid(w http.ResponseWriter, r *http.Request) {
	var req submitVoidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	request, err := h.svc.SubmitVoidRequest(r.Context(), orderID, claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *RequestHandler) ListVoid(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.PendingVoidRequests(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *RequestHandler) ApproveVoid(w http.ResponseWriter, r *http.Request) {
	h.resolveVoid(w, r, true)
}

func (h *RequestHandler) RejectVoid(w http.ResponseWriter, r *http.Request) {
	h.resolveVoid(w, r, false)
}

func (h *RequestHandler) resolveVoid(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	request, err := h.svc.ResolveVoidRequest(r.Context(), id, claims.UserID, approve)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

type submitTransferRequest struct {
	TabID      string `json:"tab_id"`
	NewOwnerID string `json:"new_owner_id"`
}

// SubmitTransfer asks to move a tab to a new owner. When the caller
// names themselves as the new owner it is a claim of an unowned or
// abandoned tab; either way a manager resolves it.
func (h *RequestHandler) SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	var req submitTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tabID, err := uuid.Parse(req.TabID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab_id")
		return
	}
	newOwnerID, err := uuid.Parse(req.NewOwnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_owner_id")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	request, err := h.svc.SubmitTransferRequest(r.Context(), tabID, claims.UserID, newOwnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *RequestHandler) ListTransfer(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.PendingTransferRequests(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *RequestHandler) ApproveTransfer(w http.ResponseWriter, r *http.Request) {
	h.resolveTransfer(w, r, true)
}

func (h *RequestHandler) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	h.resolveTransfer(w, r, false)
}

func (h *RequestHandler) resolveTransfer(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	request, err := h.svc.ResolveTransferRequest(r.Context(), id, claims.UserID, approve)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
