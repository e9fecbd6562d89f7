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

// TillServicer is the slice of the till service the handlers use.
type TillServicer interface {
	OpenFromDeposit(ctx context.Context, depositID uuid.UUID, cashierIDs []uuid.UUID) (database.Till, error)
	Stop(ctx context.Context, tillID uuid.UUID) (database.Till, error)
	Count(ctx context.Context, tillID, countedBy uuid.UUID, entries []service.CountEntry) (database.Till, []uuid.UUID, error)
	AddEdit(ctx context.Context, countID uuid.UUID, amount decimal.Decimal, reason string) (database.TillEdit, bool, error)
	Summary(ctx context.Context, tillID uuid.UUID) ([]service.CountSummary, error)
	ChangeCount(ctx context.Context, tillID uuid.UUID) (database.TillMoneyCount, error)
	Get(ctx context.Context, id uuid.UUID) (database.Till, error)
	ListByState(ctx context.Context, state string) ([]database.Till, error)
	Edits(ctx context.Context, countID uuid.UUID) ([]database.TillEdit, error)
	Cashiers(ctx context.Context, tillID uuid.UUID) ([]database.User, error)
}

type TillHandler struct {
	svc TillServicer
}

func NewTillHandler(svc TillServicer) *TillHandler {
	return &TillHandler{svc: svc}
}

// RegisterRoutes registers till endpoints on the given Chi router.
func (h *TillHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/summary", h.Summary)
	r.Get("/{id}/change-count", h.ChangeCount)
	r.Get("/{id}/cashiers", h.Cashiers)
	r.Post("/{id}/stop", h.Stop)
	r.Post("/{id}/count", h.Count)
	r.Get("/counts/{countID}/edits", h.Edits)
	r.Post("/counts/{countID}/edits", h.AddEdit)
}

type openTillRequest struct {
	DepositID  string   `json:"deposit_id"`
	CashierIDs []string `json:"cashier_ids"`
}

// Open spawns a till from a deposit template and assigns its cashiers.
func (h *TillHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openTillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	depositID, err := uuid.Parse(req.DepositID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deposit_id")
		return
	}
	if len(req.CashierIDs) == 0 {
		writeError(w, http.StatusBadRequest, "cashier_ids are required")
		return
	}
	cashierIDs := make([]uuid.UUID, 0, len(req.CashierIDs))
	for _, raw := range req.CashierIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cashier id "+raw)
			return
		}
		cashierIDs = append(cashierIDs, id)
	}

	till, err := h.svc.OpenFromDeposit(r.Context(), depositID, cashierIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, till)
}

func (h *TillHandler) List(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = enum.TillStateOpen
	}
	tills, err := h.svc.ListByState(r.Context(), state)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tills)
}

func (h *TillHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid till id")
		return
	}
	till, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, till)
}

// Stop halts sales on the till so it can be counted.
func (h *TillHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid till id")
		return
	}
	till, err := h.svc.Stop(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, till)
}

type countTillRequest struct {
	Entries []countEntryRequest `json:"entries"`
}

type countEntryRequest struct {
	CountID string `json:"count_id"`
	Amount  string `json:"amount"`
}

type countTillResponse struct {
	Till            database.Till `json:"till"`
	ClampedCountIDs []uuid.UUID   `json:"clamped_count_ids,omitempty"`
}

// Count records the counted amount for every money count and closes
// the till. Negative entries are clamped to zero and reported back.
func (h *TillHandler) Count(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid till id")
		return
	}
	var req countTillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entries := make([]service.CountEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		countID, err := uuid.Parse(entry.CountID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid count id "+entry.CountID)
			return
		}
		amount, err := decimal.NewFromString(entry.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount for count "+entry.CountID)
			return
		}
		entries = append(entries, service.CountEntry{CountID: countID, Amount: amount})
	}

	claims := middleware.ClaimsFromContext(r.Context())
	till, clamped, err := h.svc.Count(r.Context(), id, claims.UserID, entries)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countTillResponse{Till: till, ClampedCountIDs: clamped})
}

func (h *TillHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid till id")
		return
	}
	summary, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *TillHandler) ChangeCount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid till id")
		return
	}
	count, err := h.svc.ChangeCount(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, count)
}

func (h *TillHandler) Cashiers(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid till id")
		return
	}
	cashiers, err := h.svc.Cashiers(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cashiers)
}

func (h *TillHandler) Edits(w http.ResponseWriter, r *http.Request) {
	countID, err := uuid.Parse(chi.URLParam(r, "countID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid count id")
		return
	}
	edits, err := h.svc.Edits(r.Context(), countID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edits)
}

type addEditRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

type addEditResponse struct {
	Edit    database.TillEdit `json:"edit"`
	Clamped bool              `json:"clamped"`
}

// AddEdit adjusts a counted amount. A withdrawal past zero is clamped
// and reported back so the client can surface it.
func (h *TillHandler) AddEdit(w http.ResponseWriter, r *http.Request) {
	countID, err := uuid.Parse(chi.URLParam(r, "countID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid count id")
		return
	}
	var req addEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	edit, clamped, err := h.svc.AddEdit(r.Context(), countID, amount, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addEditResponse{Edit: edit, Clamped: clamped})
}
