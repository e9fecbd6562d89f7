package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/barpos/api/internal/database"
)

// CatalogStore defines the database methods needed by the reference
// catalog handlers. Catalog writes are single statements, so these run
// straight against the pool.
type CatalogStore interface {
	CreateCurrency(ctx context.Context, arg database.CreateCurrencyParams) (database.Currency, error)
	ListCurrencies(ctx context.Context) ([]database.Currency, error)
	CreatePaymentMethod(ctx context.Context, arg database.CreatePaymentMethodParams) (database.PaymentMethod, error)
	GetPaymentMethodDetail(ctx context.Context, id uuid.UUID) (database.PaymentMethodDetail, error)
	ListPaymentMethods(ctx context.Context) ([]database.PaymentMethodDetail, error)
	CreateUnitGroup(ctx context.Context, name, symbol string) (database.UnitGroup, error)
	CreateUnit(ctx context.Context, arg database.CreateUnitParams) (database.Unit, error)
	CreateItem(ctx context.Context, arg database.CreateItemParams) (database.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	AddProductItem(ctx context.Context, arg database.AddProductItemParams) (database.ProductItem, error)
	CreateDeposit(ctx context.Context, arg database.CreateDepositParams) (database.Deposit, error)
	AddDepositMethod(ctx context.Context, depositID, methodID uuid.UUID) error
	GetDeposit(ctx context.Context, id uuid.UUID) (database.Deposit, error)
	ListDeposits(ctx context.Context) ([]database.Deposit, error)
	ListDepositMethodIDs(ctx context.Context, depositID uuid.UUID) ([]uuid.UUID, error)
}

// CatalogHandler handles the reference data: currencies, payment
// methods, units, items, products, and deposit templates.
type CatalogHandler struct {
	store CatalogStore
}

func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Post("/currencies", h.CreateCurrency)
	r.Get("/currencies", h.ListCurrencies)
	r.Post("/payment-methods", h.CreatePaymentMethod)
	r.Get("/payment-methods", h.ListPaymentMethods)
	r.Get("/payment-methods/{id}", h.GetPaymentMethod)
	r.Post("/unit-groups", h.CreateUnitGroup)
	r.Post("/units", h.CreateUnit)
	r.Post("/items", h.CreateItem)
	r.Post("/products", h.CreateProduct)
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Put("/products/{id}", h.UpdateProduct)
	r.Post("/products/{id}/items", h.AddProductItem)
	r.Post("/deposits", h.CreateDeposit)
	r.Get("/deposits", h.ListDeposits)
	r.Get("/deposits/{id}", h.GetDeposit)
}

// --- Currencies ---

type createCurrencyRequest struct {
	Name    string  `json:"name"`
	Code    *string `json:"code"`
	Symbol  *string `json:"symbol"`
	Subunit string  `json:"subunit"`
	Ratio   string  `json:"ratio"`
	Enabled bool    `json:"enabled"`
}

func (h *CatalogHandler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	var req createCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Subunit == "" {
		writeError(w, http.StatusBadRequest, "name and subunit are required")
		return
	}
	ratio, err := decimal.NewFromString(req.Ratio)
	if err != nil || !ratio.IsPositive() {
		writeError(w, http.StatusBadRequest, "ratio must be a positive decimal")
		return
	}

	currency, err := h.store.CreateCurrency(r.Context(), database.CreateCurrencyParams{
		Name:    req.Name,
		Code:    req.Code,
		Symbol:  req.Symbol,
		Subunit: req.Subunit,
		Ratio:   ratio,
		Enabled: req.Enabled,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, currency)
}

func (h *CatalogHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.store.ListCurrencies(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, currencies)
}

// --- Payment methods ---

type createPaymentMethodRequest struct {
	Name          string `json:"name"`
	CurrencyID    string `json:"currency_id"`
	ChangeAllowed bool   `json:"change_allowed"`
	Enabled       bool   `json:"enabled"`
}

func (h *CatalogHandler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req createPaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid currency_id")
		return
	}

	method, err := h.store.CreatePaymentMethod(r.Context(), database.CreatePaymentMethodParams{
		Name:          req.Name,
		CurrencyID:    currencyID,
		ChangeAllowed: req.ChangeAllowed,
		Enabled:       req.Enabled,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, method)
}

func (h *CatalogHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.store.ListPaymentMethods(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, methods)
}

func (h *CatalogHandler) GetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment method id")
		return
	}
	method, err := h.store.GetPaymentMethodDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "payment method not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, method)
}

// --- Units and items ---

type createUnitGroupRequest struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

func (h *CatalogHandler) CreateUnitGroup(w http.ResponseWriter, r *http.Request) {
	var req createUnitGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "name and symbol are required")
		return
	}
	group, err := h.store.CreateUnitGroup(r.Context(), req.Name, req.Symbol)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

type createUnitRequest struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Ratio   string `json:"ratio"`
}

func (h *CatalogHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group_id")
		return
	}
	ratio, err := decimal.NewFromString(req.Ratio)
	if err != nil || !ratio.IsPositive() {
		writeError(w, http.StatusBadRequest, "ratio must be a positive decimal")
		return
	}
	unit, err := h.store.CreateUnit(r.Context(), database.CreateUnitParams{
		GroupID: groupID,
		Name:    req.Name,
		Symbol:  req.Symbol,
		Ratio:   ratio,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

type createItemRequest struct {
	Name            string `json:"name"`
	UnitGroupID     string `json:"unit_group_id"`
	AllowsFractions bool   `json:"allows_fractions"`
}

func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.UnitGroupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid unit_group_id")
		return
	}
	item, err := h.store.CreateItem(r.Context(), database.CreateItemParams{
		Name:            req.Name,
		UnitGroupID:     groupID,
		AllowsFractions: req.AllowsFractions,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// --- Products ---

type productRequest struct {
	Name    string `json:"name"`
	Price   string `json:"price"`
	Enabled bool   `json:"enabled"`
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return
	}
	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:    req.Name,
		Price:   price.Round(3),
		Enabled: req.Enabled,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return
	}
	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:      id,
		Name:    req.Name,
		Price:   price.Round(3),
		Enabled: req.Enabled,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type addProductItemRequest struct {
	ItemID string `json:"item_id"`
	Amount string `json:"amount"`
}

// AddProductItem links a stock item to a product recipe.
func (h *CatalogHandler) AddProductItem(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req addProductItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item_id")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must be a non-negative decimal")
		return
	}

	// Fractional amounts only when the item allows them.
	item, err := h.store.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	if !item.AllowsFractions && !amount.Equal(amount.Truncate(0)) {
		writeError(w, http.StatusBadRequest, "item does not allow fractional amounts")
		return
	}

	link, err := h.store.AddProductItem(r.Context(), database.AddProductItemParams{
		ProductID: productID,
		ItemID:    itemID,
		Amount:    amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// --- Deposits ---

type createDepositRequest struct {
	Name           string   `json:"name"`
	ChangeMethodID string   `json:"change_method_id"`
	DepositAmount  string   `json:"deposit_amount"`
	Enabled        bool     `json:"enabled"`
	MethodIDs      []string `json:"method_ids"`
}

type depositResponse struct {
	database.Deposit
	MethodIDs []uuid.UUID `json:"method_ids"`
}

// CreateDeposit creates a till template. The change method must be one
// of the template's methods and must allow change.
func (h *CatalogHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || len(req.MethodIDs) == 0 {
		writeError(w, http.StatusBadRequest, "name and method_ids are required")
		return
	}
	changeMethodID, err := uuid.Parse(req.ChangeMethodID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid change_method_id")
		return
	}
	amount, err := decimal.NewFromString(req.DepositAmount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "deposit_amount must be a non-negative decimal")
		return
	}

	methodIDs := make([]uuid.UUID, 0, len(req.MethodIDs))
	containsChange := false
	for _, raw := range req.MethodIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid method id "+raw)
			return
		}
		if id == changeMethodID {
			containsChange = true
		}
		methodIDs = append(methodIDs, id)
	}
	if !containsChange {
		writeError(w, http.StatusBadRequest, "change method must be in method_ids")
		return
	}

	change, err := h.store.GetPaymentMethodDetail(r.Context(), changeMethodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "change method not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	if !change.ChangeAllowed {
		writeError(w, http.StatusBadRequest, "change method must allow change")
		return
	}

	deposit, err := h.store.CreateDeposit(r.Context(), database.CreateDepositParams{
		Name:           req.Name,
		ChangeMethodID: changeMethodID,
		DepositAmount:  amount.Round(3),
		Enabled:        req.Enabled,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	for _, id := range methodIDs {
		if err := h.store.AddDepositMethod(r.Context(), deposit.ID, id); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, depositResponse{Deposit: deposit, MethodIDs: methodIDs})
}

func (h *CatalogHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.store.ListDeposits(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

func (h *CatalogHandler) GetDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deposit id")
		return
	}
	deposit, err := h.store.GetDeposit(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "deposit not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	methodIDs, err := h.store.ListDepositMethodIDs(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depositResponse{Deposit: deposit, MethodIDs: methodIDs})
}
