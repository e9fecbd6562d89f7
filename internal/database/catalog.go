package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Currencies ---

const createCurrency = `
INSERT INTO currencies (name, code, symbol, subunit, ratio, enabled)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, code, symbol, subunit, ratio, enabled`

type CreateCurrencyParams struct {
	Name    string
	Code    *string
	Symbol  *string
	Subunit string
	Ratio   decimal.Decimal
	Enabled bool
}

func (q *Queries) CreateCurrency(ctx context.Context, arg CreateCurrencyParams) (Currency, error) {
	var c Currency
	err := q.db.QueryRow(ctx, createCurrency,
		arg.Name, arg.Code, arg.Symbol, arg.Subunit, arg.Ratio, arg.Enabled,
	).Scan(&c.ID, &c.Name, &c.Code, &c.Symbol, &c.Subunit, &c.Ratio, &c.Enabled)
	return c, err
}

const listCurrencies = `SELECT id, name, code, symbol, subunit, ratio, enabled FROM currencies ORDER BY name`

func (q *Queries) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := q.db.Query(ctx, listCurrencies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Symbol, &c.Subunit, &c.Ratio, &c.Enabled); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Payment methods ---

const createPaymentMethod = `
INSERT INTO payment_methods (name, currency_id, change_allowed, enabled)
VALUES ($1, $2, $3, $4)
RETURNING id, name, currency_id, change_allowed, enabled`

type CreatePaymentMethodParams struct {
	Name          string
	CurrencyID    uuid.UUID
	ChangeAllowed bool
	Enabled       bool
}

func (q *Queries) CreatePaymentMethod(ctx context.Context, arg CreatePaymentMethodParams) (PaymentMethod, error) {
	var m PaymentMethod
	err := q.db.QueryRow(ctx, createPaymentMethod,
		arg.Name, arg.CurrencyID, arg.ChangeAllowed, arg.Enabled,
	).Scan(&m.ID, &m.Name, &m.CurrencyID, &m.ChangeAllowed, &m.Enabled)
	return m, err
}

const getPaymentMethodDetail = `
SELECT pm.id, pm.name, pm.currency_id, pm.change_allowed, pm.enabled,
       c.ratio, c.enabled, (pm.enabled AND c.enabled)
FROM payment_methods pm
JOIN currencies c ON c.id = pm.currency_id
WHERE pm.id = $1`

func (q *Queries) GetPaymentMethodDetail(ctx context.Context, id uuid.UUID) (PaymentMethodDetail, error) {
	var d PaymentMethodDetail
	err := q.db.QueryRow(ctx, getPaymentMethodDetail, id).Scan(
		&d.ID, &d.Name, &d.CurrencyID, &d.ChangeAllowed, &d.Enabled,
		&d.CurrencyRatio, &d.CurrencyEnabled, &d.EffectiveEnabled,
	)
	return d, err
}

const listPaymentMethods = `
SELECT pm.id, pm.name, pm.currency_id, pm.change_allowed, pm.enabled,
       c.ratio, c.enabled, (pm.enabled AND c.enabled)
FROM payment_methods pm
JOIN currencies c ON c.id = pm.currency_id
ORDER BY pm.name`

func (q *Queries) ListPaymentMethods(ctx context.Context) ([]PaymentMethodDetail, error) {
	rows, err := q.db.Query(ctx, listPaymentMethods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentMethodDetail
	for rows.Next() {
		var d PaymentMethodDetail
		if err := rows.Scan(
			&d.ID, &d.Name, &d.CurrencyID, &d.ChangeAllowed, &d.Enabled,
			&d.CurrencyRatio, &d.CurrencyEnabled, &d.EffectiveEnabled,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Unit groups / units / items ---

const createUnitGroup = `INSERT INTO unit_groups (name, symbol) VALUES ($1, $2) RETURNING id, name, symbol`

func (q *Queries) CreateUnitGroup(ctx context.Context, name, symbol string) (UnitGroup, error) {
	var g UnitGroup
	err := q.db.QueryRow(ctx, createUnitGroup, name, symbol).Scan(&g.ID, &g.Name, &g.Symbol)
	return g, err
}

const createUnit = `
INSERT INTO units (group_id, name, symbol, ratio) VALUES ($1, $2, $3, $4)
RETURNING id, group_id, name, symbol, ratio`

type CreateUnitParams struct {
	GroupID uuid.UUID
	Name    string
	Symbol  string
	Ratio   decimal.Decimal
}

func (q *Queries) CreateUnit(ctx context.Context, arg CreateUnitParams) (Unit, error) {
	var u Unit
	err := q.db.QueryRow(ctx, createUnit, arg.GroupID, arg.Name, arg.Symbol, arg.Ratio).
		Scan(&u.ID, &u.GroupID, &u.Name, &u.Symbol, &u.Ratio)
	return u, err
}

const createItem = `
INSERT INTO items (name, unit_group_id, allows_fractions) VALUES ($1, $2, $3)
RETURNING id, name, unit_group_id, allows_fractions`

type CreateItemParams struct {
	Name            string
	UnitGroupID     uuid.UUID
	AllowsFractions bool
}

func (q *Queries) CreateItem(ctx context.Context, arg CreateItemParams) (Item, error) {
	var i Item
	err := q.db.QueryRow(ctx, createItem, arg.Name, arg.UnitGroupID, arg.AllowsFractions).
		Scan(&i.ID, &i.Name, &i.UnitGroupID, &i.AllowsFractions)
	return i, err
}

const getItem = `SELECT id, name, unit_group_id, allows_fractions FROM items WHERE id = $1`

func (q *Queries) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	var i Item
	err := q.db.QueryRow(ctx, getItem, id).Scan(&i.ID, &i.Name, &i.UnitGroupID, &i.AllowsFractions)
	return i, err
}

// --- Products ---

const createProduct = `
INSERT INTO products (name, price, enabled) VALUES ($1, $2, $3)
RETURNING id, name, price, enabled`

type CreateProductParams struct {
	Name    string
	Price   decimal.Decimal
	Enabled bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, createProduct, arg.Name, arg.Price, arg.Enabled).
		Scan(&p.ID, &p.Name, &p.Price, &p.Enabled)
	return p, err
}

const getProduct = `SELECT id, name, price, enabled FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, getProduct, id).Scan(&p.ID, &p.Name, &p.Price, &p.Enabled)
	return p, err
}

const listProducts = `SELECT id, name, price, enabled FROM products ORDER BY name`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Enabled); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const updateProduct = `
UPDATE products SET name = $2, price = $3, enabled = $4 WHERE id = $1
RETURNING id, name, price, enabled`

type UpdateProductParams struct {
	ID      uuid.UUID
	Name    string
	Price   decimal.Decimal
	Enabled bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.Name, arg.Price, arg.Enabled).
		Scan(&p.ID, &p.Name, &p.Price, &p.Enabled)
	return p, err
}

const addProductItem = `
INSERT INTO product_items (product_id, item_id, amount) VALUES ($1, $2, $3)
RETURNING product_id, item_id, amount`

type AddProductItemParams struct {
	ProductID uuid.UUID
	ItemID    uuid.UUID
	Amount    decimal.Decimal
}

func (q *Queries) AddProductItem(ctx context.Context, arg AddProductItemParams) (ProductItem, error) {
	var pi ProductItem
	err := q.db.QueryRow(ctx, addProductItem, arg.ProductID, arg.ItemID, arg.Amount).
		Scan(&pi.ProductID, &pi.ItemID, &pi.Amount)
	return pi, err
}

// --- Deposit templates ---

const createDeposit = `
INSERT INTO deposits (name, change_method_id, deposit_amount, enabled)
VALUES ($1, $2, $3, $4)
RETURNING id, name, change_method_id, deposit_amount, enabled`

type CreateDepositParams struct {
	Name           string
	ChangeMethodID uuid.UUID
	DepositAmount  decimal.Decimal
	Enabled        bool
}

func (q *Queries) CreateDeposit(ctx context.Context, arg CreateDepositParams) (Deposit, error) {
	var d Deposit
	err := q.db.QueryRow(ctx, createDeposit,
		arg.Name, arg.ChangeMethodID, arg.DepositAmount, arg.Enabled,
	).Scan(&d.ID, &d.Name, &d.ChangeMethodID, &d.DepositAmount, &d.Enabled)
	return d, err
}

const addDepositMethod = `INSERT INTO deposit_methods (deposit_id, payment_method_id) VALUES ($1, $2)`

func (q *Queries) AddDepositMethod(ctx context.Context, depositID, methodID uuid.UUID) error {
	_, err := q.db.Exec(ctx, addDepositMethod, depositID, methodID)
	return err
}

const getDeposit = `SELECT id, name, change_method_id, deposit_amount, enabled FROM deposits WHERE id = $1`

func (q *Queries) GetDeposit(ctx context.Context, id uuid.UUID) (Deposit, error) {
	var d Deposit
	err := q.db.QueryRow(ctx, getDeposit, id).
		Scan(&d.ID, &d.Name, &d.ChangeMethodID, &d.DepositAmount, &d.Enabled)
	return d, err
}

const listDeposits = `SELECT id, name, change_method_id, deposit_amount, enabled FROM deposits ORDER BY name`

func (q *Queries) ListDeposits(ctx context.Context) ([]Deposit, error) {
	rows, err := q.db.Query(ctx, listDeposits)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Deposit
	for rows.Next() {
		var d Deposit
		if err := rows.Scan(&d.ID, &d.Name, &d.ChangeMethodID, &d.DepositAmount, &d.Enabled); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const listDepositMethodIDs = `SELECT payment_method_id FROM deposit_methods WHERE deposit_id = $1`

func (q *Queries) ListDepositMethodIDs(ctx context.Context, depositID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listDepositMethodIDs, depositID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
