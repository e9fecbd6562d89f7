package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID               uuid.UUID     `json:"id"`
	Username         string        `json:"username"`
	PasswordHash     string        `json:"-"`
	FirstName        string        `json:"first_name"`
	LastName         string        `json:"last_name"`
	MobilePhone      string        `json:"mobile_phone"`
	IsWaiter         bool          `json:"is_waiter"`
	IsManager        bool          `json:"is_manager"`
	IsDirector       bool          `json:"is_director"`
	CurrentTillID    uuid.NullUUID `json:"current_till_id"`
	CurrentTempTabID uuid.NullUUID `json:"current_temp_tab_id"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Name is the display name used in notifications.
func (u User) Name() string {
	return u.FirstName + " " + u.LastName
}

type Currency struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Code    *string         `json:"code"`
	Symbol  *string         `json:"symbol"`
	Subunit string          `json:"subunit"`
	Ratio   decimal.Decimal `json:"ratio"`
	Enabled bool            `json:"enabled"`
}

type PaymentMethod struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	CurrencyID    uuid.UUID `json:"currency_id"`
	ChangeAllowed bool      `json:"change_allowed"`
	Enabled       bool      `json:"enabled"`
}

// PaymentMethodDetail joins the method with its currency. EffectiveEnabled is
// the method's own flag AND the currency's flag; payments check this one.
type PaymentMethodDetail struct {
	PaymentMethod
	CurrencyRatio    decimal.Decimal `json:"currency_ratio"`
	CurrencyEnabled  bool            `json:"currency_enabled"`
	EffectiveEnabled bool            `json:"effective_enabled"`
}

type UnitGroup struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Symbol string    `json:"symbol"`
}

type Unit struct {
	ID      uuid.UUID       `json:"id"`
	GroupID uuid.UUID       `json:"group_id"`
	Name    string          `json:"name"`
	Symbol  string          `json:"symbol"`
	Ratio   decimal.Decimal `json:"ratio"`
}

type Item struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	UnitGroupID     uuid.UUID `json:"unit_group_id"`
	AllowsFractions bool      `json:"allows_fractions"`
}

type Product struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Enabled bool            `json:"enabled"`
}

type ProductItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	ItemID    uuid.UUID       `json:"item_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type Deposit struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	ChangeMethodID uuid.UUID       `json:"change_method_id"`
	DepositAmount  decimal.Decimal `json:"deposit_amount"`
	Enabled        bool            `json:"enabled"`
}

type Tab struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	State    string        `json:"state"`
	OwnerID  uuid.NullUUID `json:"owner_id"`
	OpenedAt time.Time     `json:"opened_at"`
	ClosedAt *time.Time    `json:"closed_at"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	TabID       uuid.UUID       `json:"tab_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	State       string          `json:"state"`
	Price       decimal.Decimal `json:"price"`
	Note        *string         `json:"note"`
	OrderedAt   time.Time       `json:"ordered_at"`
	PreparingAt *time.Time      `json:"preparing_at"`
	PreparedAt  *time.Time      `json:"prepared_at"`
	ServedAt    *time.Time      `json:"served_at"`
	VoidedAt    *time.Time      `json:"voided_at"`
}

// OrderDetail carries the product and tab names needed by list views and
// notification payloads.
type OrderDetail struct {
	Order
	ProductName string        `json:"product_name"`
	TabName     string        `json:"tab_name"`
	TabOwnerID  uuid.NullUUID `json:"tab_owner_id"`
}

type Till struct {
	ID             uuid.UUID       `json:"id"`
	State          string          `json:"state"`
	ChangeMethodID uuid.UUID       `json:"change_method_id"`
	DepositAmount  decimal.Decimal `json:"deposit_amount"`
	OpenedAt       time.Time       `json:"opened_at"`
	StoppedAt      *time.Time      `json:"stopped_at"`
	CountedAt      *time.Time      `json:"counted_at"`
	CountedBy      uuid.NullUUID   `json:"counted_by"`
}

type TillMoneyCount struct {
	ID              uuid.UUID       `json:"id"`
	TillID          uuid.UUID       `json:"till_id"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
}

// MoneyCountDetail joins a count with its payment method and currency.
type MoneyCountDetail struct {
	TillMoneyCount
	MethodName    string          `json:"method_name"`
	MethodEnabled bool            `json:"method_enabled"`
	ChangeAllowed bool            `json:"change_allowed"`
	CurrencyRatio decimal.Decimal `json:"currency_ratio"`
}

type TillEdit struct {
	ID        uuid.UUID       `json:"id"`
	CountID   uuid.UUID       `json:"count_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

type Payment struct {
	ID        uuid.UUID       `json:"id"`
	TabID     uuid.UUID       `json:"tab_id"`
	CountID   uuid.UUID       `json:"count_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

type VoidRequest struct {
	ID          uuid.UUID     `json:"id"`
	OrderID     uuid.UUID     `json:"order_id"`
	WaiterID    uuid.UUID     `json:"waiter_id"`
	ManagerID   uuid.NullUUID `json:"manager_id"`
	RequestedAt time.Time     `json:"requested_at"`
	ResolvedAt  *time.Time    `json:"resolved_at"`
	Resolution  *string       `json:"resolution"`
}

type TransferRequest struct {
	ID          uuid.UUID     `json:"id"`
	TabID       uuid.UUID     `json:"tab_id"`
	RequesterID uuid.UUID     `json:"requester_id"`
	NewOwnerID  uuid.UUID     `json:"new_owner_id"`
	RequestedAt time.Time     `json:"requested_at"`
}
