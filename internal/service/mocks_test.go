package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/enum"
	"github.com/barpos/api/internal/notify"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// fakeStore is an in-memory implementation of every service store
// interface. The store surfaces are too wide for per-test function
// mocks, so scenario tests share this fixture instead.
type fakeStore struct {
	users     map[uuid.UUID]database.User
	products  map[uuid.UUID]database.Product
	methods   map[uuid.UUID]database.PaymentMethodDetail
	deposits  map[uuid.UUID]database.Deposit
	depMeths  map[uuid.UUID][]uuid.UUID
	tabs      map[uuid.UUID]database.Tab
	orders    map[uuid.UUID]database.Order
	payments  []database.Payment
	tills     map[uuid.UUID]database.Till
	cashiers  map[uuid.UUID][]uuid.UUID
	counts    map[uuid.UUID]database.TillMoneyCount
	edits     []database.TillEdit
	voidReqs  map[uuid.UUID]database.VoidRequest
	transfers map[uuid.UUID]database.TransferRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[uuid.UUID]database.User),
		products:  make(map[uuid.UUID]database.Product),
		methods:   make(map[uuid.UUID]database.PaymentMethodDetail),
		deposits:  make(map[uuid.UUID]database.Deposit),
		depMeths:  make(map[uuid.UUID][]uuid.UUID),
		tabs:      make(map[uuid.UUID]database.Tab),
		orders:    make(map[uuid.UUID]database.Order),
		tills:     make(map[uuid.UUID]database.Till),
		cashiers:  make(map[uuid.UUID][]uuid.UUID),
		counts:    make(map[uuid.UUID]database.TillMoneyCount),
		voidReqs:  make(map[uuid.UUID]database.VoidRequest),
		transfers: make(map[uuid.UUID]database.TransferRequest),
	}
}

// --- Fixture builders ---

func (f *fakeStore) addUser(u database.User) database.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addProduct(name, price string, enabled bool) database.Product {
	p := database.Product{ID: uuid.New(), Name: name, Price: dec(price), Enabled: enabled}
	f.products[p.ID] = p
	return p
}

func (f *fakeStore) addMethod(name, ratio string, changeAllowed, enabled bool) database.PaymentMethodDetail {
	d := database.PaymentMethodDetail{
		PaymentMethod: database.PaymentMethod{
			ID:            uuid.New(),
			Name:          name,
			ChangeAllowed: changeAllowed,
			Enabled:       enabled,
		},
		CurrencyRatio:    dec(ratio),
		CurrencyEnabled:  true,
		EffectiveEnabled: enabled,
	}
	f.methods[d.ID] = d
	return d
}

func (f *fakeStore) addTill(state string, changeMethodID uuid.UUID, deposit string) database.Till {
	t := database.Till{
		ID:             uuid.New(),
		State:          state,
		ChangeMethodID: changeMethodID,
		DepositAmount:  dec(deposit),
		OpenedAt:       time.Now().UTC(),
	}
	f.tills[t.ID] = t
	return t
}

func (f *fakeStore) addCount(tillID, methodID uuid.UUID) database.TillMoneyCount {
	c := database.TillMoneyCount{ID: uuid.New(), TillID: tillID, PaymentMethodID: methodID, Amount: decimal.Zero}
	f.counts[c.ID] = c
	return c
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- Users ---

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (database.User, error) {
	u, ok := f.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) SetCurrentTill(ctx context.Context, userID uuid.UUID, tillID uuid.NullUUID) error {
	u := f.users[userID]
	u.CurrentTillID = tillID
	f.users[userID] = u
	return nil
}

func (f *fakeStore) ClearCurrentTillForTill(ctx context.Context, tillID uuid.UUID) error {
	for id, u := range f.users {
		if u.CurrentTillID.Valid && u.CurrentTillID.UUID == tillID {
			u.CurrentTillID = uuid.NullUUID{}
			f.users[id] = u
		}
	}
	return nil
}

func (f *fakeStore) SetCurrentTempTab(ctx context.Context, userID uuid.UUID, tabID uuid.NullUUID) error {
	u := f.users[userID]
	u.CurrentTempTabID = tabID
	f.users[userID] = u
	return nil
}

func (f *fakeStore) GetTempTabOwner(ctx context.Context, tabID uuid.UUID) (database.User, error) {
	for _, u := range f.users {
		if u.CurrentTempTabID.Valid && u.CurrentTempTabID.UUID == tabID {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

// --- Catalog ---

func (f *fakeStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) GetDeposit(ctx context.Context, id uuid.UUID) (database.Deposit, error) {
	d, ok := f.deposits[id]
	if !ok {
		return database.Deposit{}, pgx.ErrNoRows
	}
	return d, nil
}

func (f *fakeStore) ListDepositMethodIDs(ctx context.Context, depositID uuid.UUID) ([]uuid.UUID, error) {
	return f.depMeths[depositID], nil
}

// --- Tabs ---

func (f *fakeStore) CreateTab(ctx context.Context, name string, ownerID uuid.UUID) (database.Tab, error) {
	t := database.Tab{
		ID:       uuid.New(),
		Name:     name,
		State:    enum.TabStateOpen,
		OwnerID:  uuid.NullUUID{UUID: ownerID, Valid: true},
		OpenedAt: time.Now().UTC(),
	}
	f.tabs[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetTab(ctx context.Context, id uuid.UUID) (database.Tab, error) {
	t, ok := f.tabs[id]
	if !ok {
		return database.Tab{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeStore) GetTabForUpdate(ctx context.Context, id uuid.UUID) (database.Tab, error) {
	return f.GetTab(ctx, id)
}

func (f *fakeStore) ListTabsByState(ctx context.Context, state string) ([]database.Tab, error) {
	var out []database.Tab
	for _, t := range f.tabs {
		if t.State == state {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTabOwner(ctx context.Context, id, ownerID uuid.UUID) (database.Tab, error) {
	t, ok := f.tabs[id]
	if !ok {
		return database.Tab{}, pgx.ErrNoRows
	}
	t.OwnerID = uuid.NullUUID{UUID: ownerID, Valid: true}
	f.tabs[id] = t
	return t, nil
}

func (f *fakeStore) MarkTabPaid(ctx context.Context, id uuid.UUID, closedAt time.Time) (database.Tab, error) {
	t, ok := f.tabs[id]
	if !ok || t.State != enum.TabStateOpen {
		return database.Tab{}, pgx.ErrNoRows
	}
	t.State = enum.TabStatePaid
	t.ClosedAt = &closedAt
	f.tabs[id] = t
	return t, nil
}

func (f *fakeStore) SumTabOrders(ctx context.Context, tabID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range f.orders {
		if o.TabID == tabID && o.State != enum.OrderStateVoided {
			sum = sum.Add(o.Price)
		}
	}
	return sum, nil
}

func (f *fakeStore) SumTabPayments(ctx context.Context, tabID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range f.payments {
		if p.TabID != tabID {
			continue
		}
		method := f.methods[f.counts[p.CountID].PaymentMethodID]
		sum = sum.Add(p.Amount.Mul(method.CurrencyRatio))
	}
	return sum, nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	p := database.Payment{
		ID:        uuid.New(),
		TabID:     arg.TabID,
		CountID:   arg.CountID,
		Amount:    arg.Amount,
		CreatedAt: time.Now().UTC(),
	}
	f.payments = append(f.payments, p)
	return p, nil
}

func (f *fakeStore) ListPaymentsByTab(ctx context.Context, tabID uuid.UUID) ([]database.Payment, error) {
	var out []database.Payment
	for _, p := range f.payments {
		if p.TabID == tabID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Orders ---

func (f *fakeStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	o := database.Order{
		ID:          uuid.New(),
		TabID:       arg.TabID,
		ProductID:   arg.ProductID,
		State:       arg.State,
		Price:       arg.Price,
		Note:        arg.Note,
		OrderedAt:   arg.OrderedAt,
		PreparingAt: arg.PreparingAt,
		PreparedAt:  arg.PreparedAt,
		ServedAt:    arg.ServedAt,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeStore) GetOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetail, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.OrderDetail{}, pgx.ErrNoRows
	}
	tab := f.tabs[o.TabID]
	return database.OrderDetail{
		Order:       o,
		ProductName: f.products[o.ProductID].Name,
		TabName:     tab.Name,
		TabOwnerID:  tab.OwnerID,
	}, nil
}

func (f *fakeStore) ListOrdersByTab(ctx context.Context, tabID uuid.UUID) ([]database.Order, error) {
	var out []database.Order
	for _, o := range f.orders {
		if o.TabID == tabID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) markOrder(id uuid.UUID, from, to string, set func(*database.Order, time.Time)) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.State != from {
		return database.Order{}, pgx.ErrNoRows
	}
	o.State = to
	set(&o, time.Now().UTC())
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) MarkOrderPreparing(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error) {
	return f.markOrder(id, enum.OrderStateOrdered, enum.OrderStatePreparing, func(o *database.Order, t time.Time) {
		o.PreparingAt = &t
	})
}

func (f *fakeStore) MarkOrderToServe(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error) {
	return f.markOrder(id, enum.OrderStatePreparing, enum.OrderStateToServe, func(o *database.Order, t time.Time) {
		o.PreparedAt = &t
	})
}

func (f *fakeStore) MarkOrderServed(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error) {
	return f.markOrder(id, enum.OrderStateToServe, enum.OrderStateServed, func(o *database.Order, t time.Time) {
		o.ServedAt = &t
	})
}

func (f *fakeStore) VoidOrder(ctx context.Context, id uuid.UUID, at time.Time) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.State == enum.OrderStateVoided {
		return database.Order{}, pgx.ErrNoRows
	}
	o.State = enum.OrderStateVoided
	o.VoidedAt = &at
	f.orders[id] = o
	return o, nil
}

// --- Tills ---

func (f *fakeStore) CreateTill(ctx context.Context, changeMethodID uuid.UUID, depositAmount decimal.Decimal) (database.Till, error) {
	t := database.Till{
		ID:             uuid.New(),
		State:          enum.TillStateOpen,
		ChangeMethodID: changeMethodID,
		DepositAmount:  depositAmount,
		OpenedAt:       time.Now().UTC(),
	}
	f.tills[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetTill(ctx context.Context, id uuid.UUID) (database.Till, error) {
	t, ok := f.tills[id]
	if !ok {
		return database.Till{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeStore) ListTillsByState(ctx context.Context, state string) ([]database.Till, error) {
	var out []database.Till
	for _, t := range f.tills {
		if t.State == state {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) StopTill(ctx context.Context, id uuid.UUID, at time.Time) (database.Till, error) {
	t, ok := f.tills[id]
	if !ok || t.State != enum.TillStateOpen {
		return database.Till{}, pgx.ErrNoRows
	}
	t.State = enum.TillStateStopped
	t.StoppedAt = &at
	f.tills[id] = t
	return t, nil
}

func (f *fakeStore) CloseTill(ctx context.Context, id uuid.UUID, at time.Time, countedBy uuid.UUID) (database.Till, error) {
	t, ok := f.tills[id]
	if !ok || t.State != enum.TillStateStopped {
		return database.Till{}, pgx.ErrNoRows
	}
	t.State = enum.TillStateCounted
	t.CountedAt = &at
	t.CountedBy = uuid.NullUUID{UUID: countedBy, Valid: true}
	f.tills[id] = t
	return t, nil
}

func (f *fakeStore) AddTillCashier(ctx context.Context, tillID, userID uuid.UUID) error {
	f.cashiers[tillID] = append(f.cashiers[tillID], userID)
	return nil
}

func (f *fakeStore) ListTillCashiers(ctx context.Context, tillID uuid.UUID) ([]database.User, error) {
	var out []database.User
	for _, id := range f.cashiers[tillID] {
		out = append(out, f.users[id])
	}
	return out, nil
}

func (f *fakeStore) CreateMoneyCount(ctx context.Context, tillID, methodID uuid.UUID) (database.TillMoneyCount, error) {
	return f.addCount(tillID, methodID), nil
}

func (f *fakeStore) GetMoneyCountDetail(ctx context.Context, id uuid.UUID) (database.MoneyCountDetail, error) {
	c, ok := f.counts[id]
	if !ok {
		return database.MoneyCountDetail{}, pgx.ErrNoRows
	}
	m := f.methods[c.PaymentMethodID]
	return database.MoneyCountDetail{
		TillMoneyCount: c,
		MethodName:     m.Name,
		MethodEnabled:  m.EffectiveEnabled,
		ChangeAllowed:  m.ChangeAllowed,
		CurrencyRatio:  m.CurrencyRatio,
	}, nil
}

func (f *fakeStore) GetMoneyCountForUpdate(ctx context.Context, id uuid.UUID) (database.TillMoneyCount, error) {
	c, ok := f.counts[id]
	if !ok {
		return database.TillMoneyCount{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) ListMoneyCountsByTill(ctx context.Context, tillID uuid.UUID) ([]database.TillMoneyCount, error) {
	var out []database.TillMoneyCount
	for _, c := range f.counts {
		if c.TillID == tillID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) SetMoneyCountAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (database.TillMoneyCount, error) {
	c, ok := f.counts[id]
	if !ok {
		return database.TillMoneyCount{}, pgx.ErrNoRows
	}
	c.Amount = amount
	f.counts[id] = c
	return c, nil
}

func (f *fakeStore) GetChangeCountForTill(ctx context.Context, tillID uuid.UUID) (database.TillMoneyCount, error) {
	till, ok := f.tills[tillID]
	if !ok {
		return database.TillMoneyCount{}, pgx.ErrNoRows
	}
	for _, c := range f.counts {
		if c.TillID == tillID && c.PaymentMethodID == till.ChangeMethodID {
			return c, nil
		}
	}
	return database.TillMoneyCount{}, pgx.ErrNoRows
}

func (f *fakeStore) SumMoneyCountPayments(ctx context.Context, countID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range f.payments {
		if p.CountID == countID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (f *fakeStore) SumMoneyCountEdits(ctx context.Context, countID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range f.edits {
		if e.CountID == countID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (f *fakeStore) CreateTillEdit(ctx context.Context, arg database.CreateTillEditParams) (database.TillEdit, error) {
	e := database.TillEdit{
		ID:        uuid.New(),
		CountID:   arg.CountID,
		Amount:    arg.Amount,
		Reason:    arg.Reason,
		CreatedAt: time.Now().UTC(),
	}
	f.edits = append(f.edits, e)
	return e, nil
}

func (f *fakeStore) ListTillEditsByCount(ctx context.Context, countID uuid.UUID) ([]database.TillEdit, error) {
	var out []database.TillEdit
	for _, e := range f.edits {
		if e.CountID == countID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Requests ---

func (f *fakeStore) CreateVoidRequest(ctx context.Context, orderID, waiterID uuid.UUID) (database.VoidRequest, error) {
	for _, r := range f.voidReqs {
		if r.OrderID == orderID && r.Resolution == nil {
			return database.VoidRequest{}, &pgconn.PgError{Code: "23505"}
		}
	}
	r := database.VoidRequest{
		ID:          uuid.New(),
		OrderID:     orderID,
		WaiterID:    waiterID,
		RequestedAt: time.Now().UTC(),
	}
	f.voidReqs[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetVoidRequest(ctx context.Context, id uuid.UUID) (database.VoidRequest, error) {
	r, ok := f.voidReqs[id]
	if !ok {
		return database.VoidRequest{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) HasUnresolvedVoidRequest(ctx context.Context, orderID uuid.UUID) (bool, error) {
	for _, r := range f.voidReqs {
		if r.OrderID == orderID && r.Resolution == nil {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListUnresolvedVoidRequests(ctx context.Context) ([]database.VoidRequest, error) {
	var out []database.VoidRequest
	for _, r := range f.voidReqs {
		if r.Resolution == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ResolveVoidRequest(ctx context.Context, arg database.ResolveVoidRequestParams) (database.VoidRequest, error) {
	r, ok := f.voidReqs[arg.ID]
	if !ok || r.Resolution != nil {
		return database.VoidRequest{}, pgx.ErrNoRows
	}
	resolution := arg.Resolution
	resolvedAt := arg.ResolvedAt
	r.Resolution = &resolution
	r.ResolvedAt = &resolvedAt
	r.ManagerID = uuid.NullUUID{UUID: arg.ManagerID, Valid: true}
	f.voidReqs[arg.ID] = r
	return r, nil
}

func (f *fakeStore) CreateTransferRequest(ctx context.Context, tabID, requesterID, newOwnerID uuid.UUID) (database.TransferRequest, error) {
	for _, r := range f.transfers {
		if r.TabID == tabID {
			return database.TransferRequest{}, &pgconn.PgError{Code: "23505"}
		}
	}
	r := database.TransferRequest{
		ID:          uuid.New(),
		TabID:       tabID,
		RequesterID: requesterID,
		NewOwnerID:  newOwnerID,
		RequestedAt: time.Now().UTC(),
	}
	f.transfers[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetTransferRequest(ctx context.Context, id uuid.UUID) (database.TransferRequest, error) {
	r, ok := f.transfers[id]
	if !ok {
		return database.TransferRequest{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) TabHasTransferRequest(ctx context.Context, tabID uuid.UUID) (bool, error) {
	for _, r := range f.transfers {
		if r.TabID == tabID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListTransferRequests(ctx context.Context) ([]database.TransferRequest, error) {
	var out []database.TransferRequest
	for _, r := range f.transfers {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) DeleteTransferRequest(ctx context.Context, id uuid.UUID) (database.TransferRequest, error) {
	r, ok := f.transfers[id]
	if !ok {
		return database.TransferRequest{}, pgx.ErrNoRows
	}
	delete(f.transfers, id)
	return r, nil
}

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	mu         sync.Mutex
	userEvents map[string][]notify.Event
	roleEvents map[string][]notify.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		userEvents: make(map[string][]notify.Event),
		roleEvents: make(map[string][]notify.Event),
	}
}

func (r *recordingNotifier) NotifyUser(ctx context.Context, userID string, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userEvents[userID] = append(r.userEvents[userID], event)
}

func (r *recordingNotifier) NotifyRole(ctx context.Context, role string, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roleEvents[role] = append(r.roleEvents[role], event)
}

// --- Service constructors over the fake ---

func newTestTabService(store *fakeStore) *TabService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewTabService(pool, func(db database.DBTX) TabStore { return store })
}

func newTestOrderService(store *fakeStore) *OrderService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewOrderService(pool, func(db database.DBTX) OrderStore { return store })
}

func newTestTillService(store *fakeStore) *TillService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewTillService(pool, func(db database.DBTX) TillStore { return store })
}

func newTestWorkflowService(store *fakeStore) (*WorkflowService, *recordingNotifier) {
	pool := &mockTxBeginner{tx: &mockTx{}}
	notifier := newRecordingNotifier()
	return NewWorkflowService(pool, func(db database.DBTX) WorkflowStore { return store }, notifier), notifier
}
