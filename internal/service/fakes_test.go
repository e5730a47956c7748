package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"delegate-portal/internal/models"
	"delegate-portal/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memDB backs the fake repositories. WithTx snapshots it and restores the
// snapshot when fn fails, which is what a rolled back transaction looks like
// to the service.
type memDB struct {
	mu sync.Mutex

	orders   map[uuid.UUID]models.Order
	items    map[uuid.UUID][]models.OrderItem
	payments []models.PaymentRecord
	wallets  map[uuid.UUID]decimal.Decimal
	txns     []models.CreditTransaction
	users    map[uuid.UUID]models.User
	catalog  map[string]models.CatalogItem

	failBulkCreate  error
	failPayment     error
	failCreditTxn   error
	casLosses       int
	casLossStatus   models.OrderStatus
	locks           int
	upserts         int
	failUpsert      error
	catalogLookups  int
	lastLookupCodes []string
}

func newMemDB() *memDB {
	return &memDB{
		orders:  map[uuid.UUID]models.Order{},
		items:   map[uuid.UUID][]models.OrderItem{},
		wallets: map[uuid.UUID]decimal.Decimal{},
		users:   map[uuid.UUID]models.User{},
		catalog: map[string]models.CatalogItem{},
	}
}

func newFakeRepo(db *memDB) *repository.Repository {
	r := &repository.Repository{
		Orders:     &fakeOrders{db: db},
		OrderItems: &fakeOrderItems{db: db},
		Payments:   &fakePayments{db: db},
		Wallets:    &fakeWallets{db: db},
		Users:      &fakeUsers{db: db},
		Catalog:    &fakeCatalog{db: db},
	}
	r.Tx = &fakeTx{db: db, repo: r}
	return r
}

type memSnapshot struct {
	orders   map[uuid.UUID]models.Order
	items    map[uuid.UUID][]models.OrderItem
	payments []models.PaymentRecord
	wallets  map[uuid.UUID]decimal.Decimal
	txns     []models.CreditTransaction
	users    map[uuid.UUID]models.User
}

func (m *memDB) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		orders:   make(map[uuid.UUID]models.Order, len(m.orders)),
		items:    make(map[uuid.UUID][]models.OrderItem, len(m.items)),
		payments: append([]models.PaymentRecord(nil), m.payments...),
		wallets:  make(map[uuid.UUID]decimal.Decimal, len(m.wallets)),
		txns:     append([]models.CreditTransaction(nil), m.txns...),
		users:    make(map[uuid.UUID]models.User, len(m.users)),
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	for k, v := range m.items {
		s.items[k] = append([]models.OrderItem(nil), v...)
	}
	for k, v := range m.wallets {
		s.wallets[k] = v
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	return s
}

func (m *memDB) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = s.orders
	m.items = s.items
	m.payments = s.payments
	m.wallets = s.wallets
	m.txns = s.txns
	m.users = s.users
}

func (m *memDB) balance(id uuid.UUID) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallets[id]
}

func (m *memDB) order(id uuid.UUID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memDB) addUser(email string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: uuid.New(), Email: email}
	m.users[u.ID] = u
	return u
}

func (m *memDB) addOrder(userID uuid.UUID, status models.OrderStatus, total string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      status,
		TotalAmount: decimal.RequireFromString(total),
		UpdatedBy:   userID.String(),
	}
	m.orders[o.ID] = o
	return o
}

type fakeTx struct {
	db   *memDB
	repo *repository.Repository
}

func (t *fakeTx) WithTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	snap := t.db.snapshot()
	if err := fn(t.repo); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type fakeOrders struct{ db *memDB }

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	stored := *o
	stored.Items = nil
	f.db.orders[o.ID] = stored
	return nil
}

func (f *fakeOrders) load(id uuid.UUID) *models.Order {
	o, ok := f.db.orders[id]
	if !ok {
		return nil
	}
	items := append([]models.OrderItem(nil), f.db.items[id]...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	o.Items = items
	return &o
}

func (f *fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.load(id), nil
}

func (f *fakeOrders) GetByIDForUser(_ context.Context, id, userID uuid.UUID) (*models.Order, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	o := f.load(id)
	if o == nil || o.UserID != userID {
		return nil, nil
	}
	return o, nil
}

func (f *fakeOrders) LockForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	f.db.mu.Lock()
	f.db.locks++
	f.db.mu.Unlock()
	return f.GetByIDForUser(ctx, id, userID)
}

func (f *fakeOrders) CompareAndSetStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus, updatedBy string, at time.Time) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	o, ok := f.db.orders[id]
	if !ok {
		return false, nil
	}
	if f.db.casLosses > 0 {
		// a concurrent writer moves the order first
		f.db.casLosses--
		o.Status = f.db.casLossStatus
		f.db.orders[id] = o
		return false, nil
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedBy = updatedBy
	o.LastStatusChange = at
	f.db.orders[id] = o
	return true, nil
}

func (f *fakeOrders) List(_ context.Context, flt repository.OrderListFilter) ([]*models.Order, int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []*models.Order
	for id, o := range f.db.orders {
		if flt.UserID != nil && o.UserID != *flt.UserID {
			continue
		}
		if flt.Status != nil && o.Status != *flt.Status {
			continue
		}
		out = append(out, f.load(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, int64(len(out)), nil
}

func (f *fakeOrders) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	_, ok := f.db.orders[id]
	return ok, nil
}

type fakeOrderItems struct{ db *memDB }

func (f *fakeOrderItems) BulkCreate(_ context.Context, items []models.OrderItem) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failBulkCreate != nil {
		return f.db.failBulkCreate
	}
	for _, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		f.db.items[it.OrderID] = append(f.db.items[it.OrderID], it)
	}
	return nil
}

func (f *fakeOrderItems) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]models.OrderItem(nil), f.db.items[orderID]...), nil
}

func (f *fakeOrderItems) CountByOrder(_ context.Context, orderID uuid.UUID) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.items[orderID])), nil
}

type fakePayments struct{ db *memDB }

func (f *fakePayments) Create(_ context.Context, p *models.PaymentRecord) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failPayment != nil {
		return f.db.failPayment
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.db.payments = append(f.db.payments, *p)
	return nil
}

func (f *fakePayments) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.PaymentRecord, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.PaymentRecord
	for _, p := range f.db.payments {
		if p.OrderID != nil && *p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayments) ListByUser(_ context.Context, userID uuid.UUID) ([]models.PaymentRecord, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.PaymentRecord
	for _, p := range f.db.payments {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayments) ListByGatewayPaymentID(_ context.Context, gateway models.PaymentGateway, paymentID string) ([]models.PaymentRecord, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.PaymentRecord
	for _, p := range f.db.payments {
		if p.Gateway == gateway && p.GatewayPaymentID == paymentID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeWallets struct{ db *memDB }

func (f *fakeWallets) GetAccount(_ context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &models.WalletAccount{UserID: userID, Credit: c}, nil
}

func (f *fakeWallets) TryDebit(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.wallets[userID]
	if !ok || c.LessThan(amount) {
		return false, nil
	}
	f.db.wallets[userID] = c.Sub(amount)
	return true, nil
}

func (f *fakeWallets) Credit(_ context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.wallets[userID] = f.db.wallets[userID].Add(amount)
	return nil
}

func (f *fakeWallets) CreateTransaction(_ context.Context, t *models.CreditTransaction) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.failCreditTxn != nil {
		return f.db.failCreditTxn
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	f.db.txns = append(f.db.txns, *t)
	return nil
}

func (f *fakeWallets) ListTransactions(_ context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.CreditTransaction
	for i := len(f.db.txns) - 1; i >= 0; i-- {
		t := f.db.txns[i]
		if (t.FromID != nil && *t.FromID == userID) || (t.ToID != nil && *t.ToID == userID) {
			out = append(out, t)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeWallets) LedgerBalances(_ context.Context) ([]repository.LedgerBalance, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []repository.LedgerBalance
	for id, c := range f.db.wallets {
		sum := decimal.Zero
		for _, t := range f.db.txns {
			if t.ToID != nil && *t.ToID == id {
				sum = sum.Add(t.Amount)
			}
			if t.FromID != nil && *t.FromID == id {
				sum = sum.Sub(t.Amount)
			}
		}
		out = append(out, repository.LedgerBalance{UserID: id, Credit: c, LedgerSum: sum})
	}
	return out, nil
}

type fakeUsers struct{ db *memDB }

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.db.users[u.ID] = *u
	return nil
}

func (f *fakeUsers) Upsert(_ context.Context, u *models.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.upserts++
	if f.db.failUpsert != nil {
		return f.db.failUpsert
	}
	stored, ok := f.db.users[u.ID]
	if !ok {
		stored = models.User{ID: u.ID}
	}
	stored.Email = u.Email
	if u.FullName != "" {
		stored.FullName = u.FullName
	}
	f.db.users[u.ID] = stored
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) MarkDelegateFeePaid(_ context.Context, id uuid.UUID, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil
	}
	u.DelegateFeePaid = true
	u.DelegateFeePaidAt = &at
	f.db.users[id] = u
	return nil
}

type fakeCatalog struct{ db *memDB }

func (f *fakeCatalog) Create(_ context.Context, it *models.CatalogItem) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.catalog[it.ItemCode] = *it
	return nil
}

func (f *fakeCatalog) GetByCodes(_ context.Context, codes []string) (map[string]models.CatalogItem, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.catalogLookups++
	f.db.lastLookupCodes = append([]string(nil), codes...)
	out := make(map[string]models.CatalogItem, len(codes))
	for _, c := range codes {
		if it, ok := f.db.catalog[c]; ok && it.Active {
			out[c] = it
		}
	}
	return out, nil
}

type recordingBus struct {
	mu       sync.Mutex
	created  []OrderCreatedEvent
	changed  []OrderStatusChangedEvent
	recorded []PaymentRecordedEvent
}

func (b *recordingBus) PublishOrderCreated(_ context.Context, e OrderCreatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, e)
	return nil
}

func (b *recordingBus) PublishOrderStatusChanged(_ context.Context, e OrderStatusChangedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changed = append(b.changed, e)
	return nil
}

func (b *recordingBus) PublishPaymentRecorded(_ context.Context, e PaymentRecordedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorded = append(b.recorded, e)
	return nil
}

func delegateCtx(id uuid.UUID) context.Context {
	return WithRole(WithUserID(context.Background(), id), RoleDelegate)
}

func adminCtx() context.Context {
	return WithRole(WithUserID(context.Background(), uuid.New()), RoleAdmin)
}

func fixedNow() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
