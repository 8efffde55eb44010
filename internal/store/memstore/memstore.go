// Package memstore is an in-memory store.UnitOfWork. Units of work are
// serialized by a single mutex and run against a copy of the data that
// replaces the live state only when the unit succeeds, so a failed unit
// leaves nothing behind.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/store"
)

// Store holds the committed state.
type Store struct {
	mu     sync.Mutex
	st     *state
	now    func() time.Time
	faults map[string]error
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }, faults: map[string]error{}}
}

type counters struct {
	product, category, table, order, item, bill uint64
}

type state struct {
	seq        counters
	products   map[uint64]model.Product
	categories map[uint64]model.Category
	tables     map[uint64]model.CoffeeTable
	orders     map[uint64]model.Order
	items      map[uint64]model.OrderItem
	bills      map[uint64]model.Bill
}

func newState() *state {
	return &state{
		products:   map[uint64]model.Product{},
		categories: map[uint64]model.Category{},
		tables:     map[uint64]model.CoffeeTable{},
		orders:     map[uint64]model.Order{},
		items:      map[uint64]model.OrderItem{},
		bills:      map[uint64]model.Bill{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.bills {
		c.bills[k] = v
	}
	return c
}

// Do implements store.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	tx := &txn{st: work, now: s.now, faults: s.faults}
	if err := fn(ctx, tx.repos()); err != nil {
		return err
	}
	s.st = work
	return nil
}

// InjectFault makes the next call to op fail with err inside whichever unit
// of work reaches it first. Ops are named "<repo>.<method>", e.g.
// "items.create" or "tables.setstatus".
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// AddProduct seeds a product and returns its id.
func (s *Store) AddProduct(p model.Product) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.seq.product++
	p.ID = s.st.seq.product
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
		p.UpdatedAt = p.CreatedAt
	}
	s.st.products[p.ID] = p
	return p.ID
}

// AddCategory seeds a category and returns its id.
func (s *Store) AddCategory(c model.Category) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.seq.category++
	c.ID = s.st.seq.category
	s.st.categories[c.ID] = c
	return c.ID
}

// AddTable seeds a table and returns its id. An empty status becomes FREE.
func (s *Store) AddTable(t model.CoffeeTable) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.seq.table++
	t.ID = s.st.seq.table
	if t.Status == "" {
		t.Status = model.TableFree
	}
	s.st.tables[t.ID] = t
	return t.ID
}

// Product returns the committed product row.
func (s *Store) Product(id uint64) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

// Table returns the committed table row.
func (s *Store) Table(id uint64) (model.CoffeeTable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.tables[id]
	return t, ok
}

// Order returns the committed order header.
func (s *Store) Order(id uint64) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	return o, ok
}

// Items returns the committed items of an order ordered by id.
func (s *Store) Items(orderID uint64) []model.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.itemsOf(orderID)
}

// Bills returns the number of committed bills.
func (s *Store) Bills() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.bills)
}

func (s *state) itemsOf(orderID uint64) []model.OrderItem {
	out := make([]model.OrderItem, 0)
	for _, it := range s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type txn struct {
	st     *state
	now    func() time.Time
	faults map[string]error
}

func (t *txn) fault(op string) error {
	if err, ok := t.faults[op]; ok {
		delete(t.faults, op)
		return err
	}
	return nil
}

func (t *txn) repos() store.Repos {
	return store.Repos{
		Products:   productRepo{t},
		Stock:      productRepo{t},
		Categories: categoryRepo{t},
		Tables:     tableRepo{t},
		Orders:     orderRepo{t},
		Items:      itemRepo{t},
		Bills:      billRepo{t},
	}
}

type productRepo struct{ t *txn }

func (r productRepo) GetByID(_ context.Context, id uint64) (*model.Product, error) {
	p, ok := r.t.st.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	return &p, nil
}

func (r productRepo) List(_ context.Context) ([]model.Product, error) {
	out := make([]model.Product, 0, len(r.t.st.products))
	for _, p := range r.t.st.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepo) Reserve(_ context.Context, productID uint64, qty int) (int, error) {
	if err := r.t.fault("stock.reserve"); err != nil {
		return 0, err
	}
	p, ok := r.t.st.products[productID]
	if !ok {
		return 0, model.ErrProductNotFound
	}
	if qty > p.StockQuantity {
		return p.StockQuantity, model.ErrInsufficientStock
	}
	p.StockQuantity -= qty
	p.UpdatedAt = r.t.now()
	r.t.st.products[productID] = p
	return p.StockQuantity, nil
}

func (r productRepo) Release(_ context.Context, productID uint64, qty int) (int, error) {
	if err := r.t.fault("stock.release"); err != nil {
		return 0, err
	}
	p, ok := r.t.st.products[productID]
	if !ok {
		return 0, model.ErrProductNotFound
	}
	p.StockQuantity += qty
	p.UpdatedAt = r.t.now()
	r.t.st.products[productID] = p
	return p.StockQuantity, nil
}

type categoryRepo struct{ t *txn }

func (r categoryRepo) List(_ context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(r.t.st.categories))
	for _, c := range r.t.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type tableRepo struct{ t *txn }

func (r tableRepo) Create(_ context.Context, tb *model.CoffeeTable) error {
	if err := r.t.fault("tables.create"); err != nil {
		return err
	}
	for _, existing := range r.t.st.tables {
		if existing.Number == tb.Number {
			return model.ErrConflict
		}
	}
	r.t.st.seq.table++
	tb.ID = r.t.st.seq.table
	tb.CreatedAt = r.t.now()
	tb.UpdatedAt = tb.CreatedAt
	r.t.st.tables[tb.ID] = *tb
	return nil
}

func (r tableRepo) GetByID(_ context.Context, id uint64) (*model.CoffeeTable, error) {
	tb, ok := r.t.st.tables[id]
	if !ok {
		return nil, model.ErrTableNotFound
	}
	return &tb, nil
}

func (r tableRepo) Lock(ctx context.Context, id uint64) (*model.CoffeeTable, error) {
	return r.GetByID(ctx, id)
}

func (r tableRepo) SetStatus(_ context.Context, id uint64, status model.TableStatus) error {
	if err := r.t.fault("tables.setstatus"); err != nil {
		return err
	}
	tb, ok := r.t.st.tables[id]
	if !ok {
		return model.ErrTableNotFound
	}
	tb.Status = status
	tb.UpdatedAt = r.t.now()
	r.t.st.tables[id] = tb
	return nil
}

func (r tableRepo) filter(keep func(model.CoffeeTable) bool) []model.CoffeeTable {
	out := make([]model.CoffeeTable, 0)
	for _, tb := range r.t.st.tables {
		if keep(tb) {
			out = append(out, tb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (r tableRepo) List(_ context.Context) ([]model.CoffeeTable, error) {
	return r.filter(func(model.CoffeeTable) bool { return true }), nil
}

func (r tableRepo) FindFree(_ context.Context) ([]model.CoffeeTable, error) {
	return r.filter(func(tb model.CoffeeTable) bool { return tb.Status == model.TableFree }), nil
}

func (r tableRepo) FindByCapacityAtLeast(_ context.Context, capacity int) ([]model.CoffeeTable, error) {
	return r.filter(func(tb model.CoffeeTable) bool { return tb.Capacity >= capacity }), nil
}

type orderRepo struct{ t *txn }

func (r orderRepo) Create(_ context.Context, o *model.Order) error {
	if err := r.t.fault("orders.create"); err != nil {
		return err
	}
	if _, ok := r.t.st.tables[o.TableID]; !ok {
		return model.ErrTableNotFound
	}
	r.t.st.seq.order++
	o.ID = r.t.st.seq.order
	o.CreatedAt = r.t.now()
	o.UpdatedAt = o.CreatedAt
	stored := *o
	stored.Items = nil
	r.t.st.orders[o.ID] = stored
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	o, ok := r.t.st.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return &o, nil
}

func (r orderRepo) Lock(ctx context.Context, id uint64) (*model.Order, error) {
	return r.GetByID(ctx, id)
}

func (r orderRepo) UpdateStatus(_ context.Context, id uint64, status model.OrderStatus, paymentMethod *string) error {
	if err := r.t.fault("orders.updatestatus"); err != nil {
		return err
	}
	o, ok := r.t.st.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	o.Status = status
	if paymentMethod != nil {
		pm := *paymentMethod
		o.PaymentMethod = &pm
	}
	o.UpdatedAt = r.t.now()
	r.t.st.orders[id] = o
	return nil
}

func (r orderRepo) UpdateTotal(_ context.Context, id uint64, total decimal.Decimal) error {
	if err := r.t.fault("orders.updatetotal"); err != nil {
		return err
	}
	o, ok := r.t.st.orders[id]
	if !ok {
		return model.ErrOrderNotFound
	}
	o.TotalAmount = total
	o.UpdatedAt = r.t.now()
	r.t.st.orders[id] = o
	return nil
}

func (r orderRepo) Delete(_ context.Context, id uint64) error {
	if err := r.t.fault("orders.delete"); err != nil {
		return err
	}
	if _, ok := r.t.st.orders[id]; !ok {
		return model.ErrOrderNotFound
	}
	delete(r.t.st.orders, id)
	for itemID, it := range r.t.st.items {
		if it.OrderID == id {
			delete(r.t.st.items, itemID)
		}
	}
	return nil
}

func (r orderRepo) filter(keep func(model.Order) bool) []model.Order {
	out := make([]model.Order, 0)
	for _, o := range r.t.st.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r orderRepo) List(_ context.Context) ([]model.Order, error) {
	return r.filter(func(model.Order) bool { return true }), nil
}

func (r orderRepo) ListByStatus(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.Status == status }), nil
}

func (r orderRepo) ListByTable(_ context.Context, tableID uint64) ([]model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.TableID == tableID }), nil
}

func (r orderRepo) CountByTable(ctx context.Context, tableID uint64) (int, error) {
	orders, _ := r.ListByTable(ctx, tableID)
	return len(orders), nil
}

type itemRepo struct{ t *txn }

func (r itemRepo) Create(_ context.Context, it *model.OrderItem) error {
	if err := r.t.fault("items.create"); err != nil {
		return err
	}
	if _, ok := r.t.st.orders[it.OrderID]; !ok {
		return model.ErrOrderNotFound
	}
	r.t.st.seq.item++
	it.ID = r.t.st.seq.item
	it.CreatedAt = r.t.now()
	r.t.st.items[it.ID] = *it
	return nil
}

func (r itemRepo) ListByOrder(_ context.Context, orderID uint64) ([]model.OrderItem, error) {
	return r.t.st.itemsOf(orderID), nil
}

func (r itemRepo) ListByOrders(_ context.Context, orderIDs []uint64) (map[uint64][]model.OrderItem, error) {
	out := make(map[uint64][]model.OrderItem, len(orderIDs))
	for _, id := range orderIDs {
		out[id] = r.t.st.itemsOf(id)
	}
	return out, nil
}

func (r itemRepo) SumSubtotals(_ context.Context, orderID uint64) (decimal.Decimal, error) {
	return model.SumSubtotals(r.t.st.itemsOf(orderID)), nil
}

func (r itemRepo) DeleteByOrder(_ context.Context, orderID uint64) (int64, error) {
	if err := r.t.fault("items.deletebyorder"); err != nil {
		return 0, err
	}
	var n int64
	for id, it := range r.t.st.items {
		if it.OrderID == orderID {
			delete(r.t.st.items, id)
			n++
		}
	}
	return n, nil
}

type billRepo struct{ t *txn }

func (r billRepo) Create(_ context.Context, b *model.Bill) error {
	if err := r.t.fault("bills.create"); err != nil {
		return err
	}
	for _, existing := range r.t.st.bills {
		if existing.OrderID == b.OrderID {
			return model.ErrConflict
		}
	}
	r.t.st.seq.bill++
	b.ID = r.t.st.seq.bill
	r.t.st.bills[b.ID] = *b
	return nil
}

func (r billRepo) GetByID(_ context.Context, id uint64) (*model.Bill, error) {
	b, ok := r.t.st.bills[id]
	if !ok {
		return nil, model.ErrBillNotFound
	}
	return &b, nil
}

func (r billRepo) GetByOrderID(_ context.Context, orderID uint64) (*model.Bill, error) {
	for _, b := range r.t.st.bills {
		if b.OrderID == orderID {
			return &b, nil
		}
	}
	return nil, model.ErrBillNotFound
}

func (r billRepo) UpdatePaymentStatus(_ context.Context, id uint64, status model.PaymentStatus) error {
	b, ok := r.t.st.bills[id]
	if !ok {
		return model.ErrBillNotFound
	}
	b.PaymentStatus = status
	r.t.st.bills[id] = b
	return nil
}
