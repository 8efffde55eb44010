package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/notify"
	"github.com/iliyamo/cafe-pos/internal/store/memstore"
)

var (
	waiter = model.Actor{UserID: 1, Role: model.RoleEmployee}
	boss   = model.Actor{UserID: 2, Role: model.RoleModerator}
)

type published struct {
	topic   notify.Topic
	actor   model.Actor
	payload any
}

// recorder is a synchronous notify.Publisher.
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ context.Context, actor model.Actor, topic notify.Topic, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic: topic, actor: actor, payload: payload})
}

func (r *recorder) topics() []notify.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Topic, len(r.events))
	for i, e := range r.events {
		out[i] = e.topic
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fixture struct {
	store *memstore.Store
	pub   *recorder
	wf    *OrderWorkflow
}

func newFixture(t *testing.T, opts WorkflowOptions) *fixture {
	t.Helper()
	s := memstore.New()
	pub := &recorder{}
	return &fixture{store: s, pub: pub, wf: NewOrderWorkflow(s, pub, zap.NewNop(), opts)}
}

func (f *fixture) table(number, capacity int) uint64 {
	return f.store.AddTable(model.CoffeeTable{Name: "T", Number: number, Capacity: capacity})
}

func (f *fixture) product(price string, stock int) uint64 {
	return f.store.AddProduct(model.Product{
		Name:          "item",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	})
}

func (f *fixture) stock(t *testing.T, productID uint64) int {
	t.Helper()
	p, ok := f.store.Product(productID)
	require.True(t, ok)
	return p.StockQuantity
}

func (f *fixture) tableStatus(t *testing.T, tableID uint64) model.TableStatus {
	t.Helper()
	tb, ok := f.store.Table(tableID)
	require.True(t, ok)
	return tb.Status
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
