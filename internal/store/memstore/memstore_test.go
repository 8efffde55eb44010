package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/store"
)

func TestFailedUnitLeavesStateUntouched(t *testing.T) {
	s := New()
	pid := s.AddProduct(model.Product{Name: "Latte", Price: decimal.RequireFromString("3.50"), StockQuantity: 5, IsActive: true})
	boom := errors.New("boom")

	err := s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
		if _, err := r.Stock.Reserve(ctx, pid, 4); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, ok := s.Product(pid)
	require.True(t, ok)
	assert.Equal(t, 5, p.StockQuantity)
}

func TestReserveNeverGoesNegative(t *testing.T) {
	s := New()
	pid := s.AddProduct(model.Product{Name: "Mocha", StockQuantity: 2, IsActive: true})

	err := s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
		left, err := r.Stock.Reserve(ctx, pid, 3)
		assert.Equal(t, 2, left)
		return err
	})
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	err = s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
		_, err := r.Stock.Reserve(ctx, 42, 1)
		return err
	})
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestInjectedFaultFiresOnce(t *testing.T) {
	s := New()
	tid := s.AddTable(model.CoffeeTable{Name: "T1", Number: 1, Capacity: 2})
	boom := errors.New("disk full")
	s.InjectFault("tables.setstatus", boom)

	set := func() error {
		return s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
			return r.Tables.SetStatus(ctx, tid, model.TableOccupied)
		})
	}
	assert.ErrorIs(t, set(), boom)
	tb, _ := s.Table(tid)
	assert.Equal(t, model.TableFree, tb.Status)

	require.NoError(t, set())
	tb, _ = s.Table(tid)
	assert.Equal(t, model.TableOccupied, tb.Status)
}

func TestUniqueConstraints(t *testing.T) {
	s := New()
	s.AddTable(model.CoffeeTable{Name: "T1", Number: 1, Capacity: 2})

	err := s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
		return r.Tables.Create(ctx, &model.CoffeeTable{Name: "dup", Number: 1, Capacity: 4})
	})
	assert.ErrorIs(t, err, model.ErrConflict)

	err = s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
		if err := r.Bills.Create(ctx, &model.Bill{OrderID: 9}); err != nil {
			return err
		}
		return r.Bills.Create(ctx, &model.Bill{OrderID: 9})
	})
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Zero(t, s.Bills())
}

func TestDeleteOrderCascadesItems(t *testing.T) {
	s := New()
	tid := s.AddTable(model.CoffeeTable{Name: "T1", Number: 1, Capacity: 2})
	var orderID uint64
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
		o := &model.Order{TableID: tid, Status: model.OrderPending}
		if err := r.Orders.Create(ctx, o); err != nil {
			return err
		}
		orderID = o.ID
		it := model.NewOrderItem(o.ID, 1, 2, decimal.RequireFromString("1.25"))
		return r.Items.Create(ctx, &it)
	}))
	require.Len(t, s.Items(orderID), 1)

	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, r store.Repos) error {
		return r.Orders.Delete(ctx, orderID)
	}))
	_, ok := s.Order(orderID)
	assert.False(t, ok)
	assert.Empty(t, s.Items(orderID))
}
