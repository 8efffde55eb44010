package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/notify"
)

func TestFullOrderLifecycle(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	tableID := f.table(1, 4)
	productID := f.product("5.00", 10)

	order, err := f.wf.CreateOrder(ctx, waiter, tableID, 0)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.True(t, order.TotalAmount.IsZero())
	assert.Equal(t, waiter.UserID, order.EmployeeID)
	assert.Equal(t, model.TableOccupied, f.tableStatus(t, tableID))

	order, err = f.wf.AddOrderItem(ctx, waiter, order.ID, productID, 2)
	require.NoError(t, err)
	assert.True(t, dec("10.00").Equal(order.TotalAmount), "total %s", order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.True(t, dec("5.00").Equal(order.Items[0].Price))
	assert.Equal(t, 8, f.stock(t, productID))

	bill, err := f.wf.PayOrder(ctx, waiter, order.ID, model.PaymentCash)
	require.NoError(t, err)
	assert.True(t, dec("10.00").Equal(bill.Amount))
	assert.Equal(t, model.PaymentCompleted, bill.PaymentStatus)
	assert.False(t, bill.IssuedAt.IsZero())
	paid, ok := f.store.Order(order.ID)
	require.True(t, ok)
	assert.Equal(t, model.OrderPaid, paid.Status)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, "CASH", *paid.PaymentMethod)
	assert.Equal(t, model.TableOccupied, f.tableStatus(t, tableID))

	require.NoError(t, f.wf.DeleteOrder(ctx, waiter, order.ID))
	_, err = f.wf.GetOrder(ctx, waiter, order.ID)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	items, err := f.wf.OrderItems(ctx, waiter, order.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, model.TableFree, f.tableStatus(t, tableID))
	assert.Equal(t, 8, f.stock(t, productID), "deletion does not restock by default")

	assert.Equal(t, []notify.Topic{
		notify.TopicTables, notify.TopicOrders, // create
		notify.TopicOrders,                     // add item
		notify.TopicOrders, notify.TopicTables, // pay
		notify.TopicTables, // delete
	}, f.pub.topics())
}

func TestTotalTracksEveryItem(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	order, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)

	latte := f.product("4.50", 10)
	cake := f.product("3.25", 10)
	for _, add := range []struct {
		product uint64
		qty     int
	}{{latte, 1}, {cake, 2}, {latte, 3}} {
		order, err = f.wf.AddOrderItem(ctx, waiter, order.ID, add.product, add.qty)
		require.NoError(t, err)
		assert.True(t, model.SumSubtotals(order.Items).Equal(order.TotalAmount))
	}
	assert.True(t, dec("24.50").Equal(order.TotalAmount), "total %s", order.TotalAmount)
	stored, _ := f.store.Order(order.ID)
	assert.True(t, dec("24.50").Equal(stored.TotalAmount))
}

func TestAddItemRejections(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	order, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)
	productID := f.product("2.00", 3)
	f.pub.reset()

	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, productID, 0)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, productID, 4)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
	assert.Equal(t, 3, f.stock(t, productID))

	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, 999, 1)
	assert.ErrorIs(t, err, model.ErrProductNotFound)

	_, err = f.wf.AddOrderItem(ctx, waiter, 999, productID, 1)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	assert.Empty(t, f.store.Items(order.ID))
	assert.Empty(t, f.pub.topics(), "failed commands publish nothing")
}

func TestPaidOrderIsFrozen(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	order, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)
	productID := f.product("2.00", 5)
	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, productID, 1)
	require.NoError(t, err)
	_, err = f.wf.PayOrder(ctx, waiter, order.ID, model.PaymentCard)
	require.NoError(t, err)

	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, productID, 1)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	assert.Equal(t, 4, f.stock(t, productID))

	_, err = f.wf.PayOrder(ctx, waiter, order.ID, model.PaymentCash)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	assert.Equal(t, 1, f.store.Bills())

	_, err = f.wf.UpdateOrderStatus(ctx, waiter, order.ID, model.OrderCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestPayRejectsUnknownMethodAndOrder(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	_, err := f.wf.PayOrder(ctx, waiter, 1, model.PaymentMethod("IOU"))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = f.wf.PayOrder(ctx, waiter, 1, model.PaymentMomo)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestNoDoubleBooking(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	tableID := f.table(1, 4)
	_, err := f.wf.CreateOrder(ctx, waiter, tableID, 0)
	require.NoError(t, err)

	_, err = f.wf.CreateOrder(ctx, boss, tableID, 0)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	orders, err := f.wf.OrdersByTable(ctx, waiter, tableID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = f.wf.CreateOrder(ctx, waiter, 404, 0)
	assert.ErrorIs(t, err, model.ErrTableNotFound)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	const stock = 5
	productID := f.product("1.00", stock)
	a, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)
	b, err := f.wf.CreateOrder(ctx, waiter, f.table(2, 2), 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, orderID := range []uint64{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, orderID uint64) {
			defer wg.Done()
			_, errs[i] = f.wf.AddOrderItem(ctx, waiter, orderID, productID, stock)
		}(i, orderID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.stock(t, productID))
}

func TestFailureMidCommandRollsBack(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	tableID := f.table(1, 2)
	order, err := f.wf.CreateOrder(ctx, waiter, tableID, 0)
	require.NoError(t, err)
	productID := f.product("3.00", 4)

	boom := errors.New("disk full")
	f.store.InjectFault("items.create", boom)
	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, productID, 2)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, f.stock(t, productID), "reservation rolled back")
	assert.Empty(t, f.store.Items(order.ID))

	f.store.InjectFault("tables.setstatus", boom)
	err = f.wf.DeleteOrder(ctx, waiter, order.ID)
	require.ErrorIs(t, err, boom)
	_, stillThere := f.store.Order(order.ID)
	assert.True(t, stillThere)
	assert.Equal(t, model.TableOccupied, f.tableStatus(t, tableID))

	f.store.InjectFault("orders.create", boom)
	other := f.table(2, 2)
	_, err = f.wf.CreateOrder(ctx, waiter, other, 0)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, model.TableFree, f.tableStatus(t, other))
}

func TestCancelReleasesStock(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	order, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)
	productID := f.product("2.50", 6)
	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, productID, 4)
	require.NoError(t, err)
	f.pub.reset()

	same, err := f.wf.UpdateOrderStatus(ctx, waiter, order.ID, model.OrderPending)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, same.Status)
	assert.Empty(t, f.pub.topics(), "no-op writes publish nothing")

	_, err = f.wf.UpdateOrderStatus(ctx, waiter, order.ID, model.OrderPaid)
	assert.ErrorIs(t, err, model.ErrInvalidState)

	cancelled, err := f.wf.UpdateOrderStatus(ctx, waiter, order.ID, model.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, cancelled.Status)
	assert.Equal(t, 6, f.stock(t, productID))
	assert.Equal(t, []notify.Topic{notify.TopicOrders}, f.pub.topics())

	_, err = f.wf.UpdateOrderStatus(ctx, waiter, order.ID, model.OrderPending)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	_, err = f.wf.UpdateOrderStatus(ctx, waiter, order.ID, model.OrderStatus("LOST"))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestRestockOnDelete(t *testing.T) {
	f := newFixture(t, WorkflowOptions{RestockOnDelete: true})
	ctx := context.Background()
	productID := f.product("1.00", 10)

	pending, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)
	_, err = f.wf.AddOrderItem(ctx, waiter, pending.ID, productID, 3)
	require.NoError(t, err)
	require.NoError(t, f.wf.DeleteOrder(ctx, waiter, pending.ID))
	assert.Equal(t, 10, f.stock(t, productID))

	paid, err := f.wf.CreateOrder(ctx, waiter, f.table(2, 2), 0)
	require.NoError(t, err)
	_, err = f.wf.AddOrderItem(ctx, waiter, paid.ID, productID, 2)
	require.NoError(t, err)
	_, err = f.wf.PayOrder(ctx, waiter, paid.ID, model.PaymentCash)
	require.NoError(t, err)
	require.NoError(t, f.wf.DeleteOrder(ctx, waiter, paid.ID))
	assert.Equal(t, 8, f.stock(t, productID), "paid goods stay consumed")
}

func TestDeleteUnknownOrder(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	assert.ErrorIs(t, f.wf.DeleteOrder(context.Background(), waiter, 77), model.ErrOrderNotFound)
	assert.Empty(t, f.pub.topics())
}

func TestQueriesAttachItems(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	productID := f.product("1.50", 20)
	t1 := f.table(1, 2)
	first, err := f.wf.CreateOrder(ctx, waiter, t1, 0)
	require.NoError(t, err)
	second, err := f.wf.CreateOrder(ctx, waiter, f.table(2, 2), 0)
	require.NoError(t, err)
	_, err = f.wf.AddOrderItem(ctx, waiter, first.ID, productID, 2)
	require.NoError(t, err)
	_, err = f.wf.PayOrder(ctx, waiter, second.ID, model.PaymentCash)
	require.NoError(t, err)

	pending, err := f.wf.PendingOrders(ctx, waiter)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Len(t, pending[0].Items, 1)

	all, err := f.wf.ListOrders(ctx, waiter)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotNil(t, all[1].Items)

	byTable, err := f.wf.OrdersByTable(ctx, waiter, t1)
	require.NoError(t, err)
	require.Len(t, byTable, 1)

	none, err := f.wf.OrdersByTable(ctx, waiter, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCommandsAreTraced(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	f := newFixture(t, WorkflowOptions{})
	ctx := context.Background()
	_, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)
	_, err = f.wf.AddOrderItem(ctx, waiter, 1, 999, 1)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "order.create", spans[0].Name())
	assert.Equal(t, "order.add_item", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}
