package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
)

func TestBillLifecycle(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	bills := NewBillService(f.store, zap.NewNop())
	ctx := context.Background()

	order, err := f.wf.CreateOrder(ctx, waiter, f.table(1, 2), 0)
	require.NoError(t, err)
	_, err = bills.BillForOrder(ctx, waiter, order.ID)
	assert.ErrorIs(t, err, model.ErrBillNotFound)

	_, err = f.wf.AddOrderItem(ctx, waiter, order.ID, f.product("7.25", 3), 2)
	require.NoError(t, err)
	issued, err := f.wf.PayOrder(ctx, waiter, order.ID, model.PaymentCard)
	require.NoError(t, err)

	got, err := bills.BillForOrder(ctx, waiter, order.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)
	assert.True(t, dec("14.50").Equal(got.Amount))
	assert.Equal(t, model.PaymentCard, got.PaymentMethod)

	updated, err := bills.UpdatePaymentStatus(ctx, boss, got.ID, model.PaymentFailed)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, updated.PaymentStatus)
	assert.True(t, got.Amount.Equal(updated.Amount), "amount is immutable")

	_, err = bills.UpdatePaymentStatus(ctx, boss, got.ID, "REFUNDED")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = bills.UpdatePaymentStatus(ctx, boss, 404, model.PaymentCompleted)
	assert.ErrorIs(t, err, model.ErrBillNotFound)

	require.NoError(t, f.wf.DeleteOrder(ctx, waiter, order.ID))
	kept, err := bills.BillForOrder(ctx, waiter, order.ID)
	require.NoError(t, err, "bills outlive their order")
	assert.Equal(t, got.ID, kept.ID)
}

func TestCatalogHidesInactiveProducts(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	catalog := NewCatalogService(f.store, zap.NewNop())
	ctx := context.Background()
	active := f.product("2.00", 1)
	hidden := f.store.AddProduct(model.Product{Name: "retired", Price: dec("1.00")})
	f.store.AddCategory(model.Category{Name: "Coffee"})

	products, err := catalog.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, active, products[0].ID)

	p, err := catalog.Product(ctx, hidden)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	_, err = catalog.Product(ctx, 404)
	assert.ErrorIs(t, err, model.ErrProductNotFound)

	cats, err := catalog.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Coffee", cats[0].Name)
}
