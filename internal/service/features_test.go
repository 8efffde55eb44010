package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/store/memstore"
)

type workflowContext struct {
	store    *memstore.Store
	wf       *OrderWorkflow
	tables   map[string]uint64
	products map[string]uint64
	order    *model.Order
	bill     *model.Bill
	lastErr  error
}

func (c *workflowContext) reset() {
	c.store = memstore.New()
	c.wf = NewOrderWorkflow(c.store, nil, zap.NewNop(), WorkflowOptions{})
	c.tables = map[string]uint64{}
	c.products = map[string]uint64{}
	c.order, c.bill, c.lastErr = nil, nil, nil
}

func (c *workflowContext) aFreeTable(name string, capacity int) error {
	c.tables[name] = c.store.AddTable(model.CoffeeTable{Name: name, Number: len(c.tables) + 1, Capacity: capacity})
	return nil
}

func (c *workflowContext) aProduct(name, price string, stock int) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.products[name] = c.store.AddProduct(model.Product{Name: name, Price: p, StockQuantity: stock, IsActive: true})
	return nil
}

func (c *workflowContext) opensOrder(employee int, table string) error {
	actor := model.Actor{UserID: uint64(employee), Role: model.RoleEmployee}
	o, err := c.wf.CreateOrder(context.Background(), actor, c.tables[table], 0)
	c.lastErr = err
	if err == nil {
		c.order = o
	}
	return nil
}

func (c *workflowContext) itemsAdded(qty int, product string) error {
	if c.order == nil {
		return errors.New("no order open")
	}
	o, err := c.wf.AddOrderItem(context.Background(), model.System, c.order.ID, c.products[product], qty)
	c.lastErr = err
	if err == nil {
		c.order = o
	}
	return nil
}

func (c *workflowContext) paidBy(method string) error {
	b, err := c.wf.PayOrder(context.Background(), model.System, c.order.ID, model.PaymentMethod(method))
	c.lastErr = err
	if err == nil {
		c.bill = b
	}
	return nil
}

func (c *workflowContext) deleted() error {
	return c.wf.DeleteOrder(context.Background(), model.System, c.order.ID)
}

func (c *workflowContext) tableIs(name, status string) error {
	t, ok := c.store.Table(c.tables[name])
	if !ok {
		return fmt.Errorf("table %q missing", name)
	}
	if string(t.Status) != status {
		return fmt.Errorf("table %q is %s, want %s", name, t.Status, status)
	}
	return nil
}

func (c *workflowContext) tableHasOrders(name string, n int) error {
	orders, err := c.wf.OrdersByTable(context.Background(), model.System, c.tables[name])
	if err != nil {
		return err
	}
	if len(orders) != n {
		return fmt.Errorf("table %q has %d orders, want %d", name, len(orders), n)
	}
	return nil
}

func (c *workflowContext) storedOrder() (model.Order, error) {
	o, ok := c.store.Order(c.order.ID)
	if !ok {
		return o, fmt.Errorf("order %d missing", c.order.ID)
	}
	return o, nil
}

func (c *workflowContext) orderIsWithTotal(status, total string) error {
	if err := c.orderIs(status); err != nil {
		return err
	}
	return c.orderTotalIs(total)
}

func (c *workflowContext) orderIs(status string) error {
	o, err := c.storedOrder()
	if err != nil {
		return err
	}
	if string(o.Status) != status {
		return fmt.Errorf("order is %s, want %s", o.Status, status)
	}
	return nil
}

func (c *workflowContext) orderTotalIs(total string) error {
	o, err := c.storedOrder()
	if err != nil {
		return err
	}
	want := decimal.RequireFromString(total)
	if !o.TotalAmount.Equal(want) {
		return fmt.Errorf("order total is %s, want %s", o.TotalAmount, want)
	}
	if sum := model.SumSubtotals(c.store.Items(o.ID)); !sum.Equal(o.TotalAmount) {
		return fmt.Errorf("order total %s drifted from item sum %s", o.TotalAmount, sum)
	}
	return nil
}

func (c *workflowContext) hasStock(product string, stock int) error {
	p, ok := c.store.Product(c.products[product])
	if !ok {
		return fmt.Errorf("product %q missing", product)
	}
	if p.StockQuantity != stock {
		return fmt.Errorf("%q has %d in stock, want %d", product, p.StockQuantity, stock)
	}
	return nil
}

func (c *workflowContext) billIssued(amount string) error {
	if c.bill == nil {
		return fmt.Errorf("no bill issued: %v", c.lastErr)
	}
	if want := decimal.RequireFromString(amount); !c.bill.Amount.Equal(want) {
		return fmt.Errorf("bill amount is %s, want %s", c.bill.Amount, want)
	}
	return nil
}

func (c *workflowContext) orderGone() error {
	if _, ok := c.store.Order(c.order.ID); ok {
		return fmt.Errorf("order %d still exists", c.order.ID)
	}
	return nil
}

func (c *workflowContext) noItems() error {
	if items := c.store.Items(c.order.ID); len(items) != 0 {
		return fmt.Errorf("order still has %d items", len(items))
	}
	return nil
}

func (c *workflowContext) failsWith(kind string) error {
	var want error
	switch kind {
	case "insufficient stock":
		want = model.ErrInsufficientStock
	case "invalid state":
		want = model.ErrInvalidState
	default:
		return fmt.Errorf("unknown failure %q", kind)
	}
	if !errors.Is(c.lastErr, want) {
		return fmt.Errorf("expected %v, got %v", want, c.lastErr)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	wc := &workflowContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		wc.reset()
		return ctx, nil
	})

	ctx.Step(`^a free table "([^"]*)" with capacity (\d+)$`, wc.aFreeTable)
	ctx.Step(`^a product "([^"]*)" priced (\d+\.\d+) with (\d+) in stock$`, wc.aProduct)
	ctx.Step(`^employee (\d+) opens an order at table "([^"]*)"$`, wc.opensOrder)
	ctx.Step(`^(\d+) of "([^"]*)" are added to the order$`, wc.itemsAdded)
	ctx.Step(`^the order is paid by (\w+)$`, wc.paidBy)
	ctx.Step(`^the order is deleted$`, wc.deleted)
	ctx.Step(`^table "([^"]*)" is (FREE|OCCUPIED)$`, wc.tableIs)
	ctx.Step(`^table "([^"]*)" has (\d+) orders?$`, wc.tableHasOrders)
	ctx.Step(`^the order is (\w+) with total (\d+\.\d+)$`, wc.orderIsWithTotal)
	ctx.Step(`^the order is (PENDING|PAID|CANCELLED)$`, wc.orderIs)
	ctx.Step(`^the order total is (\d+\.\d+)$`, wc.orderTotalIs)
	ctx.Step(`^"([^"]*)" has (\d+) in stock$`, wc.hasStock)
	ctx.Step(`^a bill of (\d+\.\d+) is issued$`, wc.billIssued)
	ctx.Step(`^the order no longer exists$`, wc.orderGone)
	ctx.Step(`^the order has no items$`, wc.noItems)
	ctx.Step(`^the request fails with (insufficient stock|invalid state)$`, wc.failsWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
