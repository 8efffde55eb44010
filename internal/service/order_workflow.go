package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/notify"
	"github.com/iliyamo/cafe-pos/internal/store"
)

// WorkflowOptions tunes OrderWorkflow.
type WorkflowOptions struct {
	// RestockOnDelete releases the items of a PENDING order back to stock
	// when the order is deleted. Paid orders are consumed and cancelled
	// orders have already been released, so neither is restocked.
	RestockOnDelete bool
}

// OrderWorkflow coordinates orders, stock, tables and billing.
type OrderWorkflow struct {
	base
	pub  notify.Publisher
	opts WorkflowOptions
	now  func() time.Time
}

// NewOrderWorkflow wires a workflow. pub may be nil, in which case nothing
// is published.
func NewOrderWorkflow(uow store.UnitOfWork, pub notify.Publisher, log *zap.Logger, opts WorkflowOptions) *OrderWorkflow {
	if pub == nil {
		pub = notify.Discard{}
	}
	return &OrderWorkflow{
		base: newBase(uow, log),
		pub:  pub,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder seats a new PENDING order at a FREE table. employeeID
// defaults to the actor when zero. An OCCUPIED table is rejected with
// model.ErrInvalidState.
func (w *OrderWorkflow) CreateOrder(ctx context.Context, actor model.Actor, tableID, employeeID uint64) (order *model.Order, err error) {
	ctx, span := w.start(ctx, "order.create", actor, attribute.Int64("table.id", int64(tableID)))
	defer func() { finish(span, err) }()

	if employeeID == 0 {
		employeeID = actor.UserID
	}
	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		t, err := r.Tables.Lock(ctx, tableID)
		if err != nil {
			return err
		}
		next, err := t.Status.Apply(model.TableEventSeat)
		if err != nil {
			return fmt.Errorf("table %d: %w", tableID, err)
		}
		if err := r.Tables.SetStatus(ctx, tableID, next); err != nil {
			return err
		}
		o := &model.Order{
			TableID:     tableID,
			EmployeeID:  employeeID,
			Status:      model.OrderPending,
			TotalAmount: decimal.Zero,
		}
		if err := r.Orders.Create(ctx, o); err != nil {
			return err
		}
		o.Items = []model.OrderItem{}
		order = o
		return nil
	})
	w.logResult("order created", err, actorField(actor), zap.Uint64("table_id", tableID))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))

	w.pub.Publish(ctx, actor, notify.TopicTables, notify.TableStatus{TableID: tableID, Status: model.TableOccupied})
	w.pub.Publish(ctx, actor, notify.TopicOrders, order)
	return order, nil
}

// AddOrderItem reserves qty units of a product and appends them to a
// PENDING order at the product's current price, then recomputes the total.
func (w *OrderWorkflow) AddOrderItem(ctx context.Context, actor model.Actor, orderID, productID uint64, qty int) (order *model.Order, err error) {
	ctx, span := w.start(ctx, "order.add_item", actor,
		attribute.Int64("order.id", int64(orderID)),
		attribute.Int64("product.id", int64(productID)),
		attribute.Int("quantity", qty))
	defer func() { finish(span, err) }()

	if qty <= 0 {
		err = fmt.Errorf("%w: quantity must be positive, got %d", model.ErrInvalidArgument, qty)
		return nil, err
	}
	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		o, err := r.Orders.Lock(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status, err = o.Status.Apply(model.OrderEventAddItem); err != nil {
			return err
		}
		p, err := r.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		left, err := r.Stock.Reserve(ctx, productID, qty)
		if errors.Is(err, model.ErrInsufficientStock) {
			return fmt.Errorf("product %d: %w (requested %d, available %d)", productID, err, qty, left)
		}
		if err != nil {
			return err
		}
		item := model.NewOrderItem(o.ID, p.ID, qty, p.Price)
		if err := r.Items.Create(ctx, &item); err != nil {
			return err
		}
		if err := recomputeTotal(ctx, r, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	w.logResult("order item added", err, actorField(actor),
		zap.Uint64("order_id", orderID), zap.Uint64("product_id", productID), zap.Int("quantity", qty))
	if err != nil {
		return nil, err
	}
	w.pub.Publish(ctx, actor, notify.TopicOrders, order)
	return order, nil
}

// recomputeTotal sets o.TotalAmount to the sum of its persisted items and
// loads them into o.Items.
func recomputeTotal(ctx context.Context, r store.Repos, o *model.Order) error {
	total, err := r.Items.SumSubtotals(ctx, o.ID)
	if err != nil {
		return err
	}
	if err := r.Orders.UpdateTotal(ctx, o.ID, total); err != nil {
		return err
	}
	o.TotalAmount = total
	o.Items, err = r.Items.ListByOrder(ctx, o.ID)
	return err
}

// UpdateOrderStatus moves an order to status. Only cancellation is a real
// transition here: it releases the stock of every item. PAID must go
// through PayOrder and nothing returns to PENDING. Writing the current
// status again succeeds without side effects.
func (w *OrderWorkflow) UpdateOrderStatus(ctx context.Context, actor model.Actor, orderID uint64, status model.OrderStatus) (order *model.Order, err error) {
	ctx, span := w.start(ctx, "order.update_status", actor,
		attribute.Int64("order.id", int64(orderID)), attribute.String("order.status", string(status)))
	defer func() { finish(span, err) }()

	if !status.Valid() {
		err = fmt.Errorf("%w: unknown order status %q", model.ErrInvalidArgument, status)
		return nil, err
	}
	changed := false
	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		o, err := r.Orders.Lock(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Items, err = r.Items.ListByOrder(ctx, o.ID); err != nil {
			return err
		}
		order = o
		if o.Status == status {
			return nil
		}
		switch status {
		case model.OrderCancelled:
			if o.Status, err = o.Status.Apply(model.OrderEventCancel); err != nil {
				return err
			}
			if err := releaseItems(ctx, r, o.Items); err != nil {
				return err
			}
		case model.OrderPaid:
			return fmt.Errorf("%w: order %d is settled through payment", model.ErrInvalidState, orderID)
		default:
			return fmt.Errorf("%w: order %d cannot return to %s", model.ErrInvalidState, orderID, status)
		}
		changed = true
		return r.Orders.UpdateStatus(ctx, o.ID, o.Status, nil)
	})
	w.logResult("order status updated", err, actorField(actor),
		zap.Uint64("order_id", orderID), zap.String("status", string(status)), zap.Bool("changed", changed))
	if err != nil {
		return nil, err
	}
	if changed {
		w.pub.Publish(ctx, actor, notify.TopicOrders, order)
	}
	return order, nil
}

func releaseItems(ctx context.Context, r store.Repos, items []model.OrderItem) error {
	for _, it := range items {
		if _, err := r.Stock.Release(ctx, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("release product %d: %w", it.ProductID, err)
		}
	}
	return nil
}

// PayOrder bills a PENDING order and keeps its table OCCUPIED until the
// order is deleted. A second payment is rejected with model.ErrInvalidState.
func (w *OrderWorkflow) PayOrder(ctx context.Context, actor model.Actor, orderID uint64, method model.PaymentMethod) (bill *model.Bill, err error) {
	ctx, span := w.start(ctx, "order.pay", actor,
		attribute.Int64("order.id", int64(orderID)), attribute.String("payment.method", string(method)))
	defer func() { finish(span, err) }()

	if !method.Valid() {
		err = fmt.Errorf("%w: unknown payment method %q", model.ErrInvalidArgument, method)
		return nil, err
	}
	var order *model.Order
	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		o, err := r.Orders.Lock(ctx, orderID)
		if err != nil {
			return err
		}
		if bill, err = createBill(ctx, r, o, method, w.now()); err != nil {
			return err
		}
		t, err := r.Tables.Lock(ctx, o.TableID)
		if err != nil {
			return err
		}
		next, err := t.Status.Apply(model.TableEventHold)
		if err != nil {
			return fmt.Errorf("table %d: %w", t.ID, err)
		}
		if err := r.Tables.SetStatus(ctx, t.ID, next); err != nil {
			return err
		}
		if o.Items, err = r.Items.ListByOrder(ctx, o.ID); err != nil {
			return err
		}
		order = o
		return nil
	})
	w.logResult("order paid", err, actorField(actor), zap.Uint64("order_id", orderID), zap.String("method", string(method)))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("bill.amount", bill.Amount.StringFixed(2)))

	w.pub.Publish(ctx, actor, notify.TopicOrders, order)
	w.pub.Publish(ctx, actor, notify.TopicTables, notify.TableStatus{TableID: order.TableID, Status: model.TableOccupied})
	return bill, nil
}

// DeleteOrder removes an order and its items and frees its table.
func (w *OrderWorkflow) DeleteOrder(ctx context.Context, actor model.Actor, orderID uint64) (err error) {
	ctx, span := w.start(ctx, "order.delete", actor, attribute.Int64("order.id", int64(orderID)))
	defer func() { finish(span, err) }()

	var (
		tableID  uint64
		restored bool
	)
	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		o, err := r.Orders.Lock(ctx, orderID)
		if err != nil {
			return err
		}
		tableID = o.TableID
		if w.opts.RestockOnDelete && o.Status == model.OrderPending {
			items, err := r.Items.ListByOrder(ctx, o.ID)
			if err != nil {
				return err
			}
			if err := releaseItems(ctx, r, items); err != nil {
				return err
			}
			restored = len(items) > 0
		}
		if _, err := r.Items.DeleteByOrder(ctx, o.ID); err != nil {
			return err
		}
		if err := r.Orders.Delete(ctx, o.ID); err != nil {
			return err
		}
		t, err := r.Tables.Lock(ctx, o.TableID)
		if err != nil {
			return err
		}
		next, err := t.Status.Apply(model.TableEventRelease)
		if err != nil {
			return err
		}
		return r.Tables.SetStatus(ctx, t.ID, next)
	})
	w.logResult("order deleted", err, actorField(actor),
		zap.Uint64("order_id", orderID), zap.Uint64("table_id", tableID), zap.Bool("restocked", restored))
	if err != nil {
		return err
	}
	w.pub.Publish(ctx, actor, notify.TopicTables, notify.TableStatus{TableID: tableID, Status: model.TableFree})
	return nil
}

// PendingOrders lists PENDING orders, oldest first, with their items.
func (w *OrderWorkflow) PendingOrders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	return w.query(ctx, "order.list_pending", actor, func(ctx context.Context, r store.Repos) ([]model.Order, error) {
		return r.Orders.ListByStatus(ctx, model.OrderPending)
	})
}

// OrdersByTable lists every order bound to a table. An unknown table has no
// orders.
func (w *OrderWorkflow) OrdersByTable(ctx context.Context, actor model.Actor, tableID uint64) ([]model.Order, error) {
	return w.query(ctx, "order.list_by_table", actor, func(ctx context.Context, r store.Repos) ([]model.Order, error) {
		return r.Orders.ListByTable(ctx, tableID)
	})
}

// ListOrders lists all orders.
func (w *OrderWorkflow) ListOrders(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	return w.query(ctx, "order.list", actor, func(ctx context.Context, r store.Repos) ([]model.Order, error) {
		return r.Orders.List(ctx)
	})
}

func (w *OrderWorkflow) query(ctx context.Context, name string, actor model.Actor,
	list func(context.Context, store.Repos) ([]model.Order, error)) (orders []model.Order, err error) {
	ctx, span := w.start(ctx, name, actor)
	defer func() { finish(span, err) }()

	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		found, err := list(ctx, r)
		if err != nil {
			return err
		}
		orders, err = withItems(ctx, r, found)
		return err
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("order.count", len(orders)))
	return orders, nil
}

// GetOrder loads one order with its items.
func (w *OrderWorkflow) GetOrder(ctx context.Context, actor model.Actor, orderID uint64) (order *model.Order, err error) {
	ctx, span := w.start(ctx, "order.get", actor, attribute.Int64("order.id", int64(orderID)))
	defer func() { finish(span, err) }()

	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		o, err := r.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Items, err = r.Items.ListByOrder(ctx, o.ID); err != nil {
			return err
		}
		order = o
		return nil
	})
	return order, err
}

// OrderItems lists the items of an order. A deleted or unknown order has
// none.
func (w *OrderWorkflow) OrderItems(ctx context.Context, actor model.Actor, orderID uint64) (items []model.OrderItem, err error) {
	ctx, span := w.start(ctx, "order.items", actor, attribute.Int64("order.id", int64(orderID)))
	defer func() { finish(span, err) }()

	err = w.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		items, err = r.Items.ListByOrder(ctx, orderID)
		return err
	})
	return items, err
}
