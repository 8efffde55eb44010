package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/store"
)

// createBill settles o inside the caller's unit of work: it applies PAY,
// snapshots the current total into a COMPLETED bill and records the
// payment method on the order. It leaves the table alone.
func createBill(ctx context.Context, r store.Repos, o *model.Order, method model.PaymentMethod, now time.Time) (*model.Bill, error) {
	next, err := o.Status.Apply(model.OrderEventPay)
	if err != nil {
		return nil, err
	}
	m := string(method)
	if err := r.Orders.UpdateStatus(ctx, o.ID, next, &m); err != nil {
		return nil, err
	}
	b := &model.Bill{
		OrderID:       o.ID,
		Amount:        o.TotalAmount,
		PaymentMethod: method,
		PaymentStatus: model.PaymentCompleted,
		IssuedAt:      now,
	}
	if err := r.Bills.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("bill for order %d: %w", o.ID, err)
	}
	o.Status = next
	o.PaymentMethod = &m
	return b, nil
}

// BillService reads bills and corrects their payment status.
type BillService struct {
	base
}

func NewBillService(uow store.UnitOfWork, log *zap.Logger) *BillService {
	return &BillService{base: newBase(uow, log)}
}

// BillForOrder returns the bill issued for an order.
func (s *BillService) BillForOrder(ctx context.Context, actor model.Actor, orderID uint64) (bill *model.Bill, err error) {
	ctx, span := s.start(ctx, "bill.get_by_order", actor, attribute.Int64("order.id", int64(orderID)))
	defer func() { finish(span, err) }()

	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		bill, err = r.Bills.GetByOrderID(ctx, orderID)
		return err
	})
	return bill, err
}

// UpdatePaymentStatus records a settlement outcome reported after the
// bill was issued, e.g. a card payment that bounced.
func (s *BillService) UpdatePaymentStatus(ctx context.Context, actor model.Actor, billID uint64, status model.PaymentStatus) (bill *model.Bill, err error) {
	ctx, span := s.start(ctx, "bill.update_payment_status", actor,
		attribute.Int64("bill.id", int64(billID)), attribute.String("payment.status", string(status)))
	defer func() { finish(span, err) }()

	if !status.Valid() {
		err = fmt.Errorf("%w: unknown payment status %q", model.ErrInvalidArgument, status)
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		if err := r.Bills.UpdatePaymentStatus(ctx, billID, status); err != nil {
			return err
		}
		bill, err = r.Bills.GetByID(ctx, billID)
		return err
	})
	s.logResult("bill payment status updated", err, actorField(actor),
		zap.Uint64("bill_id", billID), zap.String("status", string(status)))
	return bill, err
}
