// Package service holds the use cases of the café POS: the order workflow
// that ties orders, stock, tables and billing together, plus the smaller
// table, bill and catalog services. Every command runs in one
// store.UnitOfWork and publishes its notifications only after commit.
package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/store"
)

const tracerName = "github.com/iliyamo/cafe-pos/internal/service"

type base struct {
	uow    store.UnitOfWork
	log    *zap.Logger
	tracer trace.Tracer
}

func newBase(uow store.UnitOfWork, log *zap.Logger) base {
	if log == nil {
		log = zap.NewNop()
	}
	return base{uow: uow, log: log, tracer: otel.Tracer(tracerName)}
}

func (b base) start(ctx context.Context, name string, actor model.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.Int64("actor.id", int64(actor.UserID)), attribute.String("actor.role", actor.Role))
	return b.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// rejected reports whether err is a business-rule rejection rather than an
// infrastructure failure.
func rejected(err error) bool {
	return errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrInsufficientStock) ||
		errors.Is(err, model.ErrInvalidState) ||
		errors.Is(err, model.ErrInvalidArgument) ||
		errors.Is(err, model.ErrConflict)
}

func (b base) logResult(op string, err error, fields ...zap.Field) {
	switch {
	case err == nil:
		b.log.Info(op, fields...)
	case rejected(err):
		b.log.Info(op+" rejected", append(fields, zap.Error(err))...)
	default:
		b.log.Error(op+" failed", append(fields, zap.Error(err))...)
	}
}

func actorField(a model.Actor) zap.Field { return zap.Uint64("actor_id", a.UserID) }

// withItems attaches each order's items in one batched read.
func withItems(ctx context.Context, r store.Repos, orders []model.Order) ([]model.Order, error) {
	if len(orders) == 0 {
		return []model.Order{}, nil
	}
	ids := make([]uint64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	byOrder, err := r.Items.ListByOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []model.OrderItem{}
		}
	}
	return orders, nil
}
