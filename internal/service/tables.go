package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/notify"
	"github.com/iliyamo/cafe-pos/internal/store"
)

// TableFilter narrows a table listing. Zero values match everything.
type TableFilter struct {
	Status      model.TableStatus
	MinCapacity int
}

// TableService manages the floor plan.
type TableService struct {
	base
	pub notify.Publisher
}

func NewTableService(uow store.UnitOfWork, pub notify.Publisher, log *zap.Logger) *TableService {
	if pub == nil {
		pub = notify.Discard{}
	}
	return &TableService{base: newBase(uow, log), pub: pub}
}

// List returns tables ordered by number. Only FREE is a supported status
// filter; the capacity filter is applied on top of it.
func (s *TableService) List(ctx context.Context, actor model.Actor, f TableFilter) (tables []model.CoffeeTable, err error) {
	ctx, span := s.start(ctx, "table.list", actor,
		attribute.String("filter.status", string(f.Status)), attribute.Int("filter.min_capacity", f.MinCapacity))
	defer func() { finish(span, err) }()

	if f.Status != "" && !f.Status.Valid() {
		err = fmt.Errorf("%w: unknown table status %q", model.ErrInvalidArgument, f.Status)
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		var err error
		switch {
		case f.Status == model.TableFree:
			tables, err = r.Tables.FindFree(ctx)
		case f.MinCapacity > 0:
			tables, err = r.Tables.FindByCapacityAtLeast(ctx, f.MinCapacity)
		default:
			tables, err = r.Tables.List(ctx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	out := tables[:0]
	for _, t := range tables {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if t.Capacity < f.MinCapacity {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *TableService) Get(ctx context.Context, actor model.Actor, tableID uint64) (table *model.CoffeeTable, err error) {
	ctx, span := s.start(ctx, "table.get", actor, attribute.Int64("table.id", int64(tableID)))
	defer func() { finish(span, err) }()

	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		table, err = r.Tables.GetByID(ctx, tableID)
		return err
	})
	return table, err
}

// Create adds a FREE table. Numbers are unique.
func (s *TableService) Create(ctx context.Context, actor model.Actor, name string, number, capacity int) (table *model.CoffeeTable, err error) {
	ctx, span := s.start(ctx, "table.create", actor, attribute.Int("table.number", number))
	defer func() { finish(span, err) }()

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		err = fmt.Errorf("%w: table name required", model.ErrInvalidArgument)
	case number <= 0:
		err = fmt.Errorf("%w: table number must be positive", model.ErrInvalidArgument)
	case capacity <= 0:
		err = fmt.Errorf("%w: table capacity must be positive", model.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		t := &model.CoffeeTable{Name: name, Number: number, Capacity: capacity, Status: model.TableFree}
		if err := r.Tables.Create(ctx, t); err != nil {
			return fmt.Errorf("table number %d: %w", number, err)
		}
		table = t
		return nil
	})
	s.logResult("table created", err, actorField(actor), zap.Int("number", number))
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, actor, notify.TopicTables, notify.TableStatus{TableID: table.ID, Status: table.Status})
	return table, nil
}

// SetTableStatus is the manual override used by floor staff. Marking a
// table OCCUPIED seats a walk-in and is rejected when it is already
// occupied. Marking it FREE is only allowed once no order is bound to it;
// otherwise deleting the order is the way to free it.
func (s *TableService) SetTableStatus(ctx context.Context, actor model.Actor, tableID uint64, status model.TableStatus) (table *model.CoffeeTable, err error) {
	ctx, span := s.start(ctx, "table.set_status", actor,
		attribute.Int64("table.id", int64(tableID)), attribute.String("table.status", string(status)))
	defer func() { finish(span, err) }()

	var event model.TableEvent
	switch status {
	case model.TableOccupied:
		event = model.TableEventSeat
	case model.TableFree:
		event = model.TableEventRelease
	default:
		err = fmt.Errorf("%w: unknown table status %q", model.ErrInvalidArgument, status)
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		t, err := r.Tables.Lock(ctx, tableID)
		if err != nil {
			return err
		}
		if event == model.TableEventRelease {
			n, err := r.Orders.CountByTable(ctx, tableID)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: table %d still has %d order(s)", model.ErrInvalidState, tableID, n)
			}
		}
		if t.Status, err = t.Status.Apply(event); err != nil {
			return fmt.Errorf("table %d: %w", tableID, err)
		}
		if err := r.Tables.SetStatus(ctx, tableID, t.Status); err != nil {
			return err
		}
		table = t
		return nil
	})
	s.logResult("table status set", err, actorField(actor),
		zap.Uint64("table_id", tableID), zap.String("status", string(status)))
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, actor, notify.TopicTables, notify.TableStatus{TableID: tableID, Status: table.Status})
	return table, nil
}
