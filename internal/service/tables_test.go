package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/notify"
)

func TestTableCreateAndList(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	svc := NewTableService(f.store, f.pub, zap.NewNop())
	ctx := context.Background()

	big, err := svc.Create(ctx, boss, "Window", 2, 6)
	require.NoError(t, err)
	assert.Equal(t, model.TableFree, big.Status)
	small, err := svc.Create(ctx, boss, " Bar ", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Bar", small.Name)

	_, err = svc.Create(ctx, boss, "Dup", 2, 4)
	assert.ErrorIs(t, err, model.ErrConflict)
	_, err = svc.Create(ctx, boss, "", 3, 4)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = svc.Create(ctx, boss, "Zero", 3, 0)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = f.wf.CreateOrder(ctx, waiter, small.ID, 0)
	require.NoError(t, err)

	all, err := svc.List(ctx, waiter, TableFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Number)

	free, err := svc.List(ctx, waiter, TableFilter{Status: model.TableFree})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, big.ID, free[0].ID)

	occupied, err := svc.List(ctx, waiter, TableFilter{Status: model.TableOccupied})
	require.NoError(t, err)
	require.Len(t, occupied, 1)
	assert.Equal(t, small.ID, occupied[0].ID)

	roomy, err := svc.List(ctx, waiter, TableFilter{MinCapacity: 4})
	require.NoError(t, err)
	require.Len(t, roomy, 1)
	assert.Equal(t, big.ID, roomy[0].ID)

	_, err = svc.List(ctx, waiter, TableFilter{Status: "BROKEN"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = svc.Get(ctx, waiter, 404)
	assert.ErrorIs(t, err, model.ErrTableNotFound)
}

func TestSetTableStatus(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	svc := NewTableService(f.store, f.pub, zap.NewNop())
	ctx := context.Background()
	walkIn := f.table(1, 2)
	ordered := f.table(2, 2)

	tb, err := svc.SetTableStatus(ctx, waiter, walkIn, model.TableOccupied)
	require.NoError(t, err)
	assert.Equal(t, model.TableOccupied, tb.Status)
	_, err = svc.SetTableStatus(ctx, waiter, walkIn, model.TableOccupied)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	tb, err = svc.SetTableStatus(ctx, waiter, walkIn, model.TableFree)
	require.NoError(t, err)
	assert.Equal(t, model.TableFree, tb.Status)

	order, err := f.wf.CreateOrder(ctx, waiter, ordered, 0)
	require.NoError(t, err)
	f.pub.reset()
	_, err = svc.SetTableStatus(ctx, waiter, ordered, model.TableFree)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	assert.Equal(t, model.TableOccupied, f.tableStatus(t, ordered))
	assert.Empty(t, f.pub.topics())

	require.NoError(t, f.wf.DeleteOrder(ctx, waiter, order.ID))
	assert.Equal(t, model.TableFree, f.tableStatus(t, ordered))

	_, err = svc.SetTableStatus(ctx, waiter, ordered, "DIRTY")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = svc.SetTableStatus(ctx, waiter, 404, model.TableOccupied)
	assert.ErrorIs(t, err, model.ErrTableNotFound)
}

func TestTableStatusIsPublished(t *testing.T) {
	f := newFixture(t, WorkflowOptions{})
	svc := NewTableService(f.store, f.pub, zap.NewNop())
	id := f.table(1, 2)

	_, err := svc.SetTableStatus(context.Background(), waiter, id, model.TableOccupied)
	require.NoError(t, err)
	require.Len(t, f.pub.events, 1)
	ev := f.pub.events[0]
	assert.Equal(t, notify.TopicTables, ev.topic)
	assert.Equal(t, waiter, ev.actor)
	assert.Equal(t, notify.TableStatus{TableID: id, Status: model.TableOccupied}, ev.payload)
}
