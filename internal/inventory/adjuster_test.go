package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/orders"
)

// fakeStore applies the same clamp as the Postgres store, in memory.
type fakeStore struct {
	units     map[string]int
	movements []orders.Movement
	failOn    string
}

func (f *fakeStore) AdjustStock(_ context.Context, ch StockChange) (orders.Movement, error) {
	if ch.ProductID == f.failOn {
		return orders.Movement{}, errors.New("store unavailable")
	}
	current, ok := f.units[ch.ProductID]
	if !ok {
		return orders.Movement{}, orders.ErrNotFound
	}
	next := NextStock(current, ch)
	f.units[ch.ProductID] = next
	mv := orders.Movement{
		ProductID:     ch.ProductID,
		OrderID:       ch.OrderID,
		Type:          string(ch.Type),
		Quantity:      ch.Delta(),
		PreviousStock: current,
		NewStock:      next,
	}
	f.movements = append(f.movements, mv)
	return mv, nil
}

func newService(store *fakeStore) *Service {
	return &Service{Store: store, Log: zap.NewNop()}
}

func TestNextStock(t *testing.T) {
	assert.Equal(t, 3, NextStock(5, StockChange{Qty: 2, Type: MovementSale}))
	assert.Equal(t, 0, NextStock(5, StockChange{Qty: 5, Type: MovementSale}))
	assert.Equal(t, 0, NextStock(1, StockChange{Qty: 3, Type: MovementSale})) // clamp, never negative
	assert.Equal(t, 7, NextStock(5, StockChange{Qty: 2, Type: MovementReturn}))
}

func TestDeliveryThenReturn(t *testing.T) {
	store := &fakeStore{units: map[string]int{"p1": 5}}
	svc := newService(store)
	items := []orders.LineItem{{ProductID: "p1", Quantity: 2, ProductName: "Boots"}}

	require.NoError(t, svc.FinalizeDelivery(context.Background(), items, "order-a"))
	assert.Equal(t, 3, store.units["p1"])
	require.Len(t, store.movements, 1)
	assert.Equal(t, "sale", store.movements[0].Type)
	assert.Equal(t, -2, store.movements[0].Quantity)
	assert.Equal(t, 5, store.movements[0].PreviousStock)
	assert.Equal(t, 3, store.movements[0].NewStock)

	require.NoError(t, svc.ProcessReturn(context.Background(), items, "order-a"))
	assert.Equal(t, 5, store.units["p1"])
	require.Len(t, store.movements, 2)
	assert.Equal(t, "return", store.movements[1].Type)
	assert.Equal(t, 2, store.movements[1].Quantity)
	assert.Equal(t, 3, store.movements[1].PreviousStock)
	assert.Equal(t, 5, store.movements[1].NewStock)
}

func TestDeliveryClampsAtZero(t *testing.T) {
	store := &fakeStore{units: map[string]int{"p1": 1}}
	svc := newService(store)

	err := svc.FinalizeDelivery(context.Background(),
		[]orders.LineItem{{ProductID: "p1", Quantity: 3}}, "order-b")
	require.NoError(t, err)
	assert.Equal(t, 0, store.units["p1"])
	assert.Equal(t, -3, store.movements[0].Quantity)
	assert.Equal(t, 0, store.movements[0].NewStock)
}

func TestDeliverySkipsUnknownProduct(t *testing.T) {
	store := &fakeStore{units: map[string]int{"p1": 5}}
	svc := newService(store)

	err := svc.FinalizeDelivery(context.Background(), []orders.LineItem{
		{ProductID: orders.UnknownProduct, Quantity: 1, ProductName: "Unknown Product"},
		{ProductID: "p1", Quantity: 1},
	}, "order-c")
	require.NoError(t, err)
	assert.Equal(t, 4, store.units["p1"])
	assert.Len(t, store.movements, 1)
}

func TestDeliveryAbortsOnFirstFailure(t *testing.T) {
	store := &fakeStore{units: map[string]int{"p1": 5, "p2": 5, "p3": 5}, failOn: "p2"}
	svc := newService(store)

	err := svc.FinalizeDelivery(context.Background(), []orders.LineItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p3", Quantity: 1},
	}, "order-d")
	require.Error(t, err)
	assert.ErrorIs(t, err, orders.ErrInventoryAdjustment)
	assert.Contains(t, err.Error(), "p2")
	assert.Contains(t, err.Error(), "order-d")

	// p1 was already adjusted, p3 never reached: the documented recoverable
	// inconsistency the caller must surface.
	assert.Equal(t, 4, store.units["p1"])
	assert.Equal(t, 5, store.units["p3"])
	assert.Len(t, store.movements, 1)
}
