package httpx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/orders"
)

func newFlow(store *fakeOrderStore, holds *fakeHolds, adj *fakeAdjuster) *StatusFlow {
	return &StatusFlow{
		Orders:   store,
		Holds:    holds,
		Adjuster: adj,
		Service:  "test",
		Log:      zap.NewNop(),
	}
}

func TestFlowMarkProcessing(t *testing.T) {
	store := newFakeOrderStore(orders.Order{ID: "o1", Status: orders.StatusPending})
	holds := &fakeHolds{}
	adj := &fakeAdjuster{}

	updated, err := newFlow(store, holds, adj).Apply(context.Background(), store.byID["o1"], orders.ActionMarkProcessing, "")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusProcessing, updated.Status)
	assert.Empty(t, holds.consumed)
	assert.Empty(t, holds.released)
	assert.Empty(t, adj.delivered)
}

func TestFlowMarkDelivered(t *testing.T) {
	store := newFakeOrderStore(orders.Order{
		ID:     "o1",
		Status: orders.StatusShipped,
		Items:  []orders.LineItem{{ProductID: "p1", Quantity: 2}},
	})
	holds := &fakeHolds{}
	adj := &fakeAdjuster{}

	updated, err := newFlow(store, holds, adj).Apply(context.Background(), store.byID["o1"], orders.ActionMarkDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDelivered, updated.Status)
	require.NotNil(t, updated.DeliveredAt)
	assert.Equal(t, []string{"o1"}, holds.consumed)
	assert.Equal(t, []string{"o1"}, adj.delivered)
}

func TestFlowInvalidTransitionLeavesStatus(t *testing.T) {
	store := newFakeOrderStore(orders.Order{ID: "o1", Status: orders.StatusDelivered})
	holds := &fakeHolds{}
	adj := &fakeAdjuster{}

	// no delivered->delivered entry: the repeat fails before any write, so a
	// double mark_delivered can never double-decrement stock
	_, err := newFlow(store, holds, adj).Apply(context.Background(), store.byID["o1"], orders.ActionMarkDelivered, "")
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	assert.Equal(t, orders.StatusDelivered, store.byID["o1"].Status)
	assert.Empty(t, adj.delivered)
	assert.Empty(t, holds.consumed)
}

func TestFlowAdjusterFailureIsPartialSuccess(t *testing.T) {
	store := newFakeOrderStore(orders.Order{ID: "o1", Status: orders.StatusShipped})
	holds := &fakeHolds{}
	adj := &fakeAdjuster{err: errors.New("stock write failed")}

	updated, err := newFlow(store, holds, adj).Apply(context.Background(), store.byID["o1"], orders.ActionMarkDelivered, "")
	require.ErrorIs(t, err, orders.ErrInventoryAdjustment)
	// the status write already committed
	assert.Equal(t, orders.StatusDelivered, updated.Status)
	assert.Equal(t, orders.StatusDelivered, store.byID["o1"].Status)
}

func TestFlowMarkCancelledReleasesHolds(t *testing.T) {
	store := newFakeOrderStore(orders.Order{ID: "o1", Status: orders.StatusProcessing})
	holds := &fakeHolds{}
	adj := &fakeAdjuster{}

	updated, err := newFlow(store, holds, adj).Apply(context.Background(), store.byID["o1"], orders.ActionMarkCancelled, "")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, updated.Status)
	assert.Equal(t, []string{"o1"}, holds.released)
}

func TestFlowMarkReturnedRunsReturn(t *testing.T) {
	store := newFakeOrderStore(orders.Order{
		ID:     "o1",
		Status: orders.StatusDelivered,
		Items:  []orders.LineItem{{ProductID: "p1", Quantity: 2}},
	})
	holds := &fakeHolds{}
	adj := &fakeAdjuster{}

	updated, err := newFlow(store, holds, adj).Apply(context.Background(), store.byID["o1"], orders.ActionMarkReturned, "")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusReturned, updated.Status)
	assert.Equal(t, []string{"o1"}, adj.returned)
	assert.Empty(t, holds.released)
}
