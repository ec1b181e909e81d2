package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/evanhart/shopfront/internal/kafka"
	"github.com/evanhart/shopfront/internal/orders"
	"github.com/evanhart/shopfront/internal/redisx"
)

// StatusFlow is the one place a status transition happens, shared by the admin
// and customer endpoints. The status write commits first; inventory side
// effects run after it and their failure comes back as an
// ErrInventoryAdjustment the handler turns into a partial-success response.
type StatusFlow struct {
	Orders   OrderStore
	Holds    HoldStore
	Adjuster Adjuster
	Producer EventPublisher // order.status.changed
	Redis    *redis.Client
	Service  string
	Log      *zap.Logger
}

// Apply validates the transition against the state machine, persists it and
// runs the side effects for the action. The returned order reflects the
// committed status even when the error is non-nil.
func (f *StatusFlow) Apply(ctx context.Context, o orders.Order, action orders.Action, traceID string) (orders.Order, error) {
	next, err := orders.Apply(o.Status, action)
	if err != nil {
		return o, err
	}

	var deliveredAt *time.Time
	if action == orders.ActionMarkDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	updated, err := f.Orders.UpdateStatus(ctx, o.ID, next, deliveredAt)
	if err != nil {
		return o, err
	}
	f.cacheStatus(ctx, updated)
	f.publishStatusChanged(o.Status, updated, action, traceID)

	switch action {
	case orders.ActionMarkDelivered:
		if err := f.Holds.ConsumeAll(ctx, o.ID); err != nil {
			return updated, fmt.Errorf("%w: consume reservations for order %s: %v",
				orders.ErrInventoryAdjustment, o.ID, err)
		}
		if err := f.Adjuster.FinalizeDelivery(ctx, updated.Items, o.ID); err != nil {
			return updated, err
		}
	case orders.ActionMarkReturned:
		if err := f.Adjuster.ProcessReturn(ctx, updated.Items, o.ID); err != nil {
			return updated, err
		}
	case orders.ActionMarkCancelled:
		if err := f.Holds.ReleaseAll(ctx, o.ID); err != nil {
			return updated, fmt.Errorf("%w: release reservations for order %s: %v",
				orders.ErrInventoryAdjustment, o.ID, err)
		}
	}
	return updated, nil
}

func (f *StatusFlow) cacheStatus(ctx context.Context, o orders.Order) {
	if f.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	body := fmt.Sprintf(`{"status":%q}`, o.Status)
	_ = f.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (f *StatusFlow) publishStatusChanged(from orders.Status, o orders.Order, action orders.Action, traceID string) {
	if f.Producer == nil {
		return
	}
	ev := orders.NewEnvelope(orders.EventOrderStatusChanged, f.Service, traceID, o.ID,
		kafkax.MustMarshal(orders.OrderStatusChangedPayload{
			OrderID: o.ID,
			From:    from,
			To:      o.Status,
			Action:  action,
		}))
	f.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
