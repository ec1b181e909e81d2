package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/evanhart/shopfront/internal/kafka"
	"github.com/evanhart/shopfront/internal/orders"
	"github.com/evanhart/shopfront/internal/redisx"
)

// ReservationStore is the slice of the repo the worker needs.
type ReservationStore interface {
	AlreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error)
	ReserveAll(ctx context.Context, orderID string, items []orders.ItemQty) (bool, []orders.StockRejectedDetail, error)
}

// Publisher is the buffered producer surface the worker publishes through.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Dedup remembers handled event ids across redeliveries.
type Dedup interface {
	Seen(ctx context.Context, key string) bool
	Mark(ctx context.Context, key string)
}

// Worker consumes order.created, places the stock holds and publishes the
// outcome. Redelivered events are deduped and short-circuited against
// already-recorded reservations, so reprocessing is harmless.
type Worker struct {
	Store          ReservationStore
	Dedup          Dedup
	ProducerOK     Publisher // order.stock.reserved
	ProducerReject Publisher // order.stock.rejected
	ServiceName    string
	Log            *zap.Logger
}

func (w *Worker) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "inventory", env.EventID)
	if w.Dedup.Seen(ctx, dkey) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	items := make([]orders.ItemQty, 0, len(p.Items))
	for _, it := range p.Items {
		if it.ProductID == orders.UnknownProduct {
			continue
		}
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	if len(items) == 0 {
		w.Log.Warn("order has no resolvable items, nothing to reserve", zap.String("order_id", p.OrderID))
		w.Dedup.Mark(ctx, dkey)
		return nil
	}

	if ok, _ := w.Store.AlreadyReserved(ctx, p.OrderID, len(items)); ok {
		w.publishReserved(p.OrderID, items, env.TraceID)
		w.Dedup.Mark(ctx, dkey)
		return nil
	}

	// marked only once the reserve attempt has an outcome: a transient store
	// error leaves the event unmarked so the redelivery is not skipped
	ok, details, err := w.Store.ReserveAll(ctx, p.OrderID, items)
	if err != nil {
		return err
	}
	if ok {
		w.Log.Info("stock reserved", zap.String("order_id", p.OrderID), zap.Int("items", len(items)))
		w.publishReserved(p.OrderID, items, env.TraceID)
	} else {
		w.Log.Info("stock rejected", zap.String("order_id", p.OrderID), zap.Int("shortages", len(details)))
		w.publishRejected(p.OrderID, details, env.TraceID)
	}
	w.Dedup.Mark(ctx, dkey)
	return nil
}

func (w *Worker) publishReserved(orderID string, items []orders.ItemQty, trace string) {
	ev := orders.NewEnvelope(orders.EventStockReserved, w.ServiceName, trace, orderID,
		kafkax.MustMarshal(orders.StockReservedPayload{OrderID: orderID, Items: items}))
	w.ProducerOK.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockReserved)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (w *Worker) publishRejected(orderID string, details []orders.StockRejectedDetail, trace string) {
	ev := orders.NewEnvelope(orders.EventStockRejected, w.ServiceName, trace, orderID,
		kafkax.MustMarshal(orders.StockRejectedPayload{
			OrderID: orderID, Reason: "OUT_OF_STOCK", Details: details,
		}))
	w.ProducerReject.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
