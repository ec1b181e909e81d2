package httpx

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/evanhart/shopfront/internal/orders"
)

// Handler-side views of the stores, narrow enough to fake in tests.

type OrderStore interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (orders.Order, bool, error)
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (orders.Status, error)
	UpdateStatus(ctx context.Context, orderID string, st orders.Status, deliveredAt *time.Time) (orders.Order, error)
	ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]orders.Order, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
	CreateProduct(ctx context.Context, sku, name, brand string, priceCents, units int) (orders.Product, error)
}

// HoldStore settles stock reservations when an order reaches a terminal state.
type HoldStore interface {
	ReleaseAll(ctx context.Context, orderID string) error
	ConsumeAll(ctx context.Context, orderID string) error
}

// Adjuster runs the stock side effects of delivered/returned transitions.
type Adjuster interface {
	FinalizeDelivery(ctx context.Context, items []orders.LineItem, orderID string) error
	ProcessReturn(ctx context.Context, items []orders.LineItem, orderID string) error
}

// EventPublisher is the buffered producer surface the handlers publish through.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}
