package httpx

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/evanhart/shopfront/internal/orders"
)

type fakeOrderStore struct {
	byID      map[string]orders.Order
	products  []orders.Product
	updateErr error
}

func newFakeOrderStore(list ...orders.Order) *fakeOrderStore {
	s := &fakeOrderStore{byID: map[string]orders.Order{}}
	for _, o := range list {
		s.byID[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) CreateOrder(_ context.Context, in orders.CreateOrderInput) (orders.Order, bool, error) {
	for _, o := range s.byID {
		if o.ExternalID == in.ExternalID {
			return o, true, nil
		}
	}
	o := orders.Order{ID: "generated-" + in.ExternalID, ExternalID: in.ExternalID, CustomerEmail: in.CustomerEmail, Status: orders.StatusPending}
	s.byID[o.ID] = o
	return o, false, nil
}

func (s *fakeOrderStore) GetOrder(_ context.Context, orderID string) (orders.Order, error) {
	o, ok := s.byID[orderID]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: order %s", orders.ErrNotFound, orderID)
	}
	return o, nil
}

func (s *fakeOrderStore) GetOrderStatus(ctx context.Context, orderID string) (orders.Status, error) {
	o, err := s.GetOrder(ctx, orderID)
	return o.Status, err
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, orderID string, st orders.Status, deliveredAt *time.Time) (orders.Order, error) {
	if s.updateErr != nil {
		return orders.Order{}, s.updateErr
	}
	o, ok := s.byID[orderID]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: order %s", orders.ErrNotFound, orderID)
	}
	o.Status = st
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	s.byID[orderID] = o
	return o, nil
}

func (s *fakeOrderStore) ListOrders(_ context.Context, f orders.ListFilter) ([]orders.Order, int, error) {
	var out []orders.Order
	for _, o := range s.byID {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (s *fakeOrderStore) ListByEmail(_ context.Context, email string, _ int) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range s.byID {
		if o.CustomerEmail == email {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) ListProducts(_ context.Context) ([]orders.Product, error) {
	return s.products, nil
}

func (s *fakeOrderStore) CreateProduct(_ context.Context, sku, name, brand string, priceCents, units int) (orders.Product, error) {
	p := orders.Product{ID: sku, SKU: sku, Name: name, Brand: brand, PriceCents: priceCents, Units: units, InitialUnits: units}
	s.products = append(s.products, p)
	return p, nil
}

type fakePublisher struct {
	published [][]byte
}

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.published = append(p.published, value)
}

type fakeHolds struct {
	released []string
	consumed []string
	err      error
}

func (h *fakeHolds) ReleaseAll(_ context.Context, orderID string) error {
	if h.err != nil {
		return h.err
	}
	h.released = append(h.released, orderID)
	return nil
}

func (h *fakeHolds) ConsumeAll(_ context.Context, orderID string) error {
	if h.err != nil {
		return h.err
	}
	h.consumed = append(h.consumed, orderID)
	return nil
}

type fakeAdjuster struct {
	delivered []string
	returned  []string
	err       error
}

func (a *fakeAdjuster) FinalizeDelivery(_ context.Context, _ []orders.LineItem, orderID string) error {
	if a.err != nil {
		return fmt.Errorf("%w: %v", orders.ErrInventoryAdjustment, a.err)
	}
	a.delivered = append(a.delivered, orderID)
	return nil
}

func (a *fakeAdjuster) ProcessReturn(_ context.Context, _ []orders.LineItem, orderID string) error {
	if a.err != nil {
		return fmt.Errorf("%w: %v", orders.ErrInventoryAdjustment, a.err)
	}
	a.returned = append(a.returned, orderID)
	return nil
}
