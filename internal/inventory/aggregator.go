package inventory

import (
	"context"
	"time"

	"github.com/evanhart/shopfront/internal/orders"
)

// LowStockThreshold is the single cutoff for the low_stock flag. Zero units is
// always an alert.
const LowStockThreshold = 5

type CatalogSource interface {
	ListProducts(ctx context.Context) ([]orders.Product, error)
	GetProduct(ctx context.Context, productID string) (orders.Product, error)
}

type OrderSource interface {
	ListRecent(ctx context.Context, limit int) ([]orders.Order, error)
}

type HoldSource interface {
	ReservedByProduct(ctx context.Context) (map[string]int, error)
}

type MovementSource interface {
	MovementsForProduct(ctx context.Context, productID string, limit int) ([]orders.Movement, error)
}

// Aggregator builds the admin-facing read models. The overview reads only the
// transactionally-maintained counters; the audit rescan is the slow path that
// replays recent order history to spot drift.
type Aggregator struct {
	Catalog   CatalogSource
	Orders    OrderSource
	Holds     HoldSource
	Movements MovementSource
	ScanLimit int
}

type OverviewItem struct {
	ProductID            string    `json:"id"`
	SKU                  string    `json:"sku"`
	Name                 string    `json:"name"`
	Brand                string    `json:"brand"`
	InitialStock         int       `json:"initial_stock"`
	QuantityDelivered    int       `json:"quantity_delivered"`
	QuantityReturned     int       `json:"quantity_returned"`
	QuantityInProcessing int       `json:"quantity_in_processing"`
	QuantityRemaining    int       `json:"quantity_remaining"`
	StockStatus          string    `json:"status"` // in | low_stock | alert
	LastUpdated          time.Time `json:"last_updated"`
}

func stockStatus(units int) string {
	switch {
	case units == 0:
		return "alert"
	case units < LowStockThreshold:
		return "low_stock"
	default:
		return "in"
	}
}

func (a *Aggregator) Overview(ctx context.Context) ([]OverviewItem, error) {
	products, err := a.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	holds, err := a.Holds.ReservedByProduct(ctx)
	if err != nil {
		return nil, err
	}
	return BuildOverview(products, holds), nil
}

// BuildOverview assembles the overview rows. initial_stock is the stored
// baseline and quantity_remaining the live counter; neither is derived from
// order history here.
func BuildOverview(products []orders.Product, holds map[string]int) []OverviewItem {
	out := make([]OverviewItem, 0, len(products))
	for _, p := range products {
		out = append(out, OverviewItem{
			ProductID:            p.ID,
			SKU:                  p.SKU,
			Name:                 p.Name,
			Brand:                p.Brand,
			InitialStock:         p.InitialUnits,
			QuantityDelivered:    p.QtyDelivered,
			QuantityReturned:     p.QtyReturned,
			QuantityInProcessing: holds[p.ID],
			QuantityRemaining:    p.Units,
			StockStatus:          stockStatus(p.Units),
			LastUpdated:          p.UpdatedAt,
		})
	}
	return out
}

// Tally buckets scanned line-item quantities by order status.
type Tally struct {
	InProcessing int `json:"in_processing"`
	Delivered    int `json:"delivered"`
	Returned     int `json:"returned"`
}

// TallyOrders replays order history: pending/processing/shipped count as
// in-processing, delivered and returned into their own buckets. Cancelled
// orders do not touch stock.
func TallyOrders(list []orders.Order) map[string]Tally {
	out := map[string]Tally{}
	for _, o := range list {
		for _, it := range o.Items {
			if it.ProductID == orders.UnknownProduct {
				continue
			}
			t := out[it.ProductID]
			switch o.Status {
			case orders.StatusPending, orders.StatusProcessing, orders.StatusShipped:
				t.InProcessing += it.Quantity
			case orders.StatusDelivered:
				t.Delivered += it.Quantity
			case orders.StatusReturned:
				t.Returned += it.Quantity
			}
			out[it.ProductID] = t
		}
	}
	return out
}

// AuditRow compares the running counters against a replay of recent orders.
// DriftUnits is live stock minus what the scan-derived formula predicts; a
// non-zero value flags a product for manual reconciliation.
type AuditRow struct {
	ProductID        string `json:"id"`
	SKU              string `json:"sku"`
	Name             string `json:"name"`
	InitialStock     int    `json:"initial_stock"`
	Units            int    `json:"units"`
	CounterDelivered int    `json:"counter_delivered"`
	CounterReturned  int    `json:"counter_returned"`
	Scanned          Tally  `json:"scanned"`
	ExpectedRemaining int   `json:"expected_remaining"`
	DriftUnits       int    `json:"drift_units"`
}

func (a *Aggregator) Audit(ctx context.Context) ([]AuditRow, error) {
	products, err := a.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := a.Orders.ListRecent(ctx, a.ScanLimit)
	if err != nil {
		return nil, err
	}
	return BuildAudit(products, TallyOrders(recent)), nil
}

func BuildAudit(products []orders.Product, tallies map[string]Tally) []AuditRow {
	out := make([]AuditRow, 0, len(products))
	for _, p := range products {
		t := tallies[p.ID]
		expected := p.InitialUnits - t.Delivered + t.Returned
		out = append(out, AuditRow{
			ProductID:         p.ID,
			SKU:               p.SKU,
			Name:              p.Name,
			InitialStock:      p.InitialUnits,
			Units:             p.Units,
			CounterDelivered:  p.QtyDelivered,
			CounterReturned:   p.QtyReturned,
			Scanned:           t,
			ExpectedRemaining: expected,
			DriftUnits:        p.Units - expected,
		})
	}
	return out
}

type PeriodSales struct {
	Sold         int `json:"sold"`
	RevenueCents int `json:"revenue_cents"`
}

type ProductAnalytics struct {
	ProductID    string      `json:"product_id"`
	Name         string      `json:"name"`
	Units        int         `json:"units"`
	TotalSold    int         `json:"total_sold"`
	RevenueCents int         `json:"revenue_cents"`
	Today        PeriodSales `json:"today"`
	ThisWeek     PeriodSales `json:"this_week"`
	ThisMonth    PeriodSales `json:"this_month"`
	ThisYear     PeriodSales `json:"this_year"`
	LastSaleAt   *time.Time  `json:"last_sale_at,omitempty"`

	// newest-first stock movement history for the admin console
	Movements []orders.Movement `json:"movements"`
}

// movementHistoryLimit caps the per-product history in the analytics payload.
const movementHistoryLimit = 20

func (a *Aggregator) ProductAnalytics(ctx context.Context, productID string) (ProductAnalytics, error) {
	p, err := a.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return ProductAnalytics{}, err
	}
	recent, err := a.Orders.ListRecent(ctx, a.ScanLimit)
	if err != nil {
		return ProductAnalytics{}, err
	}
	res := SalesFor(productID, recent, time.Now())
	res.Name = p.Name
	res.Units = p.Units

	mvs, err := a.Movements.MovementsForProduct(ctx, productID, movementHistoryLimit)
	if err != nil {
		return ProductAnalytics{}, err
	}
	if mvs == nil {
		mvs = []orders.Movement{}
	}
	res.Movements = mvs
	return res, nil
}

// SalesFor scans delivered orders for one product and buckets quantity and
// revenue by calendar period relative to now.
func SalesFor(productID string, list []orders.Order, now time.Time) ProductAnalytics {
	res := ProductAnalytics{ProductID: productID}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := todayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	for _, o := range list {
		if o.Status != orders.StatusDelivered {
			continue
		}
		for _, it := range o.Items {
			if it.ProductID != productID {
				continue
			}
			revenue := it.Quantity * it.PriceCents
			res.TotalSold += it.Quantity
			res.RevenueCents += revenue

			if res.LastSaleAt == nil || o.CreatedAt.After(*res.LastSaleAt) {
				t := o.CreatedAt
				res.LastSaleAt = &t
			}
			if !o.CreatedAt.Before(todayStart) {
				res.Today.Sold += it.Quantity
				res.Today.RevenueCents += revenue
			}
			if !o.CreatedAt.Before(weekStart) {
				res.ThisWeek.Sold += it.Quantity
				res.ThisWeek.RevenueCents += revenue
			}
			if !o.CreatedAt.Before(monthStart) {
				res.ThisMonth.Sold += it.Quantity
				res.ThisMonth.RevenueCents += revenue
			}
			if !o.CreatedAt.Before(yearStart) {
				res.ThisYear.Sold += it.Quantity
				res.ThisYear.RevenueCents += revenue
			}
		}
	}
	return res
}

type StockSummary struct {
	TotalProducts     int `json:"total_products"`
	InStock           int `json:"in_stock"`
	LowStock          int `json:"low_stock"`
	OutOfStock        int `json:"out_of_stock"`
	TotalUnits        int `json:"total_units"`
	TotalValueCents   int `json:"total_value_cents"`
	TotalSold         int `json:"total_sold"`
	TotalRevenueCents int `json:"total_revenue_cents"`
}

func (a *Aggregator) Summary(ctx context.Context) (StockSummary, error) {
	products, err := a.Catalog.ListProducts(ctx)
	if err != nil {
		return StockSummary{}, err
	}
	recent, err := a.Orders.ListRecent(ctx, a.ScanLimit)
	if err != nil {
		return StockSummary{}, err
	}
	return Summarize(products, recent), nil
}

func Summarize(products []orders.Product, list []orders.Order) StockSummary {
	s := StockSummary{TotalProducts: len(products)}
	for _, p := range products {
		s.TotalUnits += p.Units
		s.TotalValueCents += p.Units * p.PriceCents
		switch stockStatus(p.Units) {
		case "alert":
			s.OutOfStock++
		case "low_stock":
			s.LowStock++
		default:
			s.InStock++
		}
	}
	for _, o := range list {
		if o.Status != orders.StatusDelivered {
			continue
		}
		for _, it := range o.Items {
			s.TotalSold += it.Quantity
			s.TotalRevenueCents += it.Quantity * it.PriceCents
		}
	}
	return s
}
