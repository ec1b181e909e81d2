package inventory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/orders"
)

type MovementType string

const (
	MovementSale   MovementType = "sale"
	MovementReturn MovementType = "return"
)

// StockChange is one stock mutation for one order line. Qty is the positive
// unit count from the line item; the movement record carries the signed value.
type StockChange struct {
	ProductID string
	OrderID   string
	Qty       int
	Type      MovementType
}

// NextStock computes the stock level after a change. Sales clamp at zero so
// the counter never goes negative even when an oversold order is delivered.
func NextStock(current int, ch StockChange) int {
	if ch.Type == MovementSale {
		if next := current - ch.Qty; next > 0 {
			return next
		}
		return 0
	}
	return current + ch.Qty
}

// Delta is the signed quantity recorded on the movement row.
func (ch StockChange) Delta() int {
	if ch.Type == MovementSale {
		return -ch.Qty
	}
	return ch.Qty
}

// Store applies one stock change atomically: the counter update and the
// movement row commit or roll back together.
type Store interface {
	AdjustStock(ctx context.Context, ch StockChange) (orders.Movement, error)
}

// Service runs the inventory side effects of order status transitions. The
// order's status has already been committed by the time these run, so an error
// here means a recoverable inconsistency the caller must surface, not roll back.
type Service struct {
	Store Store
	Log   *zap.Logger
}

// FinalizeDelivery decrements stock for every resolvable line item and logs a
// sale movement per item. The first failing item aborts the loop.
func (s *Service) FinalizeDelivery(ctx context.Context, items []orders.LineItem, orderID string) error {
	return s.apply(ctx, items, orderID, MovementSale)
}

// ProcessReturn is the symmetric increment with a return movement.
func (s *Service) ProcessReturn(ctx context.Context, items []orders.LineItem, orderID string) error {
	return s.apply(ctx, items, orderID, MovementReturn)
}

func (s *Service) apply(ctx context.Context, items []orders.LineItem, orderID string, t MovementType) error {
	for _, it := range items {
		if it.ProductID == orders.UnknownProduct {
			s.Log.Info("skipping inventory change for unresolved product",
				zap.String("order_id", orderID), zap.String("product_name", it.ProductName))
			continue
		}
		mv, err := s.Store.AdjustStock(ctx, StockChange{
			ProductID: it.ProductID,
			OrderID:   orderID,
			Qty:       it.Quantity,
			Type:      t,
		})
		if err != nil {
			return fmt.Errorf("%w: product %s order %s: %v",
				orders.ErrInventoryAdjustment, it.ProductID, orderID, err)
		}
		s.Log.Info("stock adjusted",
			zap.String("order_id", orderID),
			zap.String("product_id", mv.ProductID),
			zap.String("type", mv.Type),
			zap.Int("quantity", mv.Quantity),
			zap.Int("previous_stock", mv.PreviousStock),
			zap.Int("new_stock", mv.NewStock))
	}
	return nil
}
