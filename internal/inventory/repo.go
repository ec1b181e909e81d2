package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evanhart/shopfront/internal/orders"
)

// Repo is the Postgres store for stock counters, movements and reservations.
// Every mutation locks the product row first so concurrent changes to the same
// product serialize instead of racing on read-modify-write.
type Repo struct{ DB *pgxpool.Pool }

// AdjustStock locks the product, applies the clamped change, bumps the running
// delivered/returned counter and inserts the movement row in one transaction.
func (r *Repo) AdjustStock(ctx context.Context, ch StockChange) (orders.Movement, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return orders.Movement{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current int
	err = tx.QueryRow(ctx, `SELECT units FROM products WHERE id=$1 FOR UPDATE`, ch.ProductID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Movement{}, fmt.Errorf("%w: product %s", orders.ErrNotFound, ch.ProductID)
	}
	if err != nil {
		return orders.Movement{}, err
	}

	next := NextStock(current, ch)
	counter := "qty_returned"
	if ch.Type == MovementSale {
		counter = "qty_delivered"
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(
		`UPDATE products SET units=$2, %s=%s+$3, updated_at=now() WHERE id=$1`, counter, counter),
		ch.ProductID, next, ch.Qty)
	if err != nil {
		return orders.Movement{}, err
	}

	mv := orders.Movement{
		ProductID:     ch.ProductID,
		OrderID:       ch.OrderID,
		Type:          string(ch.Type),
		Quantity:      ch.Delta(),
		PreviousStock: current,
		NewStock:      next,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_movements(product_id, order_id, movement_type, quantity, previous_stock, new_stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		mv.ProductID, mv.OrderID, mv.Type, mv.Quantity, mv.PreviousStock, mv.NewStock,
	).Scan(&mv.ID, &mv.CreatedAt)
	if err != nil {
		return orders.Movement{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return orders.Movement{}, err
	}
	return mv, nil
}

// AlreadyReserved short-circuits redelivered OrderCreated events.
func (r *Repo) AlreadyReserved(ctx context.Context, orderID string, itemCount int) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE order_id = $1 AND status = 'RESERVED'`, orderID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == itemCount, nil
}

// ReserveAll places a hold per item: lock the product, check units minus the
// existing holds, bump reserved, record the reservation. Any shortage rolls
// the whole order's holds back and returns the rejected details.
func (r *Repo) ReserveAll(ctx context.Context, orderID string, items []orders.ItemQty) (bool, []orders.StockRejectedDetail, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rejects []orders.StockRejectedDetail

	for _, it := range items {
		var units, reserved int
		err := tx.QueryRow(ctx, `SELECT units, reserved FROM products WHERE id=$1 FOR UPDATE`, it.ProductID).
			Scan(&units, &reserved)
		if errors.Is(err, pgx.ErrNoRows) {
			rejects = append(rejects, orders.StockRejectedDetail{
				ProductID: it.ProductID, Required: it.Qty, Available: 0,
			})
			continue
		}
		if err != nil {
			return false, nil, err
		}

		available := units - reserved
		if available < it.Qty {
			rejects = append(rejects, orders.StockRejectedDetail{
				ProductID: it.ProductID, Required: it.Qty, Available: available,
			})
			continue
		}

		if _, err := tx.Exec(ctx, `UPDATE products SET reserved = reserved + $2, updated_at=now() WHERE id=$1`,
			it.ProductID, it.Qty); err != nil {
			return false, nil, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations(order_id, product_id, qty, status)
			VALUES ($1, $2, $3, 'RESERVED')
			ON CONFLICT (order_id, product_id) DO NOTHING
		`, orderID, it.ProductID, it.Qty); err != nil {
			return false, nil, err
		}
	}

	if len(rejects) > 0 {
		return false, rejects, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// ReleaseAll drops an order's live holds without touching units: cancellation
// and rejected reservations put the stock back on sale.
func (r *Repo) ReleaseAll(ctx context.Context, orderID string) error {
	return r.settle(ctx, orderID, "RELEASED")
}

// ConsumeAll retires an order's holds on delivery; the units decrement happens
// separately in AdjustStock.
func (r *Repo) ConsumeAll(ctx context.Context, orderID string) error {
	return r.settle(ctx, orderID, "CONSUMED")
}

func (r *Repo) settle(ctx context.Context, orderID, terminal string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT product_id, qty FROM reservations WHERE order_id=$1 AND status='RESERVED'`, orderID)
	if err != nil {
		return err
	}
	type rec struct {
		pid string
		qty int
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.pid, &x.qty); err != nil {
			rows.Close()
			return err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx, `UPDATE products SET reserved = GREATEST(0, reserved - $2), updated_at=now() WHERE id=$1`,
			x.pid, x.qty); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status=$2 WHERE order_id=$1 AND status='RESERVED'`,
		orderID, terminal); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReservedByProduct sums live holds per product for the overview's
// in-processing column.
func (r *Repo) ReservedByProduct(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, COALESCE(SUM(qty), 0)
		FROM reservations WHERE status='RESERVED' GROUP BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var pid string
		var qty int
		if err := rows.Scan(&pid, &qty); err != nil {
			return nil, err
		}
		out[pid] = qty
	}
	return out, rows.Err()
}

// MovementsForProduct returns the newest movement rows for one product.
func (r *Repo) MovementsForProduct(ctx context.Context, productID string, limit int) ([]orders.Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, order_id, movement_type, quantity, previous_stock, new_stock, created_at
		FROM inventory_movements WHERE product_id=$1 ORDER BY created_at DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []orders.Movement
	for rows.Next() {
		var m orders.Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.OrderID, &m.Type, &m.Quantity,
			&m.PreviousStock, &m.NewStock, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
