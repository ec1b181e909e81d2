package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate provisions the schema. Statements are idempotent so both binaries
// can run it on boot without coordination.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id            TEXT PRIMARY KEY,
			sku           TEXT UNIQUE NOT NULL,
			name          TEXT NOT NULL,
			brand         TEXT NOT NULL DEFAULT '',
			price_cents   INT  NOT NULL,
			units         INT  NOT NULL DEFAULT 0,
			initial_units INT  NOT NULL DEFAULT 0,
			reserved      INT  NOT NULL DEFAULT 0,
			qty_delivered INT  NOT NULL DEFAULT 0,
			qty_returned  INT  NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id             TEXT PRIMARY KEY,
			external_id    TEXT UNIQUE NOT NULL,
			customer_email TEXT NOT NULL,
			customer_name  TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'pending',
			payment_status TEXT NOT NULL DEFAULT 'unpaid',
			items          JSONB NOT NULL DEFAULT '[]',
			total_cents    INT  NOT NULL DEFAULT 0,
			delivered_at   TIMESTAMPTZ,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_movements (
			id             BIGSERIAL PRIMARY KEY,
			product_id     TEXT NOT NULL,
			order_id       TEXT NOT NULL,
			movement_type  TEXT NOT NULL,
			quantity       INT  NOT NULL,
			previous_stock INT  NOT NULL,
			new_stock      INT  NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			order_id   TEXT NOT NULL,
			product_id TEXT NOT NULL,
			qty        INT  NOT NULL,
			status     TEXT NOT NULL DEFAULT 'RESERVED',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (order_id, product_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer_email ON orders(customer_email, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_product ON inventory_movements(product_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_product ON reservations(product_id) WHERE status = 'RESERVED'`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
