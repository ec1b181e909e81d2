package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type CreateOrderInput struct {
	ExternalID    string
	CustomerEmail string
	CustomerName  string
	Items         []ItemInput
}

type ListFilter struct {
	Status        string
	PaymentStatus string
	Search        string // customer name prefix
	Limit         int
	Offset        int
}

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, external_id, customer_email, customer_name, status, payment_status,
       items, total_cents, delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o     Order
		items []byte
	)
	err := row.Scan(&o.ID, &o.ExternalID, &o.CustomerEmail, &o.CustomerName, &o.Status,
		&o.PaymentStatus, &items, &o.TotalCents, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Items, err = DecodeItems(items)
	return o, err
}

// CreateOrder is idempotent via external_id: a repeat of an already-seen
// external_id returns the existing order with existed=true. Prices and names
// are taken from the products table, never trusted from the client, and items
// are persisted in the canonical line-item schema.
func (r *Repo) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, bool, error) {
	existing, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE external_id=$1`, in.ExternalID))
	if err == nil {
		return existing, true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	productIDs := make([]any, 0, len(in.Items))
	params := ""
	for i, it := range in.Items {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		productIDs = append(productIDs, it.ProductID)
	}
	rows, err := tx.Query(ctx, `SELECT id, name, price_cents FROM products WHERE id IN (`+params+`)`, productIDs...)
	if err != nil {
		return Order{}, false, err
	}
	type priced struct {
		name  string
		price int
	}
	prices := map[string]priced{}
	for rows.Next() {
		var id string
		var p priced
		if err := rows.Scan(&id, &p.name, &p.price); err != nil {
			return Order{}, false, err
		}
		prices[id] = p
	}
	if err := rows.Err(); err != nil {
		return Order{}, false, err
	}

	var (
		total int
		items = make([]LineItem, 0, len(in.Items))
	)
	for _, it := range in.Items {
		p, ok := prices[it.ProductID]
		if !ok {
			return Order{}, false, fmt.Errorf("%w: product not found: %s", ErrValidation, it.ProductID)
		}
		if it.Qty <= 0 {
			return Order{}, false, fmt.Errorf("%w: invalid qty for product %s", ErrValidation, it.ProductID)
		}
		total += p.price * it.Qty
		items = append(items, LineItem{
			ProductID:   it.ProductID,
			Quantity:    it.Qty,
			ProductName: p.name,
			PriceCents:  p.price,
			Size:        it.Size,
			Color:       it.Color,
		})
	}

	encoded, err := EncodeItems(items)
	if err != nil {
		return Order{}, false, err
	}

	o, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders(id, external_id, customer_email, customer_name, status, items, total_cents)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING `+orderCols,
		uuid.NewString(), in.ExternalID, in.CustomerEmail, in.CustomerName, encoded, total))
	if err != nil {
		// Two racers with the same external_id both miss the SELECT above;
		// the loser hits the unique constraint here. Hand it the winner's row.
		if isUniqueViolation(err) {
			_ = tx.Rollback(ctx)
			existing, rerr := scanOrder(r.DB.QueryRow(ctx,
				`SELECT `+orderCols+` FROM orders WHERE external_id=$1`, in.ExternalID))
			if rerr != nil {
				return Order{}, false, fmt.Errorf("%w: external_id %s", ErrAlreadyExists, in.ExternalID)
			}
			return existing, true, nil
		}
		return Order{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return o, false, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return o, err
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// UpdateStatus persists the already-validated transition. Callers run Apply
// first; this write commits before any inventory side effect starts.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, st Status, deliveredAt *time.Time) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders
		   SET status=$2,
		       delivered_at=COALESCE($3, delivered_at),
		       updated_at=now()
		 WHERE id=$1
		RETURNING `+orderCols, orderID, st, deliveredAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return o, err
}

func (r *Repo) collect(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, int, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	where := "TRUE"
	args := []any{}
	n := 0
	add := func(cond string, v any) {
		n++
		where += fmt.Sprintf(" AND %s $%d", cond, n)
		args = append(args, v)
	}
	if f.Status != "" {
		add("status =", f.Status)
	}
	if f.PaymentStatus != "" {
		add("payment_status =", f.PaymentStatus)
	}
	if f.Search != "" {
		add("customer_name ILIKE", f.Search+"%")
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(
		`SELECT `+orderCols+` FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.collect(rows)
	return out, total, err
}

func (r *Repo) ListByEmail(ctx context.Context, email string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders
		WHERE customer_email=$1 ORDER BY created_at DESC LIMIT $2`, email, limit)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// ListRecent feeds the audit rescan: the most recent orders regardless of
// status or owner.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

const productCols = `id, sku, name, brand, price_cents, units, initial_units, reserved,
       qty_delivered, qty_returned, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Brand, &p.PriceCents, &p.Units, &p.InitialUnits,
		&p.Reserved, &p.QtyDelivered, &p.QtyReturned, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, productID string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}
	return p, err
}

// CreateProduct stores the stock baseline once, at creation time. initial_units
// is never recomputed from order history afterwards.
func (r *Repo) CreateProduct(ctx context.Context, sku, name, brand string, priceCents, units int) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(id, sku, name, brand, price_cents, units, initial_units)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+productCols,
		uuid.NewString(), sku, name, brand, priceCents, units))
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
