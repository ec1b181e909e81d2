package orders

import "time"

type Product struct {
	ID           string    `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand"`
	PriceCents   int       `json:"price_cents"`
	Units        int       `json:"units"`
	InitialUnits int       `json:"initial_units"`
	Reserved     int       `json:"reserved"`
	QtyDelivered int       `json:"qty_delivered"`
	QtyReturned  int       `json:"qty_returned"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Order struct {
	ID            string     `json:"id"`
	ExternalID    string     `json:"external_id"`
	CustomerEmail string     `json:"customer_email"`
	CustomerName  string     `json:"customer_name"`
	Status        Status     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	Items         []LineItem `json:"items"`
	TotalCents    int        `json:"total_cents"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Movement is one append-only stock-change record. Quantity is signed:
// negative for a sale, positive for a return.
type Movement struct {
	ID            int64     `json:"id"`
	ProductID     string    `json:"product_id"`
	OrderID       string    `json:"order_id"`
	Type          string    `json:"movement_type"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	CreatedAt     time.Time `json:"created_at"`
}

// Reservation is a hold on stock while its order is in a non-terminal status.
type Reservation struct {
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Qty       int       `json:"qty"`
	Status    string    `json:"status"` // RESERVED | RELEASED | CONSUMED
	CreatedAt time.Time `json:"created_at"`
}
