package orders

import (
	"encoding/json"
	"fmt"
)

// UnknownProduct marks a line item whose product reference could not be
// resolved. The inventory adjuster skips such items.
const UnknownProduct = "unknown"

// LineItem is the canonical line-item shape. New orders are always written
// with exactly this schema; the product reference is never inferred at read
// time for rows this service created.
type LineItem struct {
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	ProductName string `json:"product_name"`
	PriceCents  int    `json:"price_cents"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
}

// legacyItem tolerates the field aliases found in rows written by the old
// storefront: productId/id for the reference, name/title for the name.
type legacyItem struct {
	ProductID    string          `json:"product_id"`
	ProductIDAlt string          `json:"productId"`
	ID           string          `json:"id"`
	Quantity     json.RawMessage `json:"quantity"`
	ProductName  string          `json:"product_name"`
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	PriceCents   int             `json:"price_cents"`
	Size         string          `json:"size"`
	Color        string          `json:"color"`
}

// parseQty tolerates numeric and quoted quantities; anything unusable becomes 1.
func parseQty(raw json.RawMessage) int {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 1
		}
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return 1
		}
	}
	if n <= 0 {
		return 1
	}
	return n
}

// DecodeItems parses a stored items payload into canonical line items.
// Malformed JSON is a validation failure; individual items missing a product
// reference resolve to UnknownProduct, and a missing or bad quantity defaults
// to 1, matching how the old admin console treated legacy orders.
func DecodeItems(raw []byte) ([]LineItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []legacyItem
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: malformed order items: %v", ErrValidation, err)
	}
	out := make([]LineItem, 0, len(rows))
	for _, r := range rows {
		qty := 1
		if len(r.Quantity) > 0 {
			qty = parseQty(r.Quantity)
		}
		out = append(out, LineItem{
			ProductID:   firstNonEmpty(r.ProductID, r.ProductIDAlt, r.ID, UnknownProduct),
			Quantity:    qty,
			ProductName: firstNonEmpty(r.ProductName, r.Name, r.Title, "Unknown Product"),
			PriceCents:  r.PriceCents,
			Size:        r.Size,
			Color:       r.Color,
		})
	}
	return out, nil
}

func EncodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
