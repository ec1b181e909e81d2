package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeItemsCanonical(t *testing.T) {
	raw := []byte(`[{"product_id":"p1","quantity":2,"product_name":"Boots","price_cents":4500,"size":"42"}]`)
	items, err := DecodeItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Boots", items[0].ProductName)
	assert.Equal(t, 4500, items[0].PriceCents)
	assert.Equal(t, "42", items[0].Size)
}

func TestDecodeItemsLegacyAliases(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		id   string
	}{
		{"camelCase ref", `[{"productId":"p2","quantity":1,"title":"Cap"}]`, "p2"},
		{"bare id ref", `[{"id":"p3","quantity":1,"name":"Hat"}]`, "p3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			items, err := DecodeItems([]byte(c.raw))
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, c.id, items[0].ProductID)
		})
	}
}

func TestDecodeItemsStringQuantity(t *testing.T) {
	items, err := DecodeItems([]byte(`[{"product_id":"p1","quantity":"3"}]`))
	require.NoError(t, err)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestDecodeItemsDefaults(t *testing.T) {
	items, err := DecodeItems([]byte(`[{"quantity":0}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, UnknownProduct, items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "Unknown Product", items[0].ProductName)
}

func TestDecodeItemsMalformed(t *testing.T) {
	_, err := DecodeItems([]byte(`{"not":"an array"`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDecodeItemsEmpty(t *testing.T) {
	items, err := DecodeItems(nil)
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []LineItem{{ProductID: "p1", Quantity: 4, ProductName: "Boots", PriceCents: 100, Color: "black"}}
	raw, err := EncodeItems(in)
	require.NoError(t, err)
	out, err := DecodeItems(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
