package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/orders"
)

func adminServer(store *fakeOrderStore, holds *fakeHolds, adj *fakeAdjuster) *httptest.Server {
	r := NewRouter()
	(&AdminOrdersHandler{
		Orders:   store,
		Flow:     newFlow(store, holds, adj),
		Validate: validator.New(),
		Log:      zap.NewNop(),
	}).Register(r)
	return httptest.NewServer(r)
}

func doPatch(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPatch, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestAdminUpdateMissingParams(t *testing.T) {
	srv := adminServer(newFakeOrderStore(), &fakeHolds{}, &fakeAdjuster{})
	defer srv.Close()

	resp, _ := doPatch(t, srv.URL+"/admin/orders?orderId=o1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminUpdateUnknownAction(t *testing.T) {
	store := newFakeOrderStore(orders.Order{ID: "o1", Status: orders.StatusPending})
	srv := adminServer(store, &fakeHolds{}, &fakeAdjuster{})
	defer srv.Close()

	resp, body := doPatch(t, srv.URL+"/admin/orders?orderId=o1&action=mark_lost")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_action", body["code"])
}

func TestAdminUpdateInvalidTransition(t *testing.T) {
	store := newFakeOrderStore(orders.Order{ID: "o1", Status: orders.StatusCancelled})
	srv := adminServer(store, &fakeHolds{}, &fakeAdjuster{})
	defer srv.Close()

	resp, body := doPatch(t, srv.URL+"/admin/orders?orderId=o1&action=mark_shipped")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", body["code"])
	assert.Equal(t, orders.StatusCancelled, store.byID["o1"].Status)
}

func TestAdminUpdateOrderNotFound(t *testing.T) {
	srv := adminServer(newFakeOrderStore(), &fakeHolds{}, &fakeAdjuster{})
	defer srv.Close()

	resp, body := doPatch(t, srv.URL+"/admin/orders?orderId=missing&action=mark_processing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestAdminUpdateSuccess(t *testing.T) {
	store := newFakeOrderStore(orders.Order{ID: "o1", Status: orders.StatusPending})
	srv := adminServer(store, &fakeHolds{}, &fakeAdjuster{})
	defer srv.Close()

	resp, body := doPatch(t, srv.URL+"/admin/orders?orderId=o1&action=mark_processing")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, orders.StatusProcessing, store.byID["o1"].Status)
}

func TestAdminUpdatePartialSuccessOnInventoryFailure(t *testing.T) {
	store := newFakeOrderStore(orders.Order{
		ID:     "o1",
		Status: orders.StatusShipped,
		Items:  []orders.LineItem{{ProductID: "p1", Quantity: 1}},
	})
	srv := adminServer(store, &fakeHolds{}, &fakeAdjuster{err: errors.New("stock write failed")})
	defer srv.Close()

	resp, body := doPatch(t, srv.URL+"/admin/orders?orderId=o1&action=mark_delivered")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["inventory_error"])
	// the committed order still comes back in the body
	order := body["order"].(map[string]any)
	assert.Equal(t, "delivered", order["status"])
	assert.Equal(t, orders.StatusDelivered, store.byID["o1"].Status)
}

func TestAdminCreateProduct(t *testing.T) {
	store := newFakeOrderStore()
	srv := adminServer(store, &fakeHolds{}, &fakeAdjuster{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/products", "application/json",
		strings.NewReader(`{"sku":"A-1","name":"Boots","price_cents":4500,"units":10}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var p orders.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, 10, p.Units)
	assert.Equal(t, 10, p.InitialUnits)
}

func TestAdminCreateProductValidation(t *testing.T) {
	srv := adminServer(newFakeOrderStore(), &fakeHolds{}, &fakeAdjuster{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/products", "application/json",
		strings.NewReader(`{"name":"no sku"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
