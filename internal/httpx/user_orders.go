package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/evanhart/shopfront/internal/kafka"
	"github.com/evanhart/shopfront/internal/orders"
	"github.com/evanhart/shopfront/internal/redisx"
)

type UserOrdersHandler struct {
	Orders       OrderStore
	Flow         *StatusFlow
	Producer     EventPublisher // order.created
	Redis        *redis.Client
	Validate     *validator.Validate
	Service      string
	ReturnWindow time.Duration
	Log          *zap.Logger
}

func (h *UserOrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/products", h.listProducts)
	r.Get("/me/orders", h.listMine)
	r.Patch("/me/orders", h.updateMine)
}

type CreateOrderReq struct {
	ExternalID    string             `json:"external_id" validate:"required"`
	CustomerEmail string             `json:"customer_email" validate:"required,email"`
	CustomerName  string             `json:"customer_name"`
	Items         []orders.ItemInput `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderResp struct {
	OrderID    string `json:"order_id"`
	TotalCents int    `json:"total_cents"`
	Idempotent bool   `json:"idempotent"`
}

func (h *UserOrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", orders.ErrValidation, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, existed, err := h.Orders.CreateOrder(ctx, orders.CreateOrderInput{
		ExternalID:    req.ExternalID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Items:         req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Redis != nil {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
		_ = h.Redis.Set(ctx, statusKey, `{"status":"pending"}`, redisx.TTLStatusCache).Err()
	}

	// a repeat of an already-seen external_id must not re-announce the order
	if !existed && h.Producer != nil {
		ev := orders.NewEnvelope(orders.EventOrderCreated, h.Service, r.Header.Get("X-Request-Id"), o.ID,
			kafkax.MustMarshal(orders.OrderCreatedPayload{
				OrderID:       o.ID,
				ExternalID:    o.ExternalID,
				CustomerEmail: o.CustomerEmail,
				Items:         o.Items,
				TotalCents:    o.TotalCents,
			}))
		h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusAccepted, CreateOrderResp{OrderID: o.ID, TotalCents: o.TotalCents, Idempotent: existed})
}

func (h *UserOrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeBadRequest(w, "missing id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	status, err := h.Orders.GetOrderStatus(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	b, _ := json.Marshal(map[string]any{"status": status})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *UserOrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Orders.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *UserOrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("X-User-Email")
	if email == "" {
		// no session context: an empty list, not an error
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": []orders.Order{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Orders.ListByEmail(ctx, email, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": list})
}

type UserOrderActionReq struct {
	OrderID string `json:"order_id" validate:"required"`
	Action  string `json:"action"` // "cancel" (default) or "request_return"
}

// updateMine lets a customer cancel an order that has not shipped, or request
// a return within the window after delivery. Both run through the same state
// machine and side effects as the admin endpoint.
func (h *UserOrdersHandler) updateMine(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("X-User-Email")
	if email == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Code: "unauthorized"})
		return
	}

	var req UserOrderActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", orders.ErrValidation, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o.CustomerEmail != email {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "order does not belong to caller", Code: "forbidden"})
		return
	}

	var action orders.Action
	switch req.Action {
	case "request_return":
		if o.Status != orders.StatusDelivered {
			writeBadRequest(w, "only delivered orders can be returned")
			return
		}
		if o.DeliveredAt == nil {
			writeBadRequest(w, "delivery date not available")
			return
		}
		if time.Since(*o.DeliveredAt) > h.ReturnWindow {
			writeBadRequest(w, fmt.Sprintf("return period expired: returns are accepted within %d days of delivery",
				int(h.ReturnWindow.Hours()/24)))
			return
		}
		action = orders.ActionMarkReturned
	case "", "cancel":
		if o.Status != orders.StatusPending && o.Status != orders.StatusProcessing {
			writeBadRequest(w, "order cannot be cancelled at this stage")
			return
		}
		action = orders.ActionMarkCancelled
	default:
		writeError(w, fmt.Errorf("%w: %q", orders.ErrUnknownAction, req.Action))
		return
	}

	updated, err := h.Flow.Apply(ctx, o, action, r.Header.Get("X-Request-Id"))
	if err != nil {
		if errors.Is(err, orders.ErrInventoryAdjustment) {
			h.Log.Error("inventory adjustment failed after status commit",
				zap.String("order_id", o.ID), zap.String("action", string(action)), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success":         false,
				"error":           err.Error(),
				"order":           updated,
				"inventory_error": true,
			})
			return
		}
		writeError(w, err)
		return
	}

	msg := "order cancelled successfully"
	if action == orders.ActionMarkReturned {
		msg = "return request submitted successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg, "order": updated})
}
