package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/orders"
)

type AdminOrdersHandler struct {
	Orders   OrderStore
	Flow     *StatusFlow
	Validate *validator.Validate
	Log      *zap.Logger
}

func (h *AdminOrdersHandler) Register(r *chi.Mux) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", h.listOrders)
		r.Patch("/orders", h.updateOrder)
		r.Post("/products", h.createProduct)
	})
}

func (h *AdminOrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	list, total, err := h.Orders.ListOrders(ctx, orders.ListFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment"),
		Search:        q.Get("search"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": list,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// updateOrder runs the state machine for one order. A failed inventory
// adjustment after the status commit is reported as partial success: the
// persisted order is still in the body alongside inventory_error.
func (h *AdminOrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	action := r.URL.Query().Get("action")
	if orderID == "" || action == "" {
		writeBadRequest(w, "orderId and action are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	from := o.Status
	updated, err := h.Flow.Apply(ctx, o, orders.Action(action), r.Header.Get("X-Request-Id"))
	if err != nil {
		if errors.Is(err, orders.ErrInventoryAdjustment) {
			h.Log.Error("inventory adjustment failed after status commit",
				zap.String("order_id", orderID), zap.String("action", action), zap.Error(err))
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

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("order %s status updated from %q to %q", orderID, from, updated.Status),
		"order":   updated,
	})
}

type CreateProductReq struct {
	SKU        string `json:"sku" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Brand      string `json:"brand"`
	PriceCents int    `json:"price_cents" validate:"required,gt=0"`
	Units      int    `json:"units" validate:"gte=0"`
}

func (h *AdminOrdersHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
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

	p, err := h.Orders.CreateProduct(ctx, req.SKU, req.Name, req.Brand, req.PriceCents, req.Units)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
