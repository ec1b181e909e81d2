package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evanhart/shopfront/internal/inventory"
	"github.com/evanhart/shopfront/internal/redisx"
)

type InventoryHandler struct {
	Agg   *inventory.Aggregator
	Redis *redis.Client
	Log   *zap.Logger
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	r.Route("/admin/inventory", func(r chi.Router) {
		r.Get("/overview", h.overview)
		r.Get("/audit", h.audit)
		r.Get("/analytics", h.analytics)
		r.Get("/summary", h.summary)
	})
}

// overview serves the counter-backed stock view, cached briefly in Redis since
// the admin console polls it.
func (h *InventoryHandler) overview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if s, err := h.Redis.Get(ctx, redisx.KeyInventoryOverview).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	items, err := h.Agg.Overview(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []inventory.OverviewItem{}
	}
	body := map[string]any{"items": items}
	if b, err := json.Marshal(body); err == nil {
		_ = h.Redis.Set(ctx, redisx.KeyInventoryOverview, b, redisx.TTLOverview).Err()
	}
	writeJSON(w, http.StatusOK, body)
}

// audit is the slow path: replay recent order history and report drift against
// the running counters. Results are best-effort, not point-in-time consistent.
func (h *InventoryHandler) audit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	rows, err := h.Agg.Audit(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []inventory.AuditRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *InventoryHandler) analytics(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		writeBadRequest(w, "productId is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Agg.ProductAnalytics(ctx, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *InventoryHandler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Agg.Summary(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
