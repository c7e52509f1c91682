package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/platform/httpx"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

const defaultSearchLimit = 10

var errBadLimit = errors.New("limit must be a non-negative integer")

// Enqueuer schedules an asynchronous catalog invalidation.
type Enqueuer interface {
	EnqueueCatalogInvalidate(ctx context.Context, tenant string) error
}

// Handler exposes catalog reads.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer Enqueuer
}

// NewHandler constructs a Handler instance. With a nil enqueuer refreshes
// invalidate synchronously.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

// MountRoutes registers catalog routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog/products", h.products)
	r.Post("/catalog/refresh", h.refresh)
	r.Get("/customers", h.customers)
}

func (h *Handler) products(w http.ResponseWriter, r *http.Request) {
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(w, r, billing.Invalid(errBadLimit))
			return
		}
		limit = n
	}
	products, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.Customers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	tenant := shared.TenantFromContext(r.Context())
	if h.enqueuer != nil {
		if err := h.enqueuer.EnqueueCatalogInvalidate(r.Context(), tenant); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err := h.service.Invalidate(r.Context(), tenant); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("catalog request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
