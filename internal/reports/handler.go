package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/platform/httpx"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers report routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/sales", h.sales)
	r.Get("/reports/gst", h.gst)
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.period(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.service.Sales(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) gst(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.period(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.service.GST(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("day"), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.service.Dashboard(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// period reads from/to query dates, both defaulting to today.
func (h *Handler) period(r *http.Request) (time.Time, time.Time, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	from, err := parseDay(r.URL.Query().Get("from"), today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDay(r.URL.Query().Get("to"), today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func parseDay(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback.UTC().Truncate(24 * time.Hour), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, billing.Invalid(fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw))
	}
	return day, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("report request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
