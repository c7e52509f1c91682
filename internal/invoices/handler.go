package invoices

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/platform/httpx"
)

// Handler exposes invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers invoice routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices/{id}", h.show)
	r.Post("/invoices/{id}/pay", h.pay)
	r.Put("/invoices/{id}/number", h.renumber)
	r.Get("/invoices/{id}/pdf", h.download)
}

type payRequest struct {
	Method   string `json:"method" validate:"required,oneof=cash upi card"`
	Provider string `json:"provider" validate:"omitempty,max=64"`
}

type numberRequest struct {
	InvoiceNo string `json:"invoiceNo" validate:"required,max=64"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	payment := billing.Payment{Method: billing.PaymentMethod(req.Method), Provider: req.Provider}
	detail, err := h.service.MarkPaid(r.Context(), chi.URLParam(r, "id"), payment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) renumber(w http.ResponseWriter, r *http.Request) {
	var req numberRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	detail, err := h.service.Renumber(r.Context(), chi.URLParam(r, "id"), req.InvoiceNo)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	blob, err := h.service.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Attachment(w, blob.ContentType, blob.Filename, blob.Data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("invoice request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
