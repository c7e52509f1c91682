package desk

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/platform/httpx"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

// IdempotencyHeader carries the client-chosen submission key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the draft API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers draft routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/drafts", h.create)
	r.Route("/drafts/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.discard)
		r.Put("/customer", h.selectCustomer)
		r.Post("/items", h.addItem)
		r.Patch("/items/{index}", h.editItem)
		r.Delete("/items/{index}", h.removeItem)
		r.Post("/save", h.save)
		r.Post("/pay", h.pay)
		r.Post("/reset", h.reset)
	})
}

type customerRequest struct {
	CustomerID string `json:"customerId" validate:"required,max=128"`
}

type itemRequest struct {
	Name     *string          `json:"name" validate:"omitempty,max=200"`
	Quantity *int             `json:"quantity"`
	Rate     *decimal.Decimal `json:"rate"`
}

type paymentRequest struct {
	Method   string `json:"method" validate:"required,oneof=cash upi card"`
	Provider string `json:"provider" validate:"omitempty,max=64"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Create(r.Context(), shared.TenantFromContext(r.Context()))
	h.respond(w, r, http.StatusCreated, view, err)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) selectCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.SelectCustomer(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"), req.CustomerID)
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.AddItem(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *Handler) editItem(w http.ResponseWriter, r *http.Request) {
	index, err := itemIndex(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req itemRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	edit := ItemEdit{Name: req.Name, Quantity: req.Quantity, Rate: req.Rate}
	view, err := h.service.EditItem(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"), index, edit)
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	index, err := itemIndex(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.RemoveItem(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"), index)
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Save(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"), r.Header.Get(IdempotencyHeader))
	h.respond(w, r, submitStatus(receipt), receipt, err)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	payment := billing.Payment{Method: billing.PaymentMethod(req.Method), Provider: req.Provider}
	receipt, err := h.service.Pay(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"), payment, r.Header.Get(IdempotencyHeader))
	h.respond(w, r, submitStatus(receipt), receipt, err)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Reset(r.Context(), shared.TenantFromContext(r.Context()), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, view, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, status, body)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("desk request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func itemIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, billing.Invalid(errIndexOutOfRange)
	}
	return index, nil
}

func submitStatus(receipt Receipt) int {
	if receipt.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
