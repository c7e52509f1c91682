// Package invoices renders stored invoices and applies the edits a cashier
// can make after submission.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/billdesk/internal/backend"
	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

// Backend is the invoice surface of the billing backend.
type Backend interface {
	GetInvoice(ctx context.Context, id string) (backend.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, update backend.StatusUpdate) error
	UpdateInvoiceNumber(ctx context.Context, id string, update backend.NumberUpdate) error
	DownloadInvoice(ctx context.Context, id string) (backend.Blob, error)
}

var (
	ErrAlreadyPaid       = fmt.Errorf("invoice is already paid: %w", shared.ErrConflict)
	ErrInvoiceNoRequired = errors.New("invoice number is required")
)

// Line is a reconciled invoice row with its display strings.
type Line struct {
	billing.InvoiceLine
	RateText   string `json:"rateText"`
	AmountText string `json:"amountText"`
}

// Amounts holds the formatted totals.
type Amounts struct {
	SubTotal string `json:"subTotal"`
	GST      string `json:"gst"`
	Total    string `json:"total"`
}

// Detail is an invoice as the invoice view shows it. Totals are recomputed
// from the lines; StoredTotal is the figure the backend persisted.
type Detail struct {
	ID          string              `json:"id"`
	InvoiceNo   string              `json:"invoiceNo,omitempty"`
	Status      string              `json:"status"`
	Customer    billing.CustomerRef `json:"customer"`
	Payment     *billing.Payment    `json:"payment,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	Lines       []Line              `json:"lines"`
	Totals      billing.Totals      `json:"totals"`
	Display     Amounts             `json:"display"`
	StoredTotal decimal.Decimal     `json:"storedTotal"`
}

// Service reads and edits invoices.
type Service struct {
	backend   Backend
	formatter billing.Formatter
}

// NewService constructs the invoice service.
func NewService(b Backend, formatter billing.Formatter) *Service {
	return &Service{backend: b, formatter: formatter}
}

// View loads and reconciles an invoice.
func (s *Service) View(ctx context.Context, id string) (Detail, error) {
	inv, err := s.backend.GetInvoice(ctx, id)
	if err != nil {
		return Detail{}, notFound(id, err)
	}
	return s.detail(id, inv), nil
}

// MarkPaid records payment on a PENDING invoice.
func (s *Service) MarkPaid(ctx context.Context, id string, payment billing.Payment) (Detail, error) {
	if !payment.Method.Valid() {
		return Detail{}, billing.Invalid(billing.ErrPaymentRequired)
	}
	inv, err := s.backend.GetInvoice(ctx, id)
	if err != nil {
		return Detail{}, notFound(id, err)
	}
	if billing.InvoiceStatus(inv.Status) == billing.StatusPaid {
		return Detail{}, ErrAlreadyPaid
	}
	update := backend.StatusUpdate{Status: billing.StatusPaid, Payment: &payment}
	if err := s.backend.UpdateInvoiceStatus(ctx, id, update); err != nil {
		return Detail{}, fmt.Errorf("mark invoice %s paid: %w", id, err)
	}
	inv.Status = string(billing.StatusPaid)
	inv.Payment = &payment
	return s.detail(id, inv), nil
}

// Renumber changes the human-readable invoice number.
func (s *Service) Renumber(ctx context.Context, id, invoiceNo string) (Detail, error) {
	invoiceNo = strings.TrimSpace(invoiceNo)
	if invoiceNo == "" {
		return Detail{}, billing.Invalid(ErrInvoiceNoRequired)
	}
	if err := s.backend.UpdateInvoiceNumber(ctx, id, backend.NumberUpdate{InvoiceNo: invoiceNo}); err != nil {
		return Detail{}, notFound(id, err)
	}
	return s.View(ctx, id)
}

// Download returns the backend-rendered invoice document.
func (s *Service) Download(ctx context.Context, id string) (backend.Blob, error) {
	blob, err := s.backend.DownloadInvoice(ctx, id)
	if err != nil {
		return backend.Blob{}, notFound(id, err)
	}
	if blob.Filename == "" {
		blob.Filename = "invoice-" + id + ".pdf"
	}
	return blob, nil
}

func (s *Service) detail(id string, inv backend.Invoice) Detail {
	lines := billing.Reconcile(inv.Items)
	totals := billing.DisplayTotals(lines)
	out := Detail{
		ID:          inv.Resolve(),
		InvoiceNo:   inv.InvoiceNo,
		Status:      inv.Status,
		Customer:    inv.CustomerRef(),
		Payment:     inv.Payment,
		CreatedAt:   inv.CreatedAt,
		Lines:       make([]Line, 0, len(lines)),
		Totals:      totals,
		StoredTotal: decimal.NewFromFloat(inv.Total),
		Display: Amounts{
			SubTotal: s.formatter.Amount(totals.SubTotal),
			GST:      s.formatter.Amount(totals.GST),
			Total:    s.formatter.Amount(totals.Total),
		},
	}
	if out.ID == "" {
		out.ID = id
	}
	for _, line := range lines {
		out.Lines = append(out.Lines, Line{
			InvoiceLine: line,
			RateText:    s.formatter.Amount(line.Rate),
			AmountText:  s.formatter.Amount(line.Amount),
		})
	}
	return out
}

func notFound(id string, err error) error {
	if apiErr, ok := backend.AsAPIError(err); ok && apiErr.NotFound() {
		return fmt.Errorf("invoice %s: %w", id, shared.ErrNotFound)
	}
	return err
}
