package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// WireItem is one invoice row as the backend expects it.
type WireItem struct {
	ProductID   string  `json:"productId,omitempty"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// InvoicePayload is the POST /invoices request body.
type InvoicePayload struct {
	CustomerID string        `json:"customerId"`
	InvoiceNo  string        `json:"invoiceNo,omitempty"`
	Items      []WireItem    `json:"items"`
	Total      float64       `json:"total"`
	Status     InvoiceStatus `json:"status"`
	Payment    *Payment      `json:"payment,omitempty"`
}

// AssembleInput gathers everything needed to commit a bill.
type AssembleInput struct {
	Customer  *CustomerRef
	Items     []LineItem
	Strategy  Strategy
	Status    InvoiceStatus
	Payment   *Payment
	InvoiceNo string
}

// Assemble validates a bill and converts it into a submittable payload.
// Validation failures match ErrValidation and carry a user-facing message.
func Assemble(in AssembleInput) (InvoicePayload, Totals, error) {
	strategy := in.Strategy
	if strategy == nil {
		strategy = NewBill
	}
	totals := Calculate(in.Items, strategy)

	if in.Customer == nil || strings.TrimSpace(in.Customer.ID) == "" {
		return InvoicePayload{}, totals, Invalid(ErrCustomerRequired)
	}
	if len(in.Items) == 0 {
		return InvoicePayload{}, totals, Invalid(ErrNoItems)
	}
	if !totals.Total.IsPositive() {
		return InvoicePayload{}, totals, Invalid(ErrZeroTotal)
	}

	payload := InvoicePayload{
		CustomerID: in.Customer.ID,
		InvoiceNo:  in.InvoiceNo,
		Items:      make([]WireItem, 0, len(in.Items)),
		Total:      totals.Total.InexactFloat64(),
		Status:     in.Status,
	}
	switch in.Status {
	case StatusPending:
	case StatusPaid:
		if in.Payment == nil || !in.Payment.Method.Valid() {
			return InvoicePayload{}, totals, Invalid(ErrPaymentRequired)
		}
		p := *in.Payment
		payload.Payment = &p
	default:
		return InvoicePayload{}, totals, Invalid(fmt.Errorf("%w: %q", ErrUnknownStatus, in.Status))
	}

	for _, item := range in.Items {
		payload.Items = append(payload.Items, WireItem{
			ProductID:   item.CatalogID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			Rate:        item.Rate.InexactFloat64(),
			Amount:      item.Amount().InexactFloat64(),
		})
	}
	return payload, totals, nil
}

// InboundItem is an invoice row as returned by the backend. Older records
// carry qty instead of quantity and may omit amount.
type InboundItem struct {
	ProductID   string   `json:"productId,omitempty"`
	ProductName string   `json:"productName"`
	Qty         *float64 `json:"qty,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	Rate        *float64 `json:"rate,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

// InvoiceLine is the canonical, fully resolved form of an invoice row.
type InvoiceLine struct {
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
}

// Reconcile resolves each inbound row on its own: quantity is qty, else
// quantity, else 0; amount is the stored amount when present, otherwise
// quantity × rate.
func Reconcile(items []InboundItem) []InvoiceLine {
	lines := make([]InvoiceLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, reconcileItem(item))
	}
	return lines
}

func reconcileItem(item InboundItem) InvoiceLine {
	qty := decimal.Zero
	switch {
	case item.Qty != nil:
		qty = decimal.NewFromFloat(*item.Qty)
	case item.Quantity != nil:
		qty = decimal.NewFromFloat(*item.Quantity)
	}
	rate := decimal.Zero
	if item.Rate != nil {
		rate = decimal.NewFromFloat(*item.Rate)
	}
	amount := qty.Mul(rate)
	if item.Amount != nil {
		amount = decimal.NewFromFloat(*item.Amount)
	}
	return InvoiceLine{
		ProductID: item.ProductID,
		Name:      item.ProductName,
		Quantity:  qty,
		Rate:      rate,
		Amount:    amount,
	}
}

// DisplayTotals totals reconciled lines the way the invoice view does,
// ignoring any total stored alongside them.
func DisplayTotals(lines []InvoiceLine) Totals {
	return CalculateLines(lines, InvoiceDisplay)
}
