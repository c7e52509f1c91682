package billing

import "github.com/shopspring/decimal"

var (
	taxRate = decimal.RequireFromString("0.05")
	gstRate = decimal.RequireFromString("0.18")
	half    = decimal.RequireFromString("0.5")
)

// Totals is the reduction of a list of amounts. Tax is zero for strategies
// that do not levy the separate 5% line.
type Totals struct {
	Mode     string          `json:"mode"`
	SubTotal decimal.Decimal `json:"subTotal"`
	Tax      decimal.Decimal `json:"tax"`
	GST      decimal.Decimal `json:"gst"`
	Total    decimal.Decimal `json:"total"`
}

// Strategy turns a subtotal into a full Totals record. Two strategies exist
// because the new-bill screen and the invoice view disagree on the grand
// total; callers pick one explicitly.
type Strategy interface {
	Name() string
	Apply(subTotal decimal.Decimal) Totals
}

// NewBill levies 5% tax and 18% GST, each rounded to whole currency units.
var NewBill Strategy = newBillStrategy{}

// InvoiceDisplay levies 18% GST only, unrounded.
var InvoiceDisplay Strategy = invoiceDisplayStrategy{}

type newBillStrategy struct{}

func (newBillStrategy) Name() string { return "new_bill" }

func (s newBillStrategy) Apply(sub decimal.Decimal) Totals {
	tax := roundHalfUp(sub.Mul(taxRate))
	gst := roundHalfUp(sub.Mul(gstRate))
	return Totals{
		Mode:     s.Name(),
		SubTotal: sub,
		Tax:      tax,
		GST:      gst,
		Total:    sub.Add(tax).Add(gst),
	}
}

type invoiceDisplayStrategy struct{}

func (invoiceDisplayStrategy) Name() string { return "invoice_display" }

func (s invoiceDisplayStrategy) Apply(sub decimal.Decimal) Totals {
	gst := sub.Mul(gstRate)
	return Totals{
		Mode:     s.Name(),
		SubTotal: sub,
		Tax:      decimal.Zero,
		GST:      gst,
		Total:    sub.Add(gst),
	}
}

// Calculate sums quantity × rate over items and applies the strategy.
func Calculate(items []LineItem, s Strategy) Totals {
	sub := decimal.Zero
	for _, item := range items {
		sub = sub.Add(item.Amount())
	}
	return s.Apply(sub)
}

// CalculateLines is Calculate for reconciled invoice lines.
func CalculateLines(lines []InvoiceLine, s Strategy) Totals {
	sub := decimal.Zero
	for _, line := range lines {
		sub = sub.Add(line.Amount)
	}
	return s.Apply(sub)
}

// roundHalfUp rounds to a whole unit with halves going toward +∞.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}
