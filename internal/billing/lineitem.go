package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one editable row of a bill. CatalogID is empty for manually
// entered items.
type LineItem struct {
	CatalogID string          `json:"catalogId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Rate      decimal.Decimal `json:"rate"`
}

// NewLineItem returns an empty row with quantity 1 and rate 0.
func NewLineItem() LineItem {
	return LineItem{Quantity: 1, Rate: decimal.Zero}
}

// Amount is quantity times rate. It is always derived, never stored.
func (li LineItem) Amount() decimal.Decimal {
	return decimal.NewFromInt(int64(li.Quantity)).Mul(li.Rate)
}

// IsBound reports whether the row is backed by a catalog product.
func (li LineItem) IsBound() bool {
	return li.CatalogID != ""
}

// IsBlank reports whether the row carries nothing the user typed.
func (li LineItem) IsBlank() bool {
	return strings.TrimSpace(li.Name) == "" && li.Rate.IsZero() && !li.IsBound()
}

// SetQuantity stores n, clamped to a minimum of 1.
func (li *LineItem) SetQuantity(n int) {
	if n < 1 {
		n = 1
	}
	li.Quantity = n
}

// SetRate stores a manual rate. Catalog-bound rows keep the catalog rate
// until the binding is broken by retyping the name.
func (li *LineItem) SetRate(rate decimal.Decimal) error {
	if li.IsBound() {
		return Invalid(ErrRateLocked)
	}
	li.Rate = rate
	return nil
}

func (li *LineItem) bind(p Product) {
	li.CatalogID = p.ID
	li.Name = p.Name
	li.Rate = p.Rate
}

func (li *LineItem) unbind() {
	li.CatalogID = ""
}
