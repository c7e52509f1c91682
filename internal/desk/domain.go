// Package desk runs the new-bill workflow: a server-side draft that a
// cashier fills with a customer and line items, then submits as a PENDING
// or PAID invoice.
package desk

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

// Stage is the position of a draft in the new-bill workflow.
type Stage string

const (
	StageEmpty            Stage = "EMPTY"
	StageCustomerSelected Stage = "CUSTOMER_SELECTED"
	StageItemsEntered     Stage = "ITEMS_ENTERED"
	StageSavedPending     Stage = "SAVED_PENDING"
	StagePaid             Stage = "PAID"
)

var (
	// ErrDraftNotFound is returned for unknown or expired drafts.
	ErrDraftNotFound = fmt.Errorf("draft %w", shared.ErrNotFound)
	// ErrSubmissionInFlight is returned while the same draft or idempotency
	// key is being submitted.
	ErrSubmissionInFlight = fmt.Errorf("submission: %w", shared.ErrInFlight)
	// ErrConcurrentUpdate is returned when a draft kept changing underneath
	// an update.
	ErrConcurrentUpdate = fmt.Errorf("draft modified concurrently: %w", shared.ErrLocked)

	errIndexOutOfRange = errors.New("item index out of range")
)

// Draft is the in-progress bill of one cashier.
type Draft struct {
	ID        string               `json:"id"`
	Tenant    string               `json:"tenant"`
	Customer  *billing.CustomerRef `json:"customer,omitempty"`
	Items     []billing.LineItem   `json:"items"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// NewDraft returns an empty draft holding a single blank row.
func NewDraft(tenant string, now time.Time) Draft {
	return Draft{
		ID:        uuid.NewString(),
		Tenant:    tenant,
		Items:     []billing.LineItem{billing.NewLineItem()},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Stage derives the workflow stage from the draft content.
func (d Draft) Stage() Stage {
	for _, item := range d.Items {
		if !item.IsBlank() {
			return StageItemsEntered
		}
	}
	if d.Customer != nil {
		return StageCustomerSelected
	}
	return StageEmpty
}

// Reset clears the draft back to EMPTY, keeping its id.
func (d *Draft) Reset() {
	d.Customer = nil
	d.Items = []billing.LineItem{billing.NewLineItem()}
}

// AddItem appends a blank row.
func (d *Draft) AddItem() {
	d.Items = append(d.Items, billing.NewLineItem())
}

// RemoveItem drops the row at index. Removing the last row leaves one blank
// row behind.
func (d *Draft) RemoveItem(index int) error {
	if index < 0 || index >= len(d.Items) {
		return billing.Invalid(errIndexOutOfRange)
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	if len(d.Items) == 0 {
		d.Items = []billing.LineItem{billing.NewLineItem()}
	}
	return nil
}

// ItemEdit carries the fields a client changed on one row. Nil fields are
// left alone.
type ItemEdit struct {
	Name     *string
	Quantity *int
	Rate     *decimal.Decimal
}

// EditItem applies edit to the row at index. Name edits go through the
// catalog matcher before quantity and rate are applied.
func (d *Draft) EditItem(index int, edit ItemEdit, catalog []billing.Product) (*billing.MatchResult, error) {
	if index < 0 || index >= len(d.Items) {
		return nil, billing.Invalid(errIndexOutOfRange)
	}
	item := &d.Items[index]
	var match *billing.MatchResult
	if edit.Name != nil {
		res := billing.Match(item, *edit.Name, item.Name, catalog)
		match = &res
	}
	if edit.Quantity != nil {
		item.SetQuantity(*edit.Quantity)
	}
	if edit.Rate != nil {
		if err := item.SetRate(*edit.Rate); err != nil {
			return match, err
		}
	}
	return match, nil
}

// Receipt records a successful submission.
type Receipt struct {
	DraftID     string                `json:"draftId"`
	InvoiceID   string                `json:"invoiceId"`
	InvoiceNo   string                `json:"invoiceNo"`
	Status      billing.InvoiceStatus `json:"status"`
	Stage       Stage                 `json:"stage"`
	Customer    billing.CustomerRef   `json:"customer"`
	Payment     *billing.Payment      `json:"payment,omitempty"`
	Totals      billing.Totals        `json:"totals"`
	SubmittedAt time.Time             `json:"submittedAt"`
	Replayed    bool                  `json:"replayed,omitempty"`
}

// ItemView is a row as rendered to clients, with its derived amount.
type ItemView struct {
	Index     int             `json:"index"`
	CatalogID string          `json:"catalogId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	Bound     bool            `json:"bound"`
}

// View is a draft with its derived stage and totals.
type View struct {
	ID        string               `json:"id"`
	Stage     Stage                `json:"stage"`
	Customer  *billing.CustomerRef `json:"customer,omitempty"`
	Items     []ItemView           `json:"items"`
	Totals    billing.Totals       `json:"totals"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Match     *billing.MatchResult `json:"match,omitempty"`
}

// NewView renders d using the new-bill totals.
func NewView(d Draft) View {
	items := make([]ItemView, 0, len(d.Items))
	for i, item := range d.Items {
		items = append(items, ItemView{
			Index:     i,
			CatalogID: item.CatalogID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Rate:      item.Rate,
			Amount:    item.Amount(),
			Bound:     item.IsBound(),
		})
	}
	return View{
		ID:        d.ID,
		Stage:     d.Stage(),
		Customer:  d.Customer,
		Items:     items,
		Totals:    billing.Calculate(d.Items, billing.NewBill),
		UpdatedAt: d.UpdatedAt,
	}
}
