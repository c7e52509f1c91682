// Package billing holds the bill arithmetic shared by the new-bill desk, the
// invoice view and the reports: line items, catalog matching, totals and
// invoice payload assembly.
package billing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates invoice statuses understood by the backend.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "PENDING"
	StatusPaid    InvoiceStatus = "PAID"
)

// PaymentMethod enumerates accepted collection methods.
type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodUPI  PaymentMethod = "upi"
	MethodCard PaymentMethod = "card"
)

// Valid reports whether the method is one of the supported ones.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodUPI, MethodCard:
		return true
	}
	return false
}

// Payment describes how a PAID invoice was collected.
type Payment struct {
	Method   PaymentMethod `json:"method"`
	Provider string        `json:"provider,omitempty"`
}

// Product is a read-only catalog entry. Stock is informational only.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Rate  decimal.Decimal `json:"rate"`
	Stock float64         `json:"stock"`
}

// CustomerRef identifies the customer an invoice is billed to.
type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Domain errors.
var (
	// ErrValidation marks input the user can correct locally.
	ErrValidation = errors.New("validation failed")

	ErrCustomerRequired = errors.New("please select a customer")
	ErrNoItems          = errors.New("please add at least one item")
	ErrZeroTotal        = errors.New("invoice total must be greater than zero")
	ErrPaymentRequired  = errors.New("a valid payment method is required")
	ErrRateLocked       = errors.New("rate is fixed by the catalog product")
	ErrUnknownStatus    = errors.New("unknown invoice status")
)

// validationError wraps a user-facing message so that it matches ErrValidation.
type validationError struct {
	err error
}

func (e validationError) Error() string { return e.err.Error() }

func (e validationError) Is(target error) bool {
	return target == ErrValidation
}

func (e validationError) Unwrap() error { return e.err }

// Invalid marks err as a validation failure.
func Invalid(err error) error {
	return validationError{err: err}
}
