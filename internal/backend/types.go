package backend

import (
	"bytes"
	"encoding/json"
	"net/url"
	"time"

	"github.com/odyssey-erp/billdesk/internal/billing"
)

// ID accepts identifiers encoded either as JSON strings or numbers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// identity carries the two id spellings used by the backend.
type identity struct {
	ID    ID `json:"id"`
	MgoID ID `json:"_id"`
}

// Resolve returns id, falling back to _id.
func (i identity) Resolve() string {
	if i.ID != "" {
		return string(i.ID)
	}
	return string(i.MgoID)
}

// Product is the wire shape of GET /products.
type Product struct {
	identity
	Name  string  `json:"name"`
	Rate  float64 `json:"rate"`
	Stock float64 `json:"stock"`
}

// Customer is the wire shape of GET /customers.
type Customer struct {
	identity
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	GSTIN string `json:"gstin,omitempty"`
}

// Ref converts the customer into the billing reference.
func (c Customer) Ref() billing.CustomerRef {
	return billing.CustomerRef{ID: c.Resolve(), Name: c.Name}
}

// CustomerField decodes the invoice "customer" member, which is either an
// embedded customer document or a bare id.
type CustomerField struct {
	Customer
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *CustomerField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		return json.Unmarshal(data, &f.Customer)
	}
	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	f.Customer = Customer{identity: identity{ID: id}}
	return nil
}

// Invoice is the wire shape of GET /invoices/:id.
type Invoice struct {
	identity
	InvoiceNo  string                `json:"invoiceNo,omitempty"`
	CustomerID ID                    `json:"customerId,omitempty"`
	Customer   CustomerField         `json:"customer"`
	Items      []billing.InboundItem `json:"items"`
	Total      float64               `json:"total"`
	Status     string                `json:"status"`
	Payment    *billing.Payment      `json:"payment,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// CustomerRef returns the billed customer, preferring the embedded document.
func (inv Invoice) CustomerRef() billing.CustomerRef {
	ref := inv.Customer.Ref()
	if ref.ID == "" {
		ref.ID = string(inv.CustomerID)
	}
	return ref
}

// Created is the response of POST /invoices.
type Created struct {
	identity
	InvoiceNo string `json:"invoiceNo,omitempty"`
}

// StatusUpdate is the PUT /invoices/:id body for a status change.
type StatusUpdate struct {
	Status  billing.InvoiceStatus `json:"status"`
	Payment *billing.Payment      `json:"payment,omitempty"`
}

// NumberUpdate is the PUT /invoices/:id body for a metadata edit.
type NumberUpdate struct {
	InvoiceNo string `json:"invoiceNo"`
}

// InvoiceFilter narrows GET /invoices.
type InvoiceFilter struct {
	From   time.Time
	To     time.Time
	Status string
}

func (f InvoiceFilter) query() string {
	q := url.Values{}
	if !f.From.IsZero() {
		q.Set("from", f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.Format(time.DateOnly))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
