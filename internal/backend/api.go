package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/billdesk/internal/billing"
)

// ListProducts returns the catalog in server order.
func (c *Client) ListProducts(ctx context.Context) ([]billing.Product, error) {
	var wire []Product
	if err := c.Do(ctx, http.MethodGet, "/products", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]billing.Product, 0, len(wire))
	for _, p := range wire {
		out = append(out, billing.Product{
			ID:    p.Resolve(),
			Name:  p.Name,
			Rate:  decimal.NewFromFloat(p.Rate),
			Stock: p.Stock,
		})
	}
	return out, nil
}

// ListCustomers returns customers, optionally filtered by a search term.
func (c *Client) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	path := "/customers"
	if search != "" {
		path += "?" + url.Values{"search": {search}}.Encode()
	}
	var out []Customer
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCustomer loads one customer.
func (c *Client) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var out Customer
	err := c.Do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &out)
	return out, err
}

// CreateInvoice submits an assembled invoice and returns its id.
func (c *Client) CreateInvoice(ctx context.Context, payload billing.InvoicePayload) (string, error) {
	var out Created
	if err := c.Do(ctx, http.MethodPost, "/invoices", payload, &out); err != nil {
		return "", err
	}
	return out.Resolve(), nil
}

// GetInvoice loads one invoice.
func (c *Client) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	var out Invoice
	err := c.Do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ListInvoices loads invoices matching filter.
func (c *Client) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	var out []Invoice
	if err := c.Do(ctx, http.MethodGet, "/invoices"+filter.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateInvoiceStatus changes the status of an invoice.
func (c *Client) UpdateInvoiceStatus(ctx context.Context, id string, update StatusUpdate) error {
	return c.Do(ctx, http.MethodPut, "/invoices/"+url.PathEscape(id), update, nil)
}

// UpdateInvoiceNumber edits invoice metadata.
func (c *Client) UpdateInvoiceNumber(ctx context.Context, id string, update NumberUpdate) error {
	return c.Do(ctx, http.MethodPut, "/invoices/"+url.PathEscape(id), update, nil)
}

// DownloadInvoice fetches the backend-rendered invoice document.
func (c *Client) DownloadInvoice(ctx context.Context, id string) (Blob, error) {
	return c.Blob(ctx, "/invoices/"+url.PathEscape(id)+"/pdf")
}
