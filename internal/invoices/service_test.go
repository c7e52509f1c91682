package invoices

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/billdesk/internal/backend"
	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

const storedInvoice = `{
	"_id":"i1","invoiceNo":"INV-20261015-0007","status":"PENDING","total":1,
	"createdAt":"2026-10-15T09:30:00Z",
	"customer":{"_id":"c1","name":"Ravi"},
	"items":[
		{"productName":"X","qty":2,"rate":50},
		{"productName":"Y","quantity":3,"rate":20,"amount":999}
	]
}`

type backendStub struct {
	invoice string
	updates []map[string]any
}

func newStubServer(t *testing.T, stub *backendStub) *backend.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/invoices/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/invoices/i1") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Invoice not found"}`))
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/pdf"):
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF"))
		case r.Method == http.MethodPut:
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			stub.updates = append(stub.updates, body)
			if no, ok := body["invoiceNo"].(string); ok {
				stub.invoice = strings.Replace(stub.invoice, "INV-20261015-0007", no, 1)
			}
			_, _ = w.Write([]byte(`{}`))
		default:
			_, _ = w.Write([]byte(stub.invoice))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return backend.NewClient(backend.Options{BaseURL: srv.URL, Timeout: time.Second})
}

func newTestService(t *testing.T) (*Service, *backendStub) {
	stub := &backendStub{invoice: storedInvoice}
	return NewService(newStubServer(t, stub), billing.NewFormatter("en")), stub
}

func TestViewRecomputesFromLines(t *testing.T) {
	svc, _ := newTestService(t)

	detail, err := svc.View(context.Background(), "i1")

	require.NoError(t, err)
	assert.Equal(t, "i1", detail.ID)
	assert.Equal(t, billing.CustomerRef{ID: "c1", Name: "Ravi"}, detail.Customer)
	require.Len(t, detail.Lines, 2)
	assert.Equal(t, "100", detail.Lines[0].Amount.String())
	assert.Equal(t, "999", detail.Lines[1].Amount.String())
	assert.Equal(t, "1099", detail.Totals.SubTotal.String())
	assert.Equal(t, "197.82", detail.Totals.GST.String())
	assert.Equal(t, "1296.82", detail.Totals.Total.String())
	assert.True(t, detail.Totals.Tax.IsZero())
	assert.Equal(t, "1", detail.StoredTotal.String())
	assert.Equal(t, Amounts{SubTotal: "1,099.00", GST: "197.82", Total: "1,296.82"}, detail.Display)
	assert.Equal(t, "50.00", detail.Lines[0].RateText)
}

func TestViewUnknownInvoice(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.View(context.Background(), "nope")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMarkPaid(t *testing.T) {
	svc, stub := newTestService(t)

	detail, err := svc.MarkPaid(context.Background(), "i1", billing.Payment{Method: billing.MethodCash})

	require.NoError(t, err)
	assert.Equal(t, "PAID", detail.Status)
	require.Len(t, stub.updates, 1)
	assert.Equal(t, "PAID", stub.updates[0]["status"])
	assert.Equal(t, map[string]any{"method": "cash"}, stub.updates[0]["payment"])

	_, err = svc.MarkPaid(context.Background(), "i1", billing.Payment{Method: "cheque"})
	assert.ErrorIs(t, err, billing.ErrValidation)
}

func TestMarkPaidRejectsPaidInvoice(t *testing.T) {
	svc, stub := newTestService(t)
	stub.invoice = strings.Replace(storedInvoice, `"PENDING"`, `"PAID"`, 1)

	_, err := svc.MarkPaid(context.Background(), "i1", billing.Payment{Method: billing.MethodUPI})

	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.NotErrorIs(t, err, billing.ErrValidation)
	assert.Empty(t, stub.updates)
}

func TestHandlerPayOnPaidInvoiceConflicts(t *testing.T) {
	svc, stub := newTestService(t)
	stub.invoice = strings.Replace(storedInvoice, `"PENDING"`, `"PAID"`, 1)
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices/i1/pay", strings.NewReader(`{"method":"upi"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already paid")
	assert.Empty(t, stub.updates)
}

func TestRenumber(t *testing.T) {
	svc, stub := newTestService(t)

	detail, err := svc.Renumber(context.Background(), "i1", " INV-MANUAL-1 ")

	require.NoError(t, err)
	assert.Equal(t, "INV-MANUAL-1", detail.InvoiceNo)
	assert.Equal(t, "INV-MANUAL-1", stub.updates[0]["invoiceNo"])

	_, err = svc.Renumber(context.Background(), "i1", "  ")
	assert.ErrorIs(t, err, ErrInvoiceNoRequired)
}

func TestHandlerDownloadAndErrors(t *testing.T) {
	svc, _ := newTestService(t)
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/i1/pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-i1.pdf")
	assert.Equal(t, "%PDF", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/zzz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/invoices/i1/number", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
