package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/billdesk/internal/billing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/api/", Timeout: time.Second})
}

func TestClientPrefixesBaseURLAndForwardsCredentials(t *testing.T) {
	var gotPath, gotCookie, gotAuth, gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if c, err := r.Cookie("sid"); err == nil {
			gotCookie = c.Value
		}
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`[{"_id":"a1","name":"Apple","rate":30,"stock":4},{"id":7,"name":"Apricot","rate":80.5}]`))
	})

	ctx := WithCredentials(context.Background(), Credentials{
		Cookies:       []*http.Cookie{{Name: "sid", Value: "abc"}},
		Authorization: "Bearer t",
	})
	products, err := client.ListProducts(ctx)

	require.NoError(t, err)
	assert.Equal(t, "/api/products", gotPath)
	assert.Equal(t, "abc", gotCookie)
	assert.Equal(t, "Bearer t", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	require.Len(t, products, 2)
	assert.Equal(t, "a1", products[0].ID)
	assert.Equal(t, "7", products[1].ID)
	assert.Equal(t, "80.5", products[1].Rate.String())
}

func TestClientNormalizesErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json message", http.StatusBadRequest, `{"message":"Customer is required"}`, "Customer is required"},
		{"json error", http.StatusConflict, `{"error":"duplicate invoice"}`, "duplicate invoice"},
		{"raw text", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty body", http.StatusNotFound, "", "Not Found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.GetInvoice(context.Background(), "x")

			apiErr, ok := AsAPIError(err)
			require.True(t, ok, "expected APIError, got %v", err)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestClientTransportFailure(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:0", Timeout: 200 * time.Millisecond})

	_, err := client.ListProducts(context.Background())

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 0, apiErr.Status)
	assert.False(t, apiErr.ClientError())
}

func TestCreateInvoiceSendsPayload(t *testing.T) {
	var got billing.InvoicePayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"inv-42"}`))
	})

	id, err := client.CreateInvoice(context.Background(), billing.InvoicePayload{
		CustomerID: "c1",
		Items:      []billing.WireItem{{ProductName: "Pen", Quantity: 3, Rate: 10, Amount: 30}},
		Total:      36,
		Status:     billing.StatusPending,
	})

	require.NoError(t, err)
	assert.Equal(t, "inv-42", id)
	assert.Equal(t, "c1", got.CustomerID)
	assert.Equal(t, billing.StatusPending, got.Status)
	require.Len(t, got.Items, 1)
}

func TestGetInvoiceDecodesLegacyShapes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"_id":"i1","total":1,"status":"PENDING","createdAt":"2026-10-15T09:30:00Z",
			"customer":{"_id":"c1","name":"Ravi"},
			"items":[{"productName":"X","qty":2,"rate":50},{"productName":"Y","quantity":3,"rate":20,"amount":999}]
		}`))
	})

	inv, err := client.GetInvoice(context.Background(), "i1")

	require.NoError(t, err)
	assert.Equal(t, "i1", inv.Resolve())
	assert.Equal(t, billing.CustomerRef{ID: "c1", Name: "Ravi"}, inv.CustomerRef())
	require.Len(t, inv.Items, 2)
	require.NotNil(t, inv.Items[0].Qty)
	assert.Nil(t, inv.Items[0].Amount)
	require.NotNil(t, inv.Items[1].Amount)
}

func TestCustomerFieldAcceptsBareID(t *testing.T) {
	var inv Invoice
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"customer":"c-77","items":[]}`), &inv))
	assert.Equal(t, "5", inv.Resolve())
	assert.Equal(t, "c-77", inv.CustomerRef().ID)
}

func TestListInvoicesQuery(t *testing.T) {
	var rawQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	})

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	_, err := client.ListInvoices(context.Background(), InvoiceFilter{From: from, To: to})

	require.NoError(t, err)
	assert.Equal(t, "from=2026-10-01&to=2026-10-15", rawQuery)
}

func TestDownloadInvoiceReturnsBlob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/invoices/i1/pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="INV-1.pdf"`)
		_, _ = io.WriteString(w, "%PDF-1.4")
	})

	blob, err := client.DownloadInvoice(context.Background(), "i1")

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", blob.ContentType)
	assert.Equal(t, "INV-1.pdf", blob.Filename)
	assert.Equal(t, "%PDF-1.4", string(blob.Data))
}

func TestClientDoesNotShareCookiesBetweenCallers(t *testing.T) {
	var seen [][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var cookies []string
		for _, c := range r.Cookies() {
			cookies = append(cookies, c.Name+"="+c.Value)
		}
		seen = append(seen, cookies)
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "alice-refreshed", Path: "/"})
		_, _ = w.Write([]byte(`[]`))
	})

	alice := WithCredentials(context.Background(), Credentials{Cookies: []*http.Cookie{{Name: "sid", Value: "alice"}}})
	_, err := client.ListProducts(alice)
	require.NoError(t, err)

	bob := WithCredentials(context.Background(), Credentials{Authorization: "Bearer bob"})
	_, err = client.ListProducts(bob)
	require.NoError(t, err)

	_, err = client.ListProducts(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, []string{"sid=alice"}, seen[0])
	assert.Empty(t, seen[1])
	assert.Empty(t, seen[2])
}
