package desk

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/billdesk/internal/shared"
)

func newTestRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithTenant(r.Context(), tenant)))
		})
	})
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc).MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) View {
	t.Helper()
	var v View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandlerNewBillFlow(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(t, f)

	rec := do(t, h, http.MethodPost, "/drafts", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeView(t, rec).ID

	rec = do(t, h, http.MethodPut, "/drafts/"+id+"/customer", map[string]string{"customerId": "c1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StageCustomerSelected, decodeView(t, rec).Stage)

	rec = do(t, h, http.MethodPatch, "/drafts/"+id+"/items/0", map[string]any{"name": "Apr"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, "Apricot", view.Items[0].Name)
	assert.Equal(t, "98", view.Totals.Total.String())

	rec = do(t, h, http.MethodPost, "/drafts/"+id+"/pay", map[string]string{"method": "card"}, map[string]string{IdempotencyHeader: "k-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, StagePaid, receipt.Stage)

	rec = do(t, h, http.MethodPost, "/drafts/"+id+"/pay", map[string]string{"method": "card"}, map[string]string{IdempotencyHeader: "k-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.backend.created, 1)

	rec = do(t, h, http.MethodGet, "/drafts/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StageEmpty, decodeView(t, rec).Stage)
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(t, f)
	rec := do(t, h, http.MethodPost, "/drafts", nil, nil)
	id := decodeView(t, rec).ID

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown draft", http.MethodGet, "/drafts/missing", nil, http.StatusNotFound},
		{"missing customer id", http.MethodPut, "/drafts/" + id + "/customer", map[string]string{}, http.StatusBadRequest},
		{"unknown customer", http.MethodPut, "/drafts/" + id + "/customer", map[string]string{"customerId": "zz"}, http.StatusNotFound},
		{"bad index", http.MethodDelete, "/drafts/" + id + "/items/x", nil, http.StatusBadRequest},
		{"bad payment method", http.MethodPost, "/drafts/" + id + "/pay", map[string]string{"method": "cheque"}, http.StatusBadRequest},
		{"save without customer", http.MethodPost, "/drafts/" + id + "/save", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body, nil)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHandlerDiscard(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(t, f)
	id := decodeView(t, do(t, h, http.MethodPost, "/drafts", nil, nil)).ID

	rec := do(t, h, http.MethodDelete, "/drafts/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/drafts/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
