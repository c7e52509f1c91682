package billing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemblePaid(t *testing.T) {
	items := []LineItem{item("Pen", 3, "10"), item("Notebook", 1, "50")}
	items[1].CatalogID = "nb-1"

	payload, totals, err := Assemble(AssembleInput{
		Customer:  &CustomerRef{ID: "c-9", Name: "Asha"},
		Items:     items,
		Status:    StatusPaid,
		Payment:   &Payment{Method: MethodUPI, Provider: "gpay"},
		InvoiceNo: "INV-20261015-0001",
	})

	require.NoError(t, err)
	requireDecimal(t, "98", totals.Total)
	assert.Equal(t, "c-9", payload.CustomerID)
	assert.Equal(t, StatusPaid, payload.Status)
	assert.Equal(t, 98.0, payload.Total)
	require.NotNil(t, payload.Payment)
	assert.Equal(t, MethodUPI, payload.Payment.Method)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, WireItem{ProductName: "Pen", Quantity: 3, Rate: 10, Amount: 30}, payload.Items[0])
	assert.Equal(t, "nb-1", payload.Items[1].ProductID)
	assert.Equal(t, 50.0, payload.Items[1].Amount)
}

func TestAssemblePendingOmitsPayment(t *testing.T) {
	payload, _, err := Assemble(AssembleInput{
		Customer: &CustomerRef{ID: "c-1"},
		Items:    []LineItem{item("Soap", 2, "25")},
		Status:   StatusPending,
		Payment:  &Payment{Method: MethodCash},
	})

	require.NoError(t, err)
	assert.Nil(t, payload.Payment)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "payment")
	assert.NotContains(t, string(raw), "productId")
}

func TestAssembleValidation(t *testing.T) {
	valid := []LineItem{item("Pen", 3, "10")}
	cases := []struct {
		name string
		in   AssembleInput
		want error
	}{
		{"no customer", AssembleInput{Items: valid, Status: StatusPaid, Payment: &Payment{Method: MethodCash}}, ErrCustomerRequired},
		{"blank customer id", AssembleInput{Customer: &CustomerRef{Name: "x"}, Items: valid, Status: StatusPending}, ErrCustomerRequired},
		{"no items", AssembleInput{Customer: &CustomerRef{ID: "c"}, Status: StatusPending}, ErrNoItems},
		{"zero total", AssembleInput{Customer: &CustomerRef{ID: "c"}, Items: []LineItem{NewLineItem()}, Status: StatusPending}, ErrZeroTotal},
		{"paid without payment", AssembleInput{Customer: &CustomerRef{ID: "c"}, Items: valid, Status: StatusPaid}, ErrPaymentRequired},
		{"paid with bad method", AssembleInput{Customer: &CustomerRef{ID: "c"}, Items: valid, Status: StatusPaid, Payment: &Payment{Method: "cheque"}}, ErrPaymentRequired},
		{"unknown status", AssembleInput{Customer: &CustomerRef{ID: "c"}, Items: valid, Status: "VOID"}, ErrUnknownStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Assemble(tc.in)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestReconcileMixedShapes(t *testing.T) {
	var items []InboundItem
	raw := `[
		{"productName":"X","qty":2,"rate":50},
		{"productName":"Y","quantity":3,"rate":20,"amount":999},
		{"productName":"Z","rate":5},
		{"productName":"W","qty":0,"quantity":4,"rate":10}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &items))

	lines := Reconcile(items)

	require.Len(t, lines, 4)
	requireDecimal(t, "2", lines[0].Quantity)
	requireDecimal(t, "100", lines[0].Amount)
	requireDecimal(t, "3", lines[1].Quantity)
	requireDecimal(t, "999", lines[1].Amount)
	requireDecimal(t, "0", lines[2].Quantity)
	requireDecimal(t, "0", lines[2].Amount)
	requireDecimal(t, "0", lines[3].Quantity)
	requireDecimal(t, "0", lines[3].Amount)
}

func TestDisplayTotalsIgnoresStoredTotal(t *testing.T) {
	lines := Reconcile([]InboundItem{
		{ProductName: "X", Qty: ptr(2), Rate: ptr(50)},
		{ProductName: "Y", Quantity: ptr(3), Rate: ptr(20), Amount: ptr(999)},
	})

	totals := DisplayTotals(lines)

	requireDecimal(t, "1099", totals.SubTotal)
	requireDecimal(t, "197.82", totals.GST)
	requireDecimal(t, "1296.82", totals.Total)
	requireDecimal(t, "0", totals.Tax)
}

func ptr(v float64) *float64 { return &v }
