// Package reports aggregates backend invoices into sales, GST and
// dashboard summaries. Every invoice is reconciled line by line and totalled
// the way the invoice view totals it.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/billdesk/internal/backend"
	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/catalog"
)

// InvoiceSource lists invoices in a date range.
type InvoiceSource interface {
	ListInvoices(ctx context.Context, filter backend.InvoiceFilter) ([]backend.Invoice, error)
}

// Directory exposes the tenant's products and customers.
type Directory interface {
	Products(ctx context.Context) ([]billing.Product, error)
	Customers(ctx context.Context, search string) ([]catalog.Customer, error)
}

// ErrRange is returned when from is after to.
var ErrRange = errors.New("report range start must not be after its end")

// maxRangeDays bounds a report period, counting both ends.
const maxRangeDays = 366

// Service builds reports.
type Service struct {
	invoices  InvoiceSource
	directory Directory
	formatter billing.Formatter
}

// NewService constructs the report service.
func NewService(invoices InvoiceSource, directory Directory, formatter billing.Formatter) *Service {
	return &Service{invoices: invoices, directory: directory, formatter: formatter}
}

// Figures is a block of money totals.
type Figures struct {
	Count    int             `json:"count"`
	SubTotal decimal.Decimal `json:"subTotal"`
	GST      decimal.Decimal `json:"gst"`
	Total    decimal.Decimal `json:"total"`
}

func (f *Figures) add(t billing.Totals) {
	f.Count++
	f.SubTotal = f.SubTotal.Add(t.SubTotal)
	f.GST = f.GST.Add(t.GST)
	f.Total = f.Total.Add(t.Total)
}

// DayRow is one calendar day of a sales report.
type DayRow struct {
	Day string `json:"day"`
	Figures
	TotalText string `json:"totalText"`
}

// BreakdownRow groups invoices by status or payment method.
type BreakdownRow struct {
	Key string `json:"key"`
	Figures
}

// Sales summarises invoices created between From and To inclusive.
type Sales struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	Days      []DayRow       `json:"days"`
	Statuses  []BreakdownRow `json:"statuses"`
	Methods   []BreakdownRow `json:"methods"`
	Overall   Figures        `json:"overall"`
	TotalText string         `json:"totalText"`
}

// GSTRow is one day of a GST report. Intra-state supply splits GST evenly
// into central and state shares.
type GSTRow struct {
	Day     string          `json:"day"`
	Taxable decimal.Decimal `json:"taxable"`
	CGST    decimal.Decimal `json:"cgst"`
	SGST    decimal.Decimal `json:"sgst"`
	GST     decimal.Decimal `json:"gst"`
}

// GST is the tax summary for a date range.
type GST struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Rows    []GSTRow `json:"rows"`
	Overall GSTRow   `json:"overall"`
	GSTText string   `json:"gstText"`
}

// Dashboard is the landing summary of a tenant.
type Dashboard struct {
	Day       string `json:"day"`
	Products  int    `json:"products"`
	Customers int    `json:"customers"`
	Today     Sales  `json:"today"`
}

// Sales builds the sales report for [from, to].
func (s *Service) Sales(ctx context.Context, from, to time.Time) (Sales, error) {
	invoices, err := s.load(ctx, from, to)
	if err != nil {
		return Sales{}, err
	}
	days := map[string]*DayRow{}
	statuses := map[string]*BreakdownRow{}
	methods := map[string]*BreakdownRow{}
	var overall Figures
	for _, inv := range invoices {
		totals := billing.DisplayTotals(billing.Reconcile(inv.Items))
		day := inv.CreatedAt.UTC().Format(time.DateOnly)
		if days[day] == nil {
			days[day] = &DayRow{Day: day}
		}
		days[day].add(totals)
		bucket(statuses, inv.Status).add(totals)
		if billing.InvoiceStatus(inv.Status) == billing.StatusPaid {
			method := "unknown"
			if inv.Payment != nil && inv.Payment.Method != "" {
				method = string(inv.Payment.Method)
			}
			bucket(methods, method).add(totals)
		}
		overall.add(totals)
	}

	out := Sales{
		From:      from.Format(time.DateOnly),
		To:        to.Format(time.DateOnly),
		Days:      make([]DayRow, 0, len(days)),
		Statuses:  flatten(statuses),
		Methods:   flatten(methods),
		Overall:   overall,
		TotalText: s.formatter.Amount(overall.Total),
	}
	for _, row := range days {
		row.TotalText = s.formatter.Amount(row.Total)
		out.Days = append(out.Days, *row)
	}
	sort.Slice(out.Days, func(i, j int) bool { return out.Days[i].Day < out.Days[j].Day })
	return out, nil
}

// GST builds the GST report for [from, to].
func (s *Service) GST(ctx context.Context, from, to time.Time) (GST, error) {
	invoices, err := s.load(ctx, from, to)
	if err != nil {
		return GST{}, err
	}
	rows := map[string]*GSTRow{}
	for _, inv := range invoices {
		totals := billing.DisplayTotals(billing.Reconcile(inv.Items))
		day := inv.CreatedAt.UTC().Format(time.DateOnly)
		if rows[day] == nil {
			rows[day] = &GSTRow{Day: day}
		}
		rows[day].Taxable = rows[day].Taxable.Add(totals.SubTotal)
		rows[day].GST = rows[day].GST.Add(totals.GST)
	}

	out := GST{From: from.Format(time.DateOnly), To: to.Format(time.DateOnly), Rows: make([]GSTRow, 0, len(rows))}
	for _, row := range rows {
		row.CGST, row.SGST = split(row.GST)
		out.Rows = append(out.Rows, *row)
		out.Overall.Taxable = out.Overall.Taxable.Add(row.Taxable)
		out.Overall.GST = out.Overall.GST.Add(row.GST)
	}
	sort.Slice(out.Rows, func(i, j int) bool { return out.Rows[i].Day < out.Rows[j].Day })
	out.Overall.CGST, out.Overall.SGST = split(out.Overall.GST)
	out.GSTText = s.formatter.Amount(out.Overall.GST)
	return out, nil
}

// Dashboard loads counts and today's sales concurrently.
func (s *Service) Dashboard(ctx context.Context, day time.Time) (Dashboard, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	out := Dashboard{Day: day.Format(time.DateOnly)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := s.directory.Products(gctx)
		if err != nil {
			return fmt.Errorf("dashboard products: %w", err)
		}
		out.Products = len(products)
		return nil
	})
	g.Go(func() error {
		customers, err := s.directory.Customers(gctx, "")
		if err != nil {
			return fmt.Errorf("dashboard customers: %w", err)
		}
		out.Customers = len(customers)
		return nil
	})
	g.Go(func() error {
		today, err := s.Sales(gctx, day, day)
		if err != nil {
			return fmt.Errorf("dashboard sales: %w", err)
		}
		out.Today = today
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

// inclusiveDays counts the calendar days from..to, both included.
func inclusiveDays(from, to time.Time) int {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours()/24) + 1
}

func (s *Service) load(ctx context.Context, from, to time.Time) ([]backend.Invoice, error) {
	if from.After(to) {
		return nil, billing.Invalid(ErrRange)
	}
	if inclusiveDays(from, to) > maxRangeDays {
		return nil, billing.Invalid(fmt.Errorf("report range exceeds %d days", maxRangeDays))
	}
	invoices, err := s.invoices.ListInvoices(ctx, backend.InvoiceFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func bucket(m map[string]*BreakdownRow, key string) *BreakdownRow {
	if m[key] == nil {
		m[key] = &BreakdownRow{Key: key}
	}
	return m[key]
}

func flatten(m map[string]*BreakdownRow) []BreakdownRow {
	out := make([]BreakdownRow, 0, len(m))
	for _, row := range m {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// split halves gst into central and state shares; the state share absorbs
// any odd paisa.
func split(gst decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	central := gst.Div(decimal.NewFromInt(2)).Truncate(2)
	return central, gst.Sub(central)
}
