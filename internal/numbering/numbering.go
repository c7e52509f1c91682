// Package numbering issues human-readable invoice numbers from a server-side
// sequence kept per tenant, prefix and calendar day.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sequencer returns the next value of the (tenant, prefix, day) counter.
type Sequencer interface {
	Next(ctx context.Context, tenant, prefix string, day time.Time) (int64, error)
}

// ErrTenantRequired is returned when no tenant is supplied.
var ErrTenantRequired = errors.New("numbering: tenant required")

// Service formats numbers as PREFIX-YYYYMMDD-NNNN.
type Service struct {
	seq    Sequencer
	prefix string
	now    func() time.Time
}

// NewService constructs a Service. An empty prefix falls back to INV.
func NewService(seq Sequencer, prefix string) *Service {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "INV"
	}
	return &Service{seq: seq, prefix: prefix, now: time.Now}
}

// Next reserves and formats the next invoice number for tenant.
func (s *Service) Next(ctx context.Context, tenant string) (string, error) {
	if tenant == "" {
		return "", ErrTenantRequired
	}
	day := s.now().UTC().Truncate(24 * time.Hour)
	n, err := s.seq.Next(ctx, tenant, s.prefix, day)
	if err != nil {
		return "", fmt.Errorf("numbering: next %s: %w", s.prefix, err)
	}
	return Format(s.prefix, day, n), nil
}

// Format renders an invoice number.
func Format(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), n)
}
