// Package catalog serves the product catalog and customer list of a tenant
// from a Redis read-through cache in front of the billing backend.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/billdesk/internal/backend"
	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

// Source is the backend surface the catalog reads from.
type Source interface {
	ListProducts(ctx context.Context) ([]billing.Product, error)
	ListCustomers(ctx context.Context, search string) ([]backend.Customer, error)
}

// Customer is the customer projection served to the desk.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	GSTIN string `json:"gstin,omitempty"`
}

// Ref converts the customer into the billing reference.
func (c Customer) Ref() billing.CustomerRef {
	return billing.CustomerRef{ID: c.ID, Name: c.Name}
}

// Service answers catalog reads.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs the catalog service.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// Products returns the tenant's catalog in backend order.
func (s *Service) Products(ctx context.Context) ([]billing.Product, error) {
	tenant := shared.TenantFromContext(ctx)
	key, err := s.cache.BuildKey(ctx, tenant, "products")
	if err != nil {
		return nil, fmt.Errorf("catalog: build key: %w", err)
	}
	val, err := s.collapse(ctx, key, func(ctx context.Context) (any, error) {
		var out []billing.Product
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.source.ListProducts(ctx)
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return val.([]billing.Product), nil
}

// Search lists products whose name starts with prefix, case-insensitively.
func (s *Service) Search(ctx context.Context, prefix string, limit int) ([]billing.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return billing.Suggest(prefix, products, limit), nil
}

// Customers returns customers matching search, or all of them when empty.
func (s *Service) Customers(ctx context.Context, search string) ([]Customer, error) {
	tenant := shared.TenantFromContext(ctx)
	search = strings.TrimSpace(search)
	key, err := s.cache.BuildKey(ctx, tenant, "customers", strings.ToLower(search))
	if err != nil {
		return nil, fmt.Errorf("catalog: build key: %w", err)
	}
	val, err := s.collapse(ctx, key, func(ctx context.Context) (any, error) {
		var out []Customer
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			wire, err := s.source.ListCustomers(ctx, search)
			if err != nil {
				return nil, err
			}
			customers := make([]Customer, 0, len(wire))
			for _, c := range wire {
				customers = append(customers, Customer{ID: c.Resolve(), Name: c.Name, Phone: c.Phone, GSTIN: c.GSTIN})
			}
			return customers, nil
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return val.([]Customer), nil
}

// Customer looks up one customer by id among the cached list.
func (s *Service) Customer(ctx context.Context, id string) (Customer, error) {
	customers, err := s.Customers(ctx, "")
	if err != nil {
		return Customer{}, err
	}
	for _, c := range customers {
		if c.ID == id {
			return c, nil
		}
	}
	return Customer{}, fmt.Errorf("customer %s: %w", id, shared.ErrNotFound)
}

// Invalidate drops every cached read of tenant.
func (s *Service) Invalidate(ctx context.Context, tenant string) error {
	ver, err := s.cache.Bump(ctx, tenant)
	if err != nil {
		return fmt.Errorf("catalog: invalidate %s: %w", tenant, err)
	}
	s.logger.Info("catalog invalidated", slog.String("tenant", tenant), slog.Int64("version", ver))
	return nil
}

// collapse merges concurrent loads of the same key.
func (s *Service) collapse(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}
