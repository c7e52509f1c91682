package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/billdesk/internal/backend"
	"github.com/odyssey-erp/billdesk/internal/billing"
	"github.com/odyssey-erp/billdesk/internal/catalog"
	"github.com/odyssey-erp/billdesk/internal/shared"
)

// Backend is the part of the billing backend the desk writes to.
type Backend interface {
	GetCustomer(ctx context.Context, id string) (backend.Customer, error)
	CreateInvoice(ctx context.Context, payload billing.InvoicePayload) (string, error)
}

// Catalog provides the tenant's cached products and customers.
type Catalog interface {
	Products(ctx context.Context) ([]billing.Product, error)
	Customer(ctx context.Context, id string) (catalog.Customer, error)
}

// Numberer issues invoice numbers.
type Numberer interface {
	Next(ctx context.Context, tenant string) (string, error)
}

// Ledger records idempotency keys and the receipts produced for them.
type Ledger interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Complete(ctx context.Context, key, module string, response any) error
	Lookup(ctx context.Context, key, module string, dest any) (bool, error)
	Delete(ctx context.Context, key, module string) error
}

// Locker serialises submissions of the same draft.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Observer receives submission outcomes.
type Observer interface {
	ObserveSubmission(status billing.InvoiceStatus, outcome string, elapsed time.Duration)
}

// Submission outcomes reported to the Observer.
const (
	OutcomeCreated  = "created"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Deps groups the collaborators of Service.
type Deps struct {
	Store    *Store
	Backend  Backend
	Catalog  Catalog
	Numbers  Numberer
	Ledger   Ledger
	Locker   Locker
	Observer Observer
	Logger   *slog.Logger
	LockTTL  time.Duration
}

// Service implements the new-bill workflow.
type Service struct {
	store    *Store
	backend  Backend
	catalog  Catalog
	numbers  Numberer
	ledger   Ledger
	locker   Locker
	observer Observer
	logger   *slog.Logger
	lockTTL  time.Duration
	now      func() time.Time
}

// NewService constructs the desk service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &Service{
		store:    deps.Store,
		backend:  deps.Backend,
		catalog:  deps.Catalog,
		numbers:  deps.Numbers,
		ledger:   deps.Ledger,
		locker:   deps.Locker,
		observer: deps.Observer,
		logger:   logger,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

// Create opens a new EMPTY draft.
func (s *Service) Create(ctx context.Context, tenant string) (View, error) {
	d, err := s.store.Create(ctx, tenant)
	if err != nil {
		return View{}, err
	}
	return NewView(d), nil
}

// Get renders a draft.
func (s *Service) Get(ctx context.Context, tenant, id string) (View, error) {
	d, err := s.store.Get(ctx, tenant, id)
	if err != nil {
		return View{}, err
	}
	return NewView(d), nil
}

// Discard drops a draft.
func (s *Service) Discard(ctx context.Context, tenant, id string) error {
	return s.store.Delete(ctx, tenant, id)
}

// SelectCustomer binds the draft to a customer. The cached customer list is
// consulted first; customers it does not know yet are loaded from the
// backend.
func (s *Service) SelectCustomer(ctx context.Context, tenant, id, customerID string) (View, error) {
	if customerID == "" {
		return View{}, billing.Invalid(billing.ErrCustomerRequired)
	}
	ref, err := s.resolveCustomer(ctx, tenant, customerID)
	if err != nil {
		return View{}, err
	}
	return s.update(ctx, tenant, id, func(d *Draft) error {
		d.Customer = &ref
		return nil
	})
}

func (s *Service) resolveCustomer(ctx context.Context, tenant, customerID string) (billing.CustomerRef, error) {
	cached, err := s.catalog.Customer(shared.ContextWithTenant(ctx, tenant), customerID)
	switch {
	case err == nil:
		return cached.Ref(), nil
	case !errors.Is(err, shared.ErrNotFound):
		s.logger.Warn("customer cache lookup", slog.String("tenant", tenant), slog.Any("error", err))
	}

	c, err := s.backend.GetCustomer(ctx, customerID)
	if err != nil {
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.NotFound() {
			return billing.CustomerRef{}, fmt.Errorf("customer %s: %w", customerID, shared.ErrNotFound)
		}
		return billing.CustomerRef{}, err
	}
	ref := c.Ref()
	if ref.ID == "" {
		ref.ID = customerID
	}
	return ref, nil
}

// AddItem appends a blank row.
func (s *Service) AddItem(ctx context.Context, tenant, id string) (View, error) {
	return s.update(ctx, tenant, id, func(d *Draft) error {
		d.AddItem()
		return nil
	})
}

// RemoveItem drops the row at index.
func (s *Service) RemoveItem(ctx context.Context, tenant, id string, index int) (View, error) {
	return s.update(ctx, tenant, id, func(d *Draft) error {
		return d.RemoveItem(index)
	})
}

// EditItem applies a row edit. Name edits are matched against the catalog.
func (s *Service) EditItem(ctx context.Context, tenant, id string, index int, edit ItemEdit) (View, error) {
	var products []billing.Product
	if edit.Name != nil {
		var err error
		products, err = s.catalog.Products(shared.ContextWithTenant(ctx, tenant))
		if err != nil {
			return View{}, fmt.Errorf("desk: load catalog: %w", err)
		}
	}
	var match *billing.MatchResult
	view, err := s.update(ctx, tenant, id, func(d *Draft) error {
		var err error
		match, err = d.EditItem(index, edit, products)
		return err
	})
	if err != nil {
		return View{}, err
	}
	view.Match = match
	return view, nil
}

// Reset returns the draft to EMPTY.
func (s *Service) Reset(ctx context.Context, tenant, id string) (View, error) {
	return s.update(ctx, tenant, id, func(d *Draft) error {
		d.Reset()
		return nil
	})
}

// Save submits the draft as a PENDING invoice.
func (s *Service) Save(ctx context.Context, tenant, id, idemKey string) (Receipt, error) {
	return s.submit(ctx, tenant, id, billing.StatusPending, nil, idemKey)
}

// Pay submits the draft as a PAID invoice collected with payment.
func (s *Service) Pay(ctx context.Context, tenant, id string, payment billing.Payment, idemKey string) (Receipt, error) {
	return s.submit(ctx, tenant, id, billing.StatusPaid, &payment, idemKey)
}

func (s *Service) update(ctx context.Context, tenant, id string, fn func(*Draft) error) (View, error) {
	d, err := s.store.Update(ctx, tenant, id, fn)
	if err != nil {
		return View{}, err
	}
	return NewView(d), nil
}

const completeAttempts = 3

var errDraftChanged = errors.New("desk: draft changed since submission began")

// completeKey stores the receipt against the idempotency key. The invoice
// already exists at this point, so the write is retried and is not tied to
// the caller's cancellation.
func (s *Service) completeKey(ctx context.Context, key, module string, receipt Receipt) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < completeAttempts; attempt++ {
		if err = s.ledger.Complete(ctx, key, module, receipt); err == nil {
			return nil
		}
	}
	return err
}

func ledgerModule(tenant string) string {
	return "desk:" + tenant
}

func (s *Service) submit(ctx context.Context, tenant, id string, status billing.InvoiceStatus, payment *billing.Payment, idemKey string) (Receipt, error) {
	started := s.now()
	logger := s.logger.With(slog.String("tenant", tenant), slog.String("draft", id), slog.String("status", string(status)))

	release, err := s.locker.Acquire(ctx, shared.DraftLockKey(tenant, id), s.lockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLocked) {
			return Receipt{}, ErrSubmissionInFlight
		}
		return Receipt{}, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release submit lock", slog.Any("error", err))
		}
	}()

	module := ledgerModule(tenant)
	claimed := false
	if idemKey != "" && s.ledger != nil {
		if err := s.ledger.CheckAndInsert(ctx, idemKey, module); err != nil {
			if !errors.Is(err, shared.ErrIdempotencyConflict) {
				return Receipt{}, fmt.Errorf("desk: claim idempotency key: %w", err)
			}
			var prior Receipt
			done, lookupErr := s.ledger.Lookup(ctx, idemKey, module, &prior)
			if lookupErr != nil {
				return Receipt{}, fmt.Errorf("desk: load idempotent receipt: %w", lookupErr)
			}
			if !done {
				return Receipt{}, ErrSubmissionInFlight
			}
			prior.Replayed = true
			s.observe(status, OutcomeReplayed, started)
			logger.Info("replayed submission", slog.String("invoice", prior.InvoiceID))
			return prior, nil
		}
		claimed = true
	}

	fail := func(outcome string, err error) (Receipt, error) {
		if claimed {
			if delErr := s.ledger.Delete(context.WithoutCancel(ctx), idemKey, module); delErr != nil {
				logger.Error("release idempotency key", slog.Any("error", delErr))
			}
		}
		s.observe(status, outcome, started)
		return Receipt{}, err
	}

	d, err := s.store.Get(ctx, tenant, id)
	if err != nil {
		return fail(OutcomeRejected, err)
	}
	payload, totals, err := billing.Assemble(billing.AssembleInput{
		Customer: d.Customer,
		Items:    d.Items,
		Strategy: billing.NewBill,
		Status:   status,
		Payment:  payment,
	})
	if err != nil {
		return fail(OutcomeRejected, err)
	}
	payload.InvoiceNo, err = s.numbers.Next(ctx, tenant)
	if err != nil {
		return fail(OutcomeFailed, fmt.Errorf("desk: invoice number: %w", err))
	}
	invoiceID, err := s.backend.CreateInvoice(ctx, payload)
	if err != nil {
		logger.Error("create invoice", slog.String("invoice_no", payload.InvoiceNo), slog.Any("error", err))
		return fail(OutcomeFailed, err)
	}

	receipt := Receipt{
		DraftID:     id,
		InvoiceID:   invoiceID,
		InvoiceNo:   payload.InvoiceNo,
		Status:      status,
		Stage:       stageFor(status),
		Customer:    *d.Customer,
		Payment:     payload.Payment,
		Totals:      totals,
		SubmittedAt: s.now().UTC(),
	}
	if claimed {
		if err := s.completeKey(ctx, idemKey, module, receipt); err != nil {
			logger.Error("store idempotent receipt", slog.String("key", idemKey), slog.Any("error", err))
		}
	}
	submitted := d.UpdatedAt
	_, err = s.store.Update(context.WithoutCancel(ctx), tenant, id, func(d *Draft) error {
		if !d.UpdatedAt.Equal(submitted) {
			return errDraftChanged
		}
		d.Reset()
		return nil
	})
	switch {
	case errors.Is(err, errDraftChanged):
		logger.Info("draft edited during submission, keeping edits")
	case err != nil:
		logger.Error("reset draft after submission", slog.Any("error", err))
	}
	s.observe(status, OutcomeCreated, started)
	logger.Info("invoice submitted", slog.String("invoice", invoiceID), slog.String("invoice_no", receipt.InvoiceNo))
	return receipt, nil
}

func stageFor(status billing.InvoiceStatus) Stage {
	if status == billing.StatusPaid {
		return StagePaid
	}
	return StageSavedPending
}

func (s *Service) observe(status billing.InvoiceStatus, outcome string, started time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveSubmission(status, outcome, s.now().Sub(started))
}
