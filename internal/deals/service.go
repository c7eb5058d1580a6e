package deals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// invoiceTitlePrefix marks converted deals; the invoice keeps the source
// proposal's title behind it.
const invoiceTitlePrefix = "Invoice for: "

// ContactChecker verifies the linked contact exists for the owner before a
// deal references it.
type ContactChecker interface {
	Exists(ctx context.Context, ownerID, contactID string) (bool, error)
}

// CacheInvalidator lets the engine drop derived dashboard views after a
// mutation. A nil invalidator is a no-op.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service is the deal lifecycle engine. It owns the proposal status machine,
// the one-way conversion into invoices, and the single filtering path every
// list screen goes through.
type Service struct {
	repo       Repository
	contacts   ContactChecker
	invalidate CacheInvalidator
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the lifecycle engine. invalidate may be nil.
func NewService(repo Repository, contacts ContactChecker, invalidate CacheInvalidator) *Service {
	return &Service{
		repo:       repo,
		contacts:   contacts,
		invalidate: invalidate,
		validate:   validator.New(),
		logger:     slog.Default(),
		now:        time.Now,
	}
}

// WithClock overrides the clock used by list filtering.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLogger overrides the default logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Create opens a new proposal for the owner. Deals always start life as
// proposals; invoices exist only through conversion.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateDealRequest) (*Deal, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	dueDate, err := req.dueDate()
	if err != nil {
		return nil, err
	}

	ok, err := s.contacts.Exists(ctx, ownerID, req.ContactID)
	if err != nil {
		return nil, fmt.Errorf("verify contact: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: contact %s", ErrNotFound, req.ContactID)
	}

	deal, err := s.repo.Create(ctx, Deal{
		UserID:    ownerID,
		ContactID: req.ContactID,
		Title:     req.Title,
		Notes:     req.Notes,
		Amount:    req.Amount,
		DueDate:   dueDate,
		Status:    StatusOpen,
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return deal, nil
}

// Update edits free-form deal fields. Amount is a snapshot after conversion
// and can no longer be changed on invoices.
func (s *Service) Update(ctx context.Context, ownerID, id string, req UpdateDealRequest) (*Deal, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	existing, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if existing.IsInvoice() && req.Amount != nil {
		return nil, fmt.Errorf("%w: invoice amount is a snapshot taken at conversion", ErrValidation)
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.ContactID != nil {
		ok, err := s.contacts.Exists(ctx, ownerID, *req.ContactID)
		if err != nil {
			return nil, fmt.Errorf("verify contact: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: contact %s", ErrNotFound, *req.ContactID)
		}
		updates["contact_id"] = *req.ContactID
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// ChangeProposalStatus moves a proposal between the five proposal states.
// The write is conditioned on the status read here: a concurrent change
// surfaces as ErrConflict and the caller re-fetches and retries.
func (s *Service) ChangeProposalStatus(ctx context.Context, ownerID, id string, newStatus Status) (*Deal, error) {
	existing, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if existing.IsInvoice() {
		return nil, fmt.Errorf("%w: status of an invoice cannot be edited", ErrNotAProposal)
	}
	if !newStatus.IsProposal() {
		return nil, fmt.Errorf("%w: %q is not a proposal status", ErrInvalidTransition, newStatus)
	}

	err = s.repo.UpdateIfStatus(ctx, id, existing.Status, map[string]interface{}{
		"status": string(newStatus),
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// ConvertToInvoice creates a new invoice deal from an accepted proposal,
// copying contact, amount, notes, and due date. The source proposal is left
// untouched; the invoice exists only once the store create returns.
//
// The engine does not deduplicate: a repeated call on the same accepted
// proposal creates another invoice. Callers must disable repeat submission.
func (s *Service) ConvertToInvoice(ctx context.Context, ownerID, id string) (*Deal, error) {
	source, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: source proposal not found", ErrConversion)
		}
		return nil, err
	}
	if source.IsInvoice() {
		return nil, fmt.Errorf("%w: deal is already an invoice", ErrConversion)
	}
	if source.Status != StatusAccepted {
		return nil, fmt.Errorf("%w: only accepted proposals can be converted, status is %q", ErrConversion, source.Status)
	}

	pending := InvoicePending
	invoice, err := s.repo.Create(ctx, Deal{
		UserID:        source.UserID,
		ContactID:     source.ContactID,
		Title:         invoiceTitlePrefix + source.Title,
		Notes:         source.Notes,
		Amount:        source.Amount,
		DueDate:       source.DueDate,
		Status:        StatusInvoice,
		InvoiceStatus: &pending,
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.bump(ctx)
	return invoice, nil
}

// ChangeInvoiceStatus moves an invoice between pending, paid, and overdue.
func (s *Service) ChangeInvoiceStatus(ctx context.Context, ownerID, id string, newStatus InvoiceStatus) (*Deal, error) {
	existing, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsInvoice() {
		return nil, fmt.Errorf("%w: deal %s", ErrNotAnInvoice, id)
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q is not an invoice status", ErrInvalidTransition, newStatus)
	}

	current := InvoicePending
	if existing.InvoiceStatus != nil {
		current = *existing.InvoiceStatus
	}
	err = s.repo.UpdateIfInvoiceStatus(ctx, id, current, map[string]interface{}{
		"invoice_status": string(newStatus),
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// SetDueDate sets or clears the due date. The field means "follow up by"
// on proposals and "payment due" on invoices; the operation is the same.
func (s *Service) SetDueDate(ctx context.Context, ownerID, id string, dueDate *time.Time) (*Deal, error) {
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	var value interface{}
	if dueDate != nil {
		value = *dueDate
	}
	if err := s.repo.Update(ctx, id, map[string]interface{}{"due_date": value}); err != nil {
		return nil, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes the deal. Comments are untouched: they belong to the
// contact, not the deal.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// Get returns one owned deal.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Deal, error) {
	return s.getOwned(ctx, ownerID, id)
}

// List fetches the owner's deals and applies the shared filters.
func (s *Service) List(ctx context.Context, ownerID string, filters ListFilters) ([]DealWithContact, error) {
	if filters.Amount != "" && !filters.Amount.Valid() {
		return nil, fmt.Errorf("%w: unknown amount range %q", ErrValidation, filters.Amount)
	}
	if !filters.Due.Valid() {
		return nil, fmt.Errorf("%w: unknown due window %q", ErrValidation, filters.Due)
	}
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return filters.Apply(list, s.now()), nil
}

// getOwned loads a deal and hides other owners' records behind ErrNotFound.
func (s *Service) getOwned(ctx context.Context, ownerID, id string) (*Deal, error) {
	deal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deal.UserID != ownerID {
		return nil, ErrNotFound
	}
	return deal, nil
}

// bump drops derived dashboard views after a successful mutation. Failures
// only delay invalidation until the cache TTL expires, so they are logged
// rather than returned.
func (s *Service) bump(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	if err := s.invalidate.Bump(ctx); err != nil {
		s.logger.Warn("invalidate dashboard cache", slog.Any("error", err))
	}
}
