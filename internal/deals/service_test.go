package deals

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	deals  map[string]*Deal
	nextID int

	listErr   error
	createErr error

	// afterGet simulates a concurrent writer racing between the service's
	// read and its conditional write.
	afterGet func(m *mockRepository)
}

func newMockRepository() *mockRepository {
	return &mockRepository{deals: make(map[string]*Deal), nextID: 1}
}

func (m *mockRepository) ListByOwner(ctx context.Context, ownerID string) ([]DealWithContact, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var list []DealWithContact
	for _, d := range m.deals {
		if d.UserID != ownerID {
			continue
		}
		list = append(list, DealWithContact{Deal: *d, ContactName: "Client " + d.ContactID})
	}
	return list, nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*Deal, error) {
	d, ok := m.deals[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	if m.afterGet != nil {
		hook := m.afterGet
		m.afterGet = nil
		hook(m)
	}
	return &copied, nil
}

func (m *mockRepository) Create(ctx context.Context, deal Deal) (*Deal, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if deal.ID == "" {
		deal.ID = fmt.Sprintf("deal-%d", m.nextID)
		m.nextID++
	}
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	stored := deal
	m.deals[deal.ID] = &stored
	return &deal, nil
}

func (m *mockRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	d, ok := m.deals[id]
	if !ok {
		return ErrNotFound
	}
	applyUpdates(d, updates)
	return nil
}

func (m *mockRepository) UpdateIfStatus(ctx context.Context, id string, expected Status, updates map[string]interface{}) error {
	d, ok := m.deals[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != expected {
		return ErrConflict
	}
	applyUpdates(d, updates)
	return nil
}

func (m *mockRepository) UpdateIfInvoiceStatus(ctx context.Context, id string, expected InvoiceStatus, updates map[string]interface{}) error {
	d, ok := m.deals[id]
	if !ok {
		return ErrNotFound
	}
	if d.Status != StatusInvoice || d.InvoiceStatus == nil || *d.InvoiceStatus != expected {
		return ErrConflict
	}
	applyUpdates(d, updates)
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.deals[id]; !ok {
		return ErrNotFound
	}
	delete(m.deals, id)
	return nil
}

func applyUpdates(d *Deal, updates map[string]interface{}) {
	for col, v := range updates {
		switch col {
		case "title":
			d.Title = v.(string)
		case "notes":
			notes := v.(string)
			d.Notes = &notes
		case "amount":
			d.Amount = v.(float64)
		case "contact_id":
			d.ContactID = v.(string)
		case "status":
			d.Status = Status(v.(string))
			if d.Status != StatusInvoice {
				d.InvoiceStatus = nil
			}
		case "invoice_status":
			status := InvoiceStatus(v.(string))
			d.InvoiceStatus = &status
		case "due_date":
			if v == nil {
				d.DueDate = nil
				continue
			}
			due := v.(time.Time)
			d.DueDate = &due
		}
	}
}

type mockContacts struct {
	known map[string]bool
	err   error
}

func (m *mockContacts) Exists(ctx context.Context, ownerID, contactID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.known[ownerID+"/"+contactID], nil
}

type mockInvalidator struct {
	bumps int
	err   error
}

func (m *mockInvalidator) Bump(ctx context.Context) error {
	m.bumps++
	return m.err
}

func newTestService(repo *mockRepository) (*Service, *mockInvalidator) {
	contacts := &mockContacts{known: map[string]bool{
		"user-1/contact-1": true,
		"user-1/contact-2": true,
	}}
	invalidator := &mockInvalidator{}
	svc := NewService(repo, contacts, invalidator).WithClock(func() time.Time {
		return time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)
	})
	return svc, invalidator
}

func seedProposal(repo *mockRepository, status Status) *Deal {
	d, _ := repo.Create(context.Background(), Deal{
		UserID:    "user-1",
		ContactID: "contact-1",
		Title:     "Website redesign",
		Amount:    1200,
		Status:    status,
	})
	return d
}

func seedInvoice(repo *mockRepository, status InvoiceStatus) *Deal {
	d, _ := repo.Create(context.Background(), Deal{
		UserID:        "user-1",
		ContactID:     "contact-1",
		Title:         "Invoice for: Website redesign",
		Amount:        1200,
		Status:        StatusInvoice,
		InvoiceStatus: &status,
	})
	return d
}

// ============================================================================
// CREATE
// ============================================================================

func TestCreateDeal(t *testing.T) {
	ctx := context.Background()

	t.Run("opens proposal in open status", func(t *testing.T) {
		repo := newMockRepository()
		svc, invalidator := newTestService(repo)

		deal, err := svc.Create(ctx, "user-1", CreateDealRequest{
			ContactID: "contact-1",
			Title:     "New CRM rollout",
			Amount:    4500,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusOpen, deal.Status)
		assert.Nil(t, deal.InvoiceStatus)
		assert.Equal(t, "user-1", deal.UserID)
		assert.Equal(t, 1, invalidator.bumps)
	})

	t.Run("invalidation failure is logged, not returned", func(t *testing.T) {
		repo := newMockRepository()
		svc, invalidator := newTestService(repo)
		invalidator.err = errors.New("redis: connection refused")

		var logs bytes.Buffer
		svc.WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))

		deal, err := svc.Create(ctx, "user-1", CreateDealRequest{
			ContactID: "contact-1",
			Title:     "New CRM rollout",
			Amount:    4500,
		})
		require.NoError(t, err)
		assert.NotNil(t, deal)
		assert.Equal(t, 1, invalidator.bumps)
		assert.Contains(t, logs.String(), "invalidate dashboard cache")
		assert.Contains(t, logs.String(), "connection refused")
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)

		_, err := svc.Create(ctx, "user-1", CreateDealRequest{
			ContactID: "contact-1",
			Title:     "Freebie",
			Amount:    0,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects malformed due date", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)

		bad := "13/03/2024"
		_, err := svc.Create(ctx, "user-1", CreateDealRequest{
			ContactID: "contact-1",
			Title:     "New CRM rollout",
			Amount:    100,
			DueDate:   &bad,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects unknown contact", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)

		_, err := svc.Create(ctx, "user-1", CreateDealRequest{
			ContactID: "contact-99",
			Title:     "New CRM rollout",
			Amount:    100,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// ============================================================================
// UPDATE
// ============================================================================

func TestUpdateDeal(t *testing.T) {
	ctx := context.Background()

	t.Run("edits title and amount on a proposal", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusOpen)

		title := "Website redesign v2"
		amount := 1500.0
		updated, err := svc.Update(ctx, "user-1", seeded.ID, UpdateDealRequest{
			Title:  &title,
			Amount: &amount,
		})
		require.NoError(t, err)
		assert.Equal(t, "Website redesign v2", updated.Title)
		assert.Equal(t, 1500.0, updated.Amount)
	})

	t.Run("invoice amount is immutable", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedInvoice(repo, InvoicePending)

		amount := 999.0
		_, err := svc.Update(ctx, "user-1", seeded.ID, UpdateDealRequest{Amount: &amount})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("hides other owners' deals", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusOpen)

		title := "hijack"
		_, err := svc.Update(ctx, "user-2", seeded.ID, UpdateDealRequest{Title: &title})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// ============================================================================
// PROPOSAL STATUS MACHINE
// ============================================================================

func TestChangeProposalStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("moves between proposal states", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusOpen)

		updated, err := svc.ChangeProposalStatus(ctx, "user-1", seeded.ID, StatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, updated.Status)
	})

	t.Run("invoice status cannot be edited through the proposal machine", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedInvoice(repo, InvoicePending)

		_, err := svc.ChangeProposalStatus(ctx, "user-1", seeded.ID, StatusOpen)
		assert.ErrorIs(t, err, ErrNotAProposal)
	})

	t.Run("invoice is not a reachable proposal target", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusAccepted)

		_, err := svc.ChangeProposalStatus(ctx, "user-1", seeded.ID, StatusInvoice)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusOpen)

		_, err := svc.ChangeProposalStatus(ctx, "user-1", seeded.ID, Status("archived"))
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("concurrent writer surfaces as conflict", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusOpen)

		// Another writer changes the row between the service read and write.
		repo.afterGet = func(m *mockRepository) {
			m.deals[seeded.ID].Status = StatusRefused
		}

		_, err := svc.ChangeProposalStatus(ctx, "user-1", seeded.ID, StatusAccepted)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

// ============================================================================
// CONVERSION
// ============================================================================

func TestConvertToInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("copies the accepted proposal into a pending invoice", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		notes := "Net 30"
		due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
		source, _ := repo.Create(ctx, Deal{
			UserID:    "user-1",
			ContactID: "contact-2",
			Title:     "Website redesign",
			Notes:     &notes,
			Amount:    1200,
			DueDate:   &due,
			Status:    StatusAccepted,
		})

		invoice, err := svc.ConvertToInvoice(ctx, "user-1", source.ID)
		require.NoError(t, err)

		assert.NotEqual(t, source.ID, invoice.ID)
		assert.Equal(t, "Invoice for: Website redesign", invoice.Title)
		assert.Equal(t, source.ContactID, invoice.ContactID)
		assert.Equal(t, source.Amount, invoice.Amount)
		require.NotNil(t, invoice.Notes)
		assert.Equal(t, notes, *invoice.Notes)
		require.NotNil(t, invoice.DueDate)
		assert.Equal(t, due, *invoice.DueDate)
		assert.Equal(t, StatusInvoice, invoice.Status)
		require.NotNil(t, invoice.InvoiceStatus)
		assert.Equal(t, InvoicePending, *invoice.InvoiceStatus)

		// Source proposal is untouched.
		stored, err := repo.Get(ctx, source.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, stored.Status)
		assert.Equal(t, "Website redesign", stored.Title)
	})

	t.Run("only accepted proposals convert", func(t *testing.T) {
		for _, status := range []Status{StatusOpen, StatusPending, StatusRefused, StatusLost} {
			repo := newMockRepository()
			svc, _ := newTestService(repo)
			seeded := seedProposal(repo, status)

			_, err := svc.ConvertToInvoice(ctx, "user-1", seeded.ID)
			assert.ErrorIs(t, err, ErrConversion, "status %s", status)
		}
	})

	t.Run("invoices do not convert again", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedInvoice(repo, InvoicePending)

		_, err := svc.ConvertToInvoice(ctx, "user-1", seeded.ID)
		assert.ErrorIs(t, err, ErrConversion)
	})

	t.Run("missing source reports a conversion error", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)

		_, err := svc.ConvertToInvoice(ctx, "user-1", "deal-404")
		assert.ErrorIs(t, err, ErrConversion)
	})

	t.Run("repeat conversion creates another invoice", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusAccepted)

		first, err := svc.ConvertToInvoice(ctx, "user-1", seeded.ID)
		require.NoError(t, err)
		second, err := svc.ConvertToInvoice(ctx, "user-1", seeded.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

// ============================================================================
// INVOICE STATUS
// ============================================================================

func TestChangeInvoiceStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("moves invoice sub-state", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedInvoice(repo, InvoicePending)

		updated, err := svc.ChangeInvoiceStatus(ctx, "user-1", seeded.ID, InvoicePaid)
		require.NoError(t, err)
		require.NotNil(t, updated.InvoiceStatus)
		assert.Equal(t, InvoicePaid, *updated.InvoiceStatus)
	})

	t.Run("proposals have no invoice sub-state", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusAccepted)

		_, err := svc.ChangeInvoiceStatus(ctx, "user-1", seeded.ID, InvoicePaid)
		assert.ErrorIs(t, err, ErrNotAnInvoice)
	})

	t.Run("unknown sub-state is rejected", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedInvoice(repo, InvoicePending)

		_, err := svc.ChangeInvoiceStatus(ctx, "user-1", seeded.ID, InvoiceStatus("cancelled"))
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("concurrent writer surfaces as conflict", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedInvoice(repo, InvoicePending)

		repo.afterGet = func(m *mockRepository) {
			paid := InvoicePaid
			m.deals[seeded.ID].InvoiceStatus = &paid
		}

		_, err := svc.ChangeInvoiceStatus(ctx, "user-1", seeded.ID, InvoiceOverdue)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

// ============================================================================
// DUE DATE AND DELETE
// ============================================================================

func TestSetDueDate(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc, _ := newTestService(repo)
	seeded := seedProposal(repo, StatusOpen)

	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	updated, err := svc.SetDueDate(ctx, "user-1", seeded.ID, &due)
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, due, *updated.DueDate)

	cleared, err := svc.SetDueDate(ctx, "user-1", seeded.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
}

func TestDeleteDeal(t *testing.T) {
	ctx := context.Background()

	t.Run("removes an owned deal", func(t *testing.T) {
		repo := newMockRepository()
		svc, invalidator := newTestService(repo)
		seeded := seedProposal(repo, StatusOpen)

		require.NoError(t, svc.Delete(ctx, "user-1", seeded.ID))
		_, err := repo.Get(ctx, seeded.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, invalidator.bumps)
	})

	t.Run("hides other owners' deals", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestService(repo)
		seeded := seedProposal(repo, StatusOpen)

		err := svc.Delete(ctx, "user-2", seeded.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// ============================================================================
// LIST
// ============================================================================

func TestListValidatesFilters(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc, _ := newTestService(repo)

	_, err := svc.List(ctx, "user-1", ListFilters{Amount: "cheap"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.List(ctx, "user-1", ListFilters{Due: DueWindow("someday")})
	assert.ErrorIs(t, err, ErrValidation)
}
