package deals

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for due dates. Calendar day only, no zone.
const dateLayout = "2006-01-02"

// CreateDealRequest opens a new proposal.
type CreateDealRequest struct {
	ContactID string  `json:"contact_id" validate:"required"`
	Title     string  `json:"title" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Notes     *string `json:"notes,omitempty"`
	DueDate   *string `json:"due_date,omitempty"`
}

func (r CreateDealRequest) dueDate() (*time.Time, error) {
	return parseDate(r.DueDate)
}

// UpdateDealRequest edits free-form fields; nil leaves a field unchanged.
type UpdateDealRequest struct {
	ContactID *string  `json:"contact_id,omitempty" validate:"omitempty,min=1"`
	Title     *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Amount    *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Notes     *string  `json:"notes,omitempty"`
}

// ChangeStatusRequest moves a proposal to another proposal status.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ChangeInvoiceStatusRequest moves an invoice sub-state.
type ChangeInvoiceStatusRequest struct {
	InvoiceStatus string `json:"invoice_status" validate:"required"`
}

// SetDueDateRequest sets or clears (null) the due date.
type SetDueDateRequest struct {
	DueDate *string `json:"due_date"`
}

func (r SetDueDateRequest) dueDate() (*time.Time, error) {
	return parseDate(r.DueDate)
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrValidation)
	}
	return &t, nil
}

// DealView is the wire shape for a single deal.
type DealView struct {
	ID             string  `json:"id"`
	ContactID      string  `json:"contact_id"`
	Title          string  `json:"title"`
	Notes          *string `json:"notes"`
	Amount         float64 `json:"amount"`
	DueDate        *string `json:"due_date"`
	Status         string  `json:"status"`
	InvoiceStatus  *string `json:"invoice_status"`
	CreatedAt      string  `json:"created_at"`
	ContactName    string  `json:"contact_name,omitempty"`
	ContactCompany *string `json:"contact_company,omitempty"`
}

// NewDealView maps a Deal onto the wire shape.
func NewDealView(d Deal) DealView {
	view := DealView{
		ID:        d.ID,
		ContactID: d.ContactID,
		Title:     d.Title,
		Notes:     d.Notes,
		Amount:    d.Amount,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.DueDate != nil {
		due := d.DueDate.Format(dateLayout)
		view.DueDate = &due
	}
	if d.InvoiceStatus != nil {
		status := string(*d.InvoiceStatus)
		view.InvoiceStatus = &status
	}
	return view
}

// NewListView maps a joined deal list onto the wire shape.
func NewListView(list []DealWithContact) []DealView {
	views := make([]DealView, 0, len(list))
	for _, d := range list {
		view := NewDealView(d.Deal)
		view.ContactName = d.ContactName
		view.ContactCompany = d.ContactCompany
		views = append(views, view)
	}
	return views
}
