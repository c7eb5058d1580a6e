package deals

import "time"

// Status classifies a deal. Every value except StatusInvoice marks a live
// proposal; StatusInvoice marks a record produced by conversion.
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
	StatusLost     Status = "lost"
	StatusInvoice  Status = "invoice"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusAccepted, StatusRefused, StatusLost, StatusInvoice:
		return true
	}
	return false
}

// IsProposal reports whether s belongs to the proposal phase.
func (s Status) IsProposal() bool {
	return s.Valid() && s != StatusInvoice
}

// InvoiceStatus is the invoice sub-state, meaningful only when the deal
// status is StatusInvoice.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// Valid reports whether s is a known invoice sub-state.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoicePending, InvoicePaid, InvoiceOverdue:
		return true
	}
	return false
}

// Deal is the shared record behind both proposals and invoices. DueDate is a
// follow-up reminder while the deal is a proposal and the payment deadline
// once converted; nil means unset, never "today".
type Deal struct {
	ID            string         `json:"id" db:"id"`
	UserID        string         `json:"user_id" db:"user_id"`
	ContactID     string         `json:"contact_id" db:"contact_id"`
	Title         string         `json:"title" db:"title"`
	Notes         *string        `json:"notes,omitempty" db:"notes"`
	Amount        float64        `json:"amount" db:"amount"`
	DueDate       *time.Time     `json:"due_date,omitempty" db:"due_date"`
	Status        Status         `json:"status" db:"status"`
	InvoiceStatus *InvoiceStatus `json:"invoice_status,omitempty" db:"invoice_status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// IsInvoice reports whether the deal has been converted.
func (d Deal) IsInvoice() bool {
	return d.Status == StatusInvoice
}

// DealWithContact carries the read-only contact join used by lists,
// dashboards, and notifications.
type DealWithContact struct {
	Deal
	ContactName    string  `json:"contact_name" db:"contact_name"`
	ContactCompany *string `json:"contact_company,omitempty" db:"contact_company"`
}

// Proposal and Invoice are typed views over the two halves of the deal
// collection. Aggregation code consumes the partition instead of checking
// status strings, so a row can never be counted on both sides.
type Proposal struct {
	DealWithContact
}

type Invoice struct {
	DealWithContact
}

// Partition splits deals into proposals and invoices. The split is total:
// every input row lands in exactly one of the two slices, preserving order.
func Partition(list []DealWithContact) ([]Proposal, []Invoice) {
	proposals := make([]Proposal, 0, len(list))
	invoices := make([]Invoice, 0, len(list))
	for _, d := range list {
		if d.IsInvoice() {
			invoices = append(invoices, Invoice{d})
			continue
		}
		proposals = append(proposals, Proposal{d})
	}
	return proposals, invoices
}
