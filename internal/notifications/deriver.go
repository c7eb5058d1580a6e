// Package notifications derives alert items from an owner's deal list. Nothing
// is stored: every request recomputes the set from current data, so alerts
// disappear the moment the underlying deal is updated.
package notifications

import (
	"time"

	"github.com/dealdesk/dealdesk/internal/dates"
	"github.com/dealdesk/dealdesk/internal/deals"
)

// Kind classifies a notification.
type Kind string

const (
	KindProposal Kind = "proposal"
	KindInvoice  Kind = "invoice"
)

// Notification is one derived alert line.
type Notification struct {
	Kind       Kind    `json:"kind"`
	DealID     string  `json:"deal_id"`
	Title      string  `json:"title"`
	ClientName string  `json:"client_name"`
	Amount     float64 `json:"amount"`
	DueDate    string  `json:"due_date"`
}

// Derive computes the alert set: open proposals whose due date has passed, and
// pending invoices whose payment deadline has passed. Paid and overdue-marked
// invoices are excluded; the former needs no reminder, the latter is already
// surfaced by the dashboard counter.
func Derive(list []deals.DealWithContact, now time.Time) []Notification {
	proposals, invoices := deals.Partition(list)

	var out []Notification
	for _, p := range proposals {
		if p.Status != deals.StatusOpen || !dates.IsOverdue(p.DueDate, now) {
			continue
		}
		out = append(out, Notification{
			Kind:       KindProposal,
			DealID:     p.ID,
			Title:      p.Title,
			ClientName: p.ContactName,
			Amount:     p.Amount,
			DueDate:    p.DueDate.Format("2006-01-02"),
		})
	}
	for _, inv := range invoices {
		if inv.InvoiceStatus == nil || *inv.InvoiceStatus != deals.InvoicePending {
			continue
		}
		if !dates.IsOverdue(inv.DueDate, now) {
			continue
		}
		out = append(out, Notification{
			Kind:       KindInvoice,
			DealID:     inv.ID,
			Title:      inv.Title,
			ClientName: inv.ContactName,
			Amount:     inv.Amount,
			DueDate:    inv.DueDate.Format("2006-01-02"),
		})
	}
	return out
}
