package deals

import (
	"strings"
	"time"

	"github.com/dealdesk/dealdesk/internal/dates"
)

// View selects one side of the proposal/invoice partition.
type View string

const (
	ViewProposals View = "proposals"
	ViewInvoices  View = "invoices"
)

// DueWindow is a date-derived list filter backed by the shared classifier.
type DueWindow string

const (
	DueAny     DueWindow = ""
	DueOverdue DueWindow = "overdue"
	DueWeek    DueWindow = "week"
	DueNext30  DueWindow = "next30"
	DuePast30  DueWindow = "past30"
)

// Valid reports whether the window tag is known.
func (w DueWindow) Valid() bool {
	switch w {
	case DueAny, DueOverdue, DueWeek, DueNext30, DuePast30:
		return true
	}
	return false
}

func (w DueWindow) matches(d *time.Time, now time.Time) bool {
	switch w {
	case DueAny:
		return true
	case DueOverdue:
		return dates.IsOverdue(d, now)
	case DueWeek:
		return dates.IsWithinWeek(d, now)
	case DueNext30:
		return dates.IsWithinNextDays(d, now, 30)
	case DuePast30:
		return dates.IsWithinPastDays(d, now, 30)
	}
	return false
}

// ListFilters narrows an owner's deal list. Zero values pass everything.
type ListFilters struct {
	View          View
	Status        Status
	InvoiceStatus InvoiceStatus
	Amount        dates.AmountRange
	Due           DueWindow
	Search        string
}

// Apply filters the list in one place so every screen classifies dates and
// amounts identically. The partition filter runs first: proposal filters can
// never leak invoice rows and vice versa.
func (f ListFilters) Apply(list []DealWithContact, now time.Time) []DealWithContact {
	out := make([]DealWithContact, 0, len(list))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, d := range list {
		switch f.View {
		case ViewProposals:
			if d.IsInvoice() {
				continue
			}
		case ViewInvoices:
			if !d.IsInvoice() {
				continue
			}
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.InvoiceStatus != "" {
			if d.InvoiceStatus == nil || *d.InvoiceStatus != f.InvoiceStatus {
				continue
			}
		}
		if f.Amount != "" && !f.Amount.Matches(d.Amount) {
			continue
		}
		if !f.Due.matches(d.DueDate, now) {
			continue
		}
		if search != "" {
			title := strings.ToLower(d.Title)
			contact := strings.ToLower(d.ContactName)
			if !strings.Contains(title, search) && !strings.Contains(contact, search) {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}
