// Package dashboard is the aggregation engine: pure functions deriving
// metrics, time series, and rankings from an owner's full deal list, plus a
// cached HTTP-facing service. All screens share these computations; none
// re-derive them locally.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dealdesk/dealdesk/internal/dates"
	"github.com/dealdesk/dealdesk/internal/deals"
)

// Period is the sliding window of the time series.
type Period string

const (
	Period3Months Period = "3months"
	Period6Months Period = "6months"
	Period1Year   Period = "1year"
)

// ParsePeriod validates a raw period tag, defaulting empty to three months.
func ParsePeriod(raw string) (Period, error) {
	switch Period(raw) {
	case "":
		return Period3Months, nil
	case Period3Months, Period6Months, Period1Year:
		return Period(raw), nil
	}
	return "", fmt.Errorf("unknown period %q", raw)
}

// Months returns the window length in months before the current one.
func (p Period) Months() int {
	switch p {
	case Period6Months:
		return 6
	case Period1Year:
		return 12
	default:
		return 3
	}
}

// isRealized reports whether an invoice contributes to revenue. Revenue is
// cash-realized: pending and overdue invoices count nothing.
func isRealized(inv deals.Invoice) bool {
	return inv.InvoiceStatus != nil && *inv.InvoiceStatus == deals.InvoicePaid
}

// ComputeMetrics derives the headline numbers from the full deal list.
func ComputeMetrics(list []deals.DealWithContact, now time.Time) Metrics {
	proposals, invoices := deals.Partition(list)

	var m Metrics
	accepted := 0
	for _, p := range proposals {
		if p.Status == deals.StatusOpen {
			m.OpenProposals++
		}
		if p.Status == deals.StatusAccepted {
			accepted++
		}
	}
	for _, inv := range invoices {
		if isRealized(inv) {
			m.TotalRevenue += inv.Amount
			continue
		}
		if dates.IsOverdue(inv.DueDate, now) {
			m.OverdueInvoices++
		}
	}
	if len(proposals) > 0 {
		m.ConversionRate = float64(accepted) / float64(len(proposals)) * 100
	}
	return m
}

// BuildTimeSeries buckets activity by calendar month from (now - period) to
// now inclusive: always months+1 buckets, zero-filled, ascending. Revenue is
// paid-invoice amounts by creation month; the proposal counters track only
// the proposal partition.
func BuildTimeSeries(list []deals.DealWithContact, period Period, now time.Time) []MonthBucket {
	proposals, invoices := deals.Partition(list)

	months := enumerateMonths(now.AddDate(0, -period.Months(), 0), now)
	buckets := make([]MonthBucket, len(months))
	index := make(map[string]int, len(months))
	for i, month := range months {
		buckets[i] = MonthBucket{Label: month.Format("Jan 2006")}
		index[monthKey(month)] = i
	}

	for _, inv := range invoices {
		if !isRealized(inv) {
			continue
		}
		if i, ok := index[monthKey(inv.CreatedAt)]; ok {
			buckets[i].Revenue += inv.Amount
		}
	}
	for _, p := range proposals {
		i, ok := index[monthKey(p.CreatedAt)]
		if !ok {
			continue
		}
		switch p.Status {
		case deals.StatusOpen:
			buckets[i].OpenProposals++
		case deals.StatusAccepted:
			buckets[i].AcceptedProposals++
		case deals.StatusRefused:
			buckets[i].RefusedProposals++
		}
	}
	return buckets
}

// TopClientsByRevenue ranks contacts by realized revenue, descending, ties
// kept in first-seen order, truncated to limit.
func TopClientsByRevenue(list []deals.DealWithContact, limit int) []ClientRevenue {
	_, invoices := deals.Partition(list)

	totals := make(map[string]int)
	var ranked []ClientRevenue
	for _, inv := range invoices {
		if !isRealized(inv) {
			continue
		}
		if i, ok := totals[inv.ContactID]; ok {
			ranked[i].Revenue += inv.Amount
			continue
		}
		totals[inv.ContactID] = len(ranked)
		ranked = append(ranked, ClientRevenue{
			ContactID: inv.ContactID,
			Name:      inv.ContactName,
			Revenue:   inv.Amount,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Revenue > ranked[j].Revenue
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// UpcomingDue lists unpaid, not-yet-overdue invoices by ascending due date,
// truncated to limit.
func UpcomingDue(list []deals.DealWithContact, limit int, now time.Time) []UpcomingInvoice {
	_, invoices := deals.Partition(list)

	var upcoming []UpcomingInvoice
	for _, inv := range invoices {
		if isRealized(inv) || inv.DueDate == nil || dates.IsOverdue(inv.DueDate, now) {
			continue
		}
		upcoming = append(upcoming, UpcomingInvoice{
			DealID:     inv.ID,
			Title:      inv.Title,
			ClientName: inv.ContactName,
			DueDate:    inv.DueDate.Format("2006-01-02"),
			Amount:     inv.Amount,
		})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate < upcoming[j].DueDate
	})
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}

func enumerateMonths(from, to time.Time) []time.Time {
	var months []time.Time
	current := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !current.After(end) {
		months = append(months, current)
		current = current.AddDate(0, 1, 0)
	}
	return months
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

const (
	topClientsLimit  = 5
	upcomingDueLimit = 5
)

// Lister is the slice of the deal store the dashboard needs.
type Lister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]deals.DealWithContact, error)
}

// Service assembles the overview, caching assembled views in Redis and
// collapsing concurrent rebuilds of the same owner/period.
type Service struct {
	lister Lister
	cache  *Cache
	group  singleflight.Group
	now    func() time.Time
}

// NewService wires the deal lister with the overview cache.
func NewService(lister Lister, cache *Cache) *Service {
	return &Service{
		lister: lister,
		cache:  cache,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Overview returns the cached dashboard view for the owner, rebuilding it on
// a cache miss. When Redis is unreachable the service degrades to uncached
// builds; the in-flight key stays qualified by owner and period so
// concurrent callers can never receive another owner's view.
func (s *Service) Overview(ctx context.Context, ownerID string, period Period) (Overview, error) {
	key, err := s.cache.BuildKey(ctx, "overview", ownerID, string(period))
	cacheable := err == nil
	if !cacheable {
		key = "dashboard:overview:" + ownerID + ":" + string(period)
	} else {
		var cached Overview
		hit, getErr := s.cache.Get(ctx, key, &cached)
		if getErr == nil && hit {
			return cached, nil
		}
	}

	return s.buildShared(ctx, key, ownerID, period, cacheable)
}

func (s *Service) buildShared(ctx context.Context, key, ownerID string, period Period, cacheable bool) (Overview, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.build(ctx, key, ownerID, period, cacheable)
	})
	select {
	case <-ctx.Done():
		return Overview{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Overview{}, res.Err
		}
		overview, _ := res.Val.(Overview)
		return overview, nil
	}
}

func (s *Service) build(ctx context.Context, key, ownerID string, period Period, cacheable bool) (Overview, error) {
	list, err := s.lister.ListByOwner(ctx, ownerID)
	if err != nil {
		return Overview{}, fmt.Errorf("list deals: %w", err)
	}
	now := s.now()
	overview := Overview{
		Period:      string(period),
		Metrics:     ComputeMetrics(list, now),
		Series:      BuildTimeSeries(list, period, now),
		TopClients:  TopClientsByRevenue(list, topClientsLimit),
		UpcomingDue: UpcomingDue(list, upcomingDueLimit, now),
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, overview)
	}
	return overview, nil
}
