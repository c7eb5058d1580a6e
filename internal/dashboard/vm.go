package dashboard

// Metrics are the headline dashboard numbers.
type Metrics struct {
	OpenProposals   int     `json:"open_proposals"`
	OverdueInvoices int     `json:"overdue_invoices"`
	TotalRevenue    float64 `json:"total_revenue"`
	ConversionRate  float64 `json:"conversion_rate"`
}

// MonthBucket is one calendar month of the dashboard time series.
type MonthBucket struct {
	Label             string  `json:"label"`
	Revenue           float64 `json:"revenue"`
	OpenProposals     int     `json:"open_proposals"`
	AcceptedProposals int     `json:"accepted_proposals"`
	RefusedProposals  int     `json:"refused_proposals"`
}

// ClientRevenue ranks a contact by realized revenue.
type ClientRevenue struct {
	ContactID string  `json:"contact_id"`
	Name      string  `json:"name"`
	Revenue   float64 `json:"revenue"`
}

// UpcomingInvoice is an unpaid invoice approaching its payment deadline.
type UpcomingInvoice struct {
	DealID     string  `json:"deal_id"`
	Title      string  `json:"title"`
	ClientName string  `json:"client_name"`
	DueDate    string  `json:"due_date"`
	Amount     float64 `json:"amount"`
}

// Overview aggregates everything the dashboard page renders.
type Overview struct {
	Period      string            `json:"period"`
	Metrics     Metrics           `json:"metrics"`
	Series      []MonthBucket     `json:"series"`
	TopClients  []ClientRevenue   `json:"top_clients"`
	UpcomingDue []UpcomingInvoice `json:"upcoming_due"`
}
