package deals

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDealsCSV(t *testing.T) {
	pending := InvoicePending
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	company := "Acme Holdings"
	list := []DealWithContact{
		{
			Deal: Deal{
				ID:        "deal-1",
				Title:     "Website redesign",
				Amount:    1234.5,
				Status:    StatusOpen,
				CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			},
			ContactName: "Acme Corp",
		},
		{
			Deal: Deal{
				ID:            "deal-2",
				Title:         "Invoice for: Website redesign",
				Amount:        1234.5,
				DueDate:       &due,
				Status:        StatusInvoice,
				InvoiceStatus: &pending,
				CreatedAt:     time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
			},
			ContactName:    "Acme Corp",
			ContactCompany: &company,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeDealsCSV(&buf, list))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"id", "title", "client", "company", "amount", "status", "invoice_status", "due_date", "created_at"}, records[0])
	assert.Equal(t, "1234.50", records[1][4])
	assert.Empty(t, records[1][6])
	assert.Equal(t, "pending", records[2][6])
	assert.Equal(t, "2024-04-01", records[2][7])
	assert.Equal(t, "Acme Holdings", records[2][3])
}

func TestWriteDealsCSVEmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDealsCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
