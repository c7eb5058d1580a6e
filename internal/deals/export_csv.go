package deals

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

// writeDealsCSV streams the filtered deal list as delimited text: one header
// row plus one row per deal, flushing periodically for large exports.
func writeDealsCSV(w io.Writer, list []DealWithContact) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true

	header := []string{"id", "title", "client", "company", "amount", "status", "invoice_status", "due_date", "created_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	pending := 0
	for _, d := range list {
		company := ""
		if d.ContactCompany != nil {
			company = *d.ContactCompany
		}
		invoiceStatus := ""
		if d.InvoiceStatus != nil {
			invoiceStatus = string(*d.InvoiceStatus)
		}
		dueDate := ""
		if d.DueDate != nil {
			dueDate = d.DueDate.Format(dateLayout)
		}
		row := []string{
			d.ID,
			d.Title,
			d.ContactName,
			company,
			fmt.Sprintf("%.2f", d.Amount),
			string(d.Status),
			invoiceStatus,
			dueDate,
			d.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
		pending++
		if pending >= csvFlushEvery {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
			if err := buf.Flush(); err != nil {
				return err
			}
			pending = 0
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}
