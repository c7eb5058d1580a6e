package deals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the deal store contract. The engine treats it as an external
// collaborator: every call may hit the network, and conditional updates are
// the only concurrency control the engine relies on.
type Repository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]DealWithContact, error)
	Get(ctx context.Context, id string) (*Deal, error)
	Create(ctx context.Context, deal Deal) (*Deal, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	// UpdateIfStatus applies updates only when the stored status still equals
	// expected; returns ErrConflict when another writer got there first.
	UpdateIfStatus(ctx context.Context, id string, expected Status, updates map[string]interface{}) error
	// UpdateIfInvoiceStatus is the invoice-phase variant, conditioned on the
	// stored invoice sub-state.
	UpdateIfInvoiceStatus(ctx context.Context, id string, expected InvoiceStatus, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed deal store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const dealColumns = `d.id, d.user_id, d.contact_id, d.title, d.notes, d.amount,
	d.due_date, d.status, d.invoice_status, d.created_at`

func (r *repository) ListByOwner(ctx context.Context, ownerID string) ([]DealWithContact, error) {
	query := fmt.Sprintf(`
		SELECT %s, c.name AS contact_name, c.company AS contact_company
		FROM deals d
		JOIN contacts c ON d.contact_id = c.id
		WHERE d.user_id = $1
		ORDER BY d.created_at DESC, d.id DESC
	`, dealColumns)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []DealWithContact
	for rows.Next() {
		var d DealWithContact
		var company pgtype.Text
		if err := scanDeal(rows, &d.Deal, &d.ContactName, &company); err != nil {
			return nil, err
		}
		if company.Valid {
			val := company.String
			d.ContactCompany = &val
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (*Deal, error) {
	query := fmt.Sprintf(`SELECT %s FROM deals d WHERE d.id = $1`, dealColumns)
	row := r.pool.QueryRow(ctx, query, id)

	var d Deal
	if err := scanDeal(row, &d, nil, nil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *repository) Create(ctx context.Context, deal Deal) (*Deal, error) {
	if deal.ID == "" {
		deal.ID = uuid.NewString()
	}

	var invoiceStatus pgtype.Text
	if deal.InvoiceStatus != nil {
		invoiceStatus = pgtype.Text{String: string(*deal.InvoiceStatus), Valid: true}
	}
	var dueDate pgtype.Date
	if deal.DueDate != nil {
		dueDate = pgtype.Date{Time: *deal.DueDate, Valid: true}
	}
	var notes pgtype.Text
	if deal.Notes != nil {
		notes = pgtype.Text{String: *deal.Notes, Valid: true}
	}

	var createdAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		INSERT INTO deals (id, user_id, contact_id, title, notes, amount, due_date, status, invoice_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, deal.ID, deal.UserID, deal.ContactID, deal.Title, notes, deal.Amount,
		dueDate, string(deal.Status), invoiceStatus).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	if createdAt.Valid {
		deal.CreatedAt = createdAt.Time
	}
	return &deal, nil
}

// updatableColumns guards against SET injection through the updates map.
var updatableColumns = map[string]bool{
	"contact_id":     true,
	"title":          true,
	"notes":          true,
	"amount":         true,
	"due_date":       true,
	"status":         true,
	"invoice_status": true,
}

func buildUpdate(id string, updates map[string]interface{}) (string, []interface{}, error) {
	query := "UPDATE deals SET updated_at = NOW()"
	var args []interface{}
	argPos := 1
	for _, col := range []string{"contact_id", "title", "notes", "amount", "due_date", "status", "invoice_status"} {
		v, ok := updates[col]
		if !ok {
			continue
		}
		if !updatableColumns[col] {
			return "", nil, fmt.Errorf("update deal: column %q not updatable", col)
		}
		query += fmt.Sprintf(", %s = $%d", col, argPos)
		args = append(args, v)
		argPos++
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)
	return query, args, nil
}

func (r *repository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	query, args, err := buildUpdate(id, updates)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateIfStatus(ctx context.Context, id string, expected Status, updates map[string]interface{}) error {
	query, args, err := buildUpdate(id, updates)
	if err != nil {
		return err
	}
	query += fmt.Sprintf(" AND status = $%d", len(args)+1)
	args = append(args, string(expected))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *repository) UpdateIfInvoiceStatus(ctx context.Context, id string, expected InvoiceStatus, updates map[string]interface{}) error {
	query, args, err := buildUpdate(id, updates)
	if err != nil {
		return err
	}
	query += fmt.Sprintf(" AND status = $%d AND invoice_status = $%d", len(args)+1, len(args)+2)
	args = append(args, string(StatusInvoice), string(expected))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// missingOrConflict disambiguates a zero-row conditional update: the deal is
// either gone or was changed by a concurrent writer.
func (r *repository) missingOrConflict(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanDeal maps one deal row. contactName/company are nil for queries that
// skip the contact join.
func scanDeal(row pgx.Row, d *Deal, contactName *string, company *pgtype.Text) error {
	var notes, invoiceStatus pgtype.Text
	var dueDate pgtype.Date
	var amount pgtype.Numeric
	var createdAt pgtype.Timestamptz

	dest := []interface{}{
		&d.ID, &d.UserID, &d.ContactID, &d.Title, &notes, &amount,
		&dueDate, &d.Status, &invoiceStatus, &createdAt,
	}
	if contactName != nil {
		dest = append(dest, contactName, company)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}

	if notes.Valid {
		val := notes.String
		d.Notes = &val
	}
	if amount.Valid {
		f, _ := amount.Float64Value()
		d.Amount = f.Float64
	}
	if dueDate.Valid {
		val := dueDate.Time
		d.DueDate = &val
	}
	if invoiceStatus.Valid {
		val := InvoiceStatus(invoiceStatus.String)
		d.InvoiceStatus = &val
	}
	if createdAt.Valid {
		d.CreatedAt = createdAt.Time
	}
	return nil
}
