package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the contact store contract.
type Repository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Contact, error)
	Get(ctx context.Context, ownerID, id string) (*Contact, error)
	Exists(ctx context.Context, ownerID, id string) (bool, error)
	Create(ctx context.Context, contact Contact) (*Contact, error)
	Update(ctx context.Context, ownerID, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, ownerID, id string) error

	ListComments(ctx context.Context, ownerID, contactID string) ([]Comment, error)
	CreateComment(ctx context.Context, comment Comment) (*Comment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed contact store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const contactColumns = `id, user_id, name, company, email, phone, created_at`

func (r *repository) ListByOwner(ctx context.Context, ownerID string) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		ORDER BY name ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Contact
	for rows.Next() {
		var c Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *repository) Get(ctx context.Context, ownerID, id string) (*Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1 AND id = $2
	`, ownerID, id)

	var c Contact
	if err := scanContact(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) Exists(ctx context.Context, ownerID, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM contacts WHERE user_id = $1 AND id = $2)
	`, ownerID, id).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, contact Contact) (*Contact, error) {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}

	var createdAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (id, user_id, name, company, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, contact.ID, contact.UserID, contact.Name,
		textOrNull(contact.Company), textOrNull(contact.Email), textOrNull(contact.Phone)).Scan(&createdAt)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		contact.CreatedAt = createdAt.Time
	}
	return &contact, nil
}

var updatableColumns = []string{"name", "company", "email", "phone"}

func (r *repository) Update(ctx context.Context, ownerID, id string, updates map[string]interface{}) error {
	query := "UPDATE contacts SET updated_at = NOW()"
	var args []interface{}
	for _, col := range updatableColumns {
		v, ok := updates[col]
		if !ok {
			continue
		}
		args = append(args, v)
		query += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	args = append(args, ownerID)
	query += fmt.Sprintf(" WHERE user_id = $%d", len(args))
	args = append(args, id)
	query += fmt.Sprintf(" AND id = $%d", len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// foreignKeyViolation is the PostgreSQL class 23503 code.
const foreignKeyViolation = "23503"

func (r *repository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM contacts WHERE user_id = $1 AND id = $2
	`, ownerID, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListComments(ctx context.Context, ownerID, contactID string) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contact_id, user_id, body, created_at
		FROM contact_comments
		WHERE user_id = $1 AND contact_id = $2
		ORDER BY created_at DESC, id DESC
	`, ownerID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Comment
	for rows.Next() {
		var c Comment
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&c.ID, &c.ContactID, &c.UserID, &c.Body, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			c.CreatedAt = createdAt.Time
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *repository) CreateComment(ctx context.Context, comment Comment) (*Comment, error) {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}

	var createdAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contact_comments (id, contact_id, user_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, comment.ID, comment.ContactID, comment.UserID, comment.Body).Scan(&createdAt)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		comment.CreatedAt = createdAt.Time
	}
	return &comment, nil
}

func scanContact(row pgx.Row, c *Contact) error {
	var company, email, phone pgtype.Text
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &company, &email, &phone, &createdAt); err != nil {
		return err
	}
	c.Company = fromText(company)
	c.Email = fromText(email)
	c.Phone = fromText(phone)
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	return nil
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	val := t.String
	return &val
}

