// Package contacts manages the client book deals link against, plus the
// per-contact comment trail.
package contacts

import "time"

// Contact is one client record, scoped to its owning user.
type Contact struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Company   *string   `json:"company,omitempty" db:"company"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Comment is a free-form note attached to a contact. Comments survive deal
// deletion; they belong to the relationship, not to any one deal.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	ContactID string    `json:"contact_id" db:"contact_id"`
	UserID    string    `json:"-" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
