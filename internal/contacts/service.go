package contacts

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CreateContactRequest is the create payload.
type CreateContactRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Company *string `json:"company" validate:"omitempty,max=200"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
}

// UpdateContactRequest is the partial update payload; nil fields are left
// untouched.
type UpdateContactRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Company *string `json:"company" validate:"omitempty,max=200"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
}

// CreateCommentRequest is the comment payload.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// Service owns contact CRUD and the comment trail.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs the contact service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// List returns the owner's contact book, name-ordered.
func (s *Service) List(ctx context.Context, ownerID string) ([]Contact, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Get fetches one owned contact.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Contact, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// Exists reports whether the owner has a contact with the given id.
func (s *Service) Exists(ctx context.Context, ownerID, id string) (bool, error) {
	return s.repo.Exists(ctx, ownerID, id)
}

// Create validates and stores a new contact.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateContactRequest) (*Contact, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.Create(ctx, Contact{
		UserID:  ownerID,
		Name:    req.Name,
		Company: req.Company,
		Email:   req.Email,
		Phone:   req.Phone,
	})
}

// Update applies a partial update and returns the refreshed record.
func (s *Service) Update(ctx context.Context, ownerID, id string, req UpdateContactRequest) (*Contact, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, ownerID, id, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, ownerID, id)
}

// Delete removes a contact. Contacts still referenced by deals are kept and
// the call fails with ErrInUse.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// ListComments returns the contact's comment trail, newest first.
func (s *Service) ListComments(ctx context.Context, ownerID, contactID string) ([]Comment, error) {
	if _, err := s.repo.Get(ctx, ownerID, contactID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, ownerID, contactID)
}

// AddComment validates and appends a comment to an owned contact.
func (s *Service) AddComment(ctx context.Context, ownerID, contactID string, req CreateCommentRequest) (*Comment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.repo.Get(ctx, ownerID, contactID); err != nil {
		return nil, err
	}
	return s.repo.CreateComment(ctx, Comment{
		ContactID: contactID,
		UserID:    ownerID,
		Body:      req.Body,
	})
}
