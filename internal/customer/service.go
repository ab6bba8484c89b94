package customer

import (
	"context"
	"net/mail"
	"strings"
)

// Validate checks a contact without touching storage.
func Validate(contact Contact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return ErrNameRequired
	}
	email := NormalizeEmail(contact.Email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// Resolve finds or creates the customer behind a booking request. Pass a
// repository bound to the booking's transaction so a rejected booking
// leaves no customer behind.
func Resolve(ctx context.Context, repo Repository, contact Contact) (*Customer, error) {
	if err := Validate(contact); err != nil {
		return nil, err
	}

	c := &Customer{
		Name:  strings.TrimSpace(contact.Name),
		Email: NormalizeEmail(contact.Email),
		Phone: strings.TrimSpace(contact.Phone),
	}
	if err := repo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// NormalizeEmail trims spaces and lowercases the email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
