package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrValidation marks any malformed or out-of-range field. Callers match it
// with errors.Is; the wrapped message names the offending field.
var ErrValidation = errors.New("validation failed")

const (
	// PasswordMinLength and PasswordMaxLength bound the plaintext secret
	// before hashing.
	PasswordMinLength = 6
	PasswordMaxLength = 128

	// NameMaxLength bounds the optional display name.
	NameMaxLength = 128
)

// Role restricts a customer to one of the known access levels.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole maps a raw string onto a known role. An empty string defaults to
// RoleCustomer; anything else outside the enum is a validation error.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(raw)) {
	case "":
		return RoleCustomer, nil
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
}

// Customer is the wallet's identity record: profile, role, balance and the
// derived credential digest.
type Customer struct {
	ID            string
	AccountNumber int64
	Email         string
	PasswordHash  string
	Name          string
	Role          Role
	Balance       float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeEmail trims and lowercases an address so lookups and uniqueness
// checks always see the canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the presence of a login address.
func ValidateEmail(email string) error {
	if NormalizeEmail(email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	return nil
}

// ValidatePassword bounds the plaintext secret length, counted in
// characters rather than bytes so multibyte secrets are measured the way
// users typed them. The constraint applies before hashing; digests are
// exempt.
func ValidatePassword(plaintext string) error {
	if n := utf8.RuneCountInString(plaintext); n < PasswordMinLength || n > PasswordMaxLength {
		return fmt.Errorf("%w: password must be between %d and %d characters",
			ErrValidation, PasswordMinLength, PasswordMaxLength)
	}
	return nil
}

// ValidateName bounds the optional display name, counted in characters like
// the password bounds.
func ValidateName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > NameMaxLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrValidation, NameMaxLength)
	}
	return nil
}

// Validate checks the record-level invariants that must hold after every
// mutation.
func (c *Customer) Validate() error {
	if err := ValidateEmail(c.Email); err != nil {
		return err
	}
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if _, err := ParseRole(string(c.Role)); err != nil {
		return err
	}
	if c.Balance < 0 {
		return fmt.Errorf("%w: balance must not be negative", ErrValidation)
	}
	return nil
}
