package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{raw: "", want: RoleCustomer},
		{raw: "customer", want: RoleCustomer},
		{raw: "admin", want: RoleAdmin},
		{raw: "superuser", wantErr: true},
		{raw: "Admin", wantErr: true},
	}

	for _, tc := range cases {
		role, err := ParseRole(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ParseRole(%q): expected validation error, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", tc.raw, err)
		}
		if role != tc.want {
			t.Fatalf("ParseRole(%q) = %q, want %q", tc.raw, role, tc.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", got)
	}
}

func TestValidatePasswordBounds(t *testing.T) {
	if err := ValidatePassword("12345"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for 5-char password, got %v", err)
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Fatalf("expected 6-char password to pass, got %v", err)
	}
	if err := ValidatePassword(strings.Repeat("x", 128)); err != nil {
		t.Fatalf("expected 128-char password to pass, got %v", err)
	}
	if err := ValidatePassword(strings.Repeat("x", 129)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for 129-char password, got %v", err)
	}
}

func TestValidatePasswordCountsCharactersNotBytes(t *testing.T) {
	// five multibyte runes stay below the minimum even at ten bytes
	if err := ValidatePassword(strings.Repeat("ß", 5)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for 5-rune password, got %v", err)
	}
	if err := ValidatePassword(strings.Repeat("ß", 6)); err != nil {
		t.Fatalf("expected 6-rune password to pass, got %v", err)
	}
	// 128 multibyte runes exceed 128 bytes but not 128 characters
	if err := ValidatePassword(strings.Repeat("ß", 128)); err != nil {
		t.Fatalf("expected 128-rune password to pass, got %v", err)
	}
	if err := ValidatePassword(strings.Repeat("ß", 129)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for 129-rune password, got %v", err)
	}
}

func TestCustomerValidate(t *testing.T) {
	customer := Customer{
		Email:   "alice@example.com",
		Role:    RoleCustomer,
		Balance: 0,
	}
	if err := customer.Validate(); err != nil {
		t.Fatalf("expected valid customer, got %v", err)
	}

	negative := customer
	negative.Balance = -1
	if err := negative.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for negative balance, got %v", err)
	}

	longName := customer
	longName.Name = strings.Repeat("n", 129)
	if err := longName.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for long name, got %v", err)
	}

	noEmail := customer
	noEmail.Email = "   "
	if err := noEmail.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank email, got %v", err)
	}
}
