package service

import (
	"context"
	"errors"

	"digital-wallet/internal/auth"
	"digital-wallet/internal/domain"
	"digital-wallet/internal/repository"
)

var (
	// ErrMissingEmail indicates a login attempt with no email at all.
	ErrMissingEmail = errors.New("an email is required to authenticate")
	// ErrAuthFailed covers every credential mismatch: unknown email, wrong
	// password, or no password. Callers learn nothing about which.
	ErrAuthFailed = errors.New("invalid credentials")
)

// AuthService answers whether an email and password form a valid session,
// and if so, with which customer and token.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*domain.Customer, string, error)
}

type authService struct {
	customers repository.CustomerRepository
	hasher    auth.Hasher
	tokens    *auth.TokenIssuer
}

func NewAuthService(customers repository.CustomerRepository, hasher auth.Hasher, tokens *auth.TokenIssuer) AuthService {
	return &authService{
		customers: customers,
		hasher:    hasher,
		tokens:    tokens,
	}
}

func (s *authService) Authenticate(ctx context.Context, email, password string) (*domain.Customer, string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, "", ErrMissingEmail
	}
	if password == "" {
		return nil, "", ErrAuthFailed
	}

	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrAuthFailed
		}
		return nil, "", err
	}

	if !s.hasher.Verify(password, customer.PasswordHash) {
		return nil, "", ErrAuthFailed
	}

	token, err := s.tokens.Issue(customer.ID)
	if err != nil {
		return nil, "", err
	}
	return sanitizeCustomer(customer), token, nil
}
