package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"digital-wallet/internal/auth"
	"digital-wallet/internal/domain"
	"digital-wallet/internal/repository"
)

// CreateCustomer carries the fields a caller may supply when opening an
// account. Role defaults to customer when empty.
type CreateCustomer struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// UpdateCustomer carries optional profile changes. Only a non-nil Password
// triggers re-hashing; re-saving a record otherwise leaves the stored digest
// untouched.
type UpdateCustomer struct {
	Name     *string
	Password *string
}

// MasterAccount is the well-known privileged identity created on first
// bootstrap.
type MasterAccount struct {
	AccountNumber int64
	Email         string
	Password      string
}

// CustomerService describes the identity lifecycle operations.
type CustomerService interface {
	Create(ctx context.Context, draft CreateCustomer) (*domain.Customer, error)
	Get(ctx context.Context, id string) (*domain.Customer, error)
	List(ctx context.Context, filter repository.ListFilter) ([]domain.Customer, error)
	Update(ctx context.Context, id string, changes UpdateCustomer) (*domain.Customer, error)
	EnsureMasterAccount(ctx context.Context) (*domain.Customer, error)
}

type customerService struct {
	customers repository.CustomerRepository
	numbers   repository.AccountNumberAllocator
	hasher    auth.Hasher
	master    MasterAccount
}

func NewCustomerService(
	customers repository.CustomerRepository,
	numbers repository.AccountNumberAllocator,
	hasher auth.Hasher,
	master MasterAccount,
) CustomerService {
	return &customerService{
		customers: customers,
		numbers:   numbers,
		hasher:    hasher,
		master:    master,
	}
}

func (s *customerService) Create(ctx context.Context, draft CreateCustomer) (*domain.Customer, error) {
	email := domain.NormalizeEmail(draft.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(draft.Name)
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(draft.Role)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(draft.Password)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		ID:            uuid.NewString(),
		AccountNumber: number,
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		Role:          role,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return sanitizeCustomer(customer), nil
}

func (s *customerService) Get(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeCustomer(customer), nil
}

func (s *customerService) List(ctx context.Context, filter repository.ListFilter) ([]domain.Customer, error) {
	customers, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		customers[i].PasswordHash = ""
	}
	return customers, nil
}

func (s *customerService) Update(ctx context.Context, id string, changes UpdateCustomer) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if err := domain.ValidateName(name); err != nil {
			return nil, err
		}
		customer.Name = name
	}
	if changes.Password != nil {
		hash, err := s.hasher.Hash(*changes.Password)
		if err != nil {
			return nil, err
		}
		customer.PasswordHash = hash
	}

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, err
	}
	return sanitizeCustomer(customer), nil
}

// EnsureMasterAccount returns the privileged identity at the configured
// account number, creating it on first call. An existing record is returned
// unchanged; in particular its digest is never recomputed. Concurrent
// bootstrappers race on the store's unique indexes and the losers fall back
// to reading the winner's record.
func (s *customerService) EnsureMasterAccount(ctx context.Context) (*domain.Customer, error) {
	existing, err := s.customers.GetByAccountNumber(ctx, s.master.AccountNumber)
	if err == nil {
		return sanitizeCustomer(existing), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(s.master.Password)
	if err != nil {
		return nil, fmt.Errorf("hash master password: %w", err)
	}

	customer := &domain.Customer{
		ID:            uuid.NewString(),
		AccountNumber: s.master.AccountNumber,
		Email:         domain.NormalizeEmail(s.master.Email),
		PasswordHash:  hash,
		Name:          "Master Account",
		Role:          domain.RoleAdmin,
	}
	err = s.customers.Create(ctx, customer)
	if err == nil {
		return sanitizeCustomer(customer), nil
	}
	if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateAccountNumber) {
		existing, lookupErr := s.customers.GetByAccountNumber(ctx, s.master.AccountNumber)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return sanitizeCustomer(existing), nil
	}
	return nil, err
}

func sanitizeCustomer(customer *domain.Customer) *domain.Customer {
	if customer == nil {
		return nil
	}
	clone := *customer
	clone.PasswordHash = ""
	return &clone
}
