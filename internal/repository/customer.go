package repository

import (
	"context"
	"errors"

	"digital-wallet/internal/domain"
)

var (
	// ErrNotFound indicates a lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail indicates a create that collided on the unique
	// email index.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateAccountNumber indicates a create that collided on the
	// unique account-number index, e.g. two processes bootstrapping the
	// master account at once.
	ErrDuplicateAccountNumber = errors.New("account number already assigned")
	// ErrAllocationFailed indicates the account-number counter could not
	// issue a value.
	ErrAllocationFailed = errors.New("account number allocation failed")
)

// ListFilter is a sparse set of equality predicates plus 1-indexed
// pagination. Zero-valued fields are not filtered on.
type ListFilter struct {
	Name    string
	Email   string
	Role    domain.Role
	Page    int
	PerPage int
}

// CustomerRepository defines persistence operations for Customer entities.
// Uniqueness of email and account number is enforced here, atomically with
// respect to concurrent creates.
type CustomerRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByAccountNumber(ctx context.Context, number int64) (*domain.Customer, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
}

// AccountNumberAllocator issues unique, strictly increasing account numbers
// backed by a durable counter shared across processes. A number handed out
// for a create that later rolls back is not reissued: gaps are acceptable,
// duplicates are not.
type AccountNumberAllocator interface {
	Init(ctx context.Context) error
	Next(ctx context.Context) (int64, error)
}
