package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"digital-wallet/internal/domain"
	"digital-wallet/internal/repository"
)

// fakeCustomerRepository is an in-memory stand-in that enforces the same
// uniqueness rules as the sqlite implementation, atomically under its lock.
type fakeCustomerRepository struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
}

func newFakeCustomerRepository() *fakeCustomerRepository {
	return &fakeCustomerRepository{customers: make(map[string]*domain.Customer)}
}

func (r *fakeCustomerRepository) Init(ctx context.Context) error { return nil }

func (r *fakeCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.customers {
		if existing.Email == domain.NormalizeEmail(customer.Email) {
			return repository.ErrDuplicateEmail
		}
		if existing.AccountNumber == customer.AccountNumber {
			return repository.ErrDuplicateAccountNumber
		}
	}

	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	customer.Email = domain.NormalizeEmail(customer.Email)

	clone := *customer
	r.customers[customer.ID] = &clone
	return nil
}

func (r *fakeCustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	customer, ok := r.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *customer
	return &clone, nil
}

func (r *fakeCustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = domain.NormalizeEmail(email)
	for _, customer := range r.customers {
		if customer.Email == email {
			clone := *customer
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCustomerRepository) GetByAccountNumber(ctx context.Context, number int64) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, customer := range r.customers {
		if customer.AccountNumber == number {
			clone := *customer
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCustomerRepository) List(ctx context.Context, filter repository.ListFilter) ([]domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []domain.Customer
	for _, customer := range r.customers {
		if filter.Name != "" && customer.Name != filter.Name {
			continue
		}
		if filter.Email != "" && customer.Email != domain.NormalizeEmail(filter.Email) {
			continue
		}
		if filter.Role != "" && customer.Role != filter.Role {
			continue
		}
		matches = append(matches, *customer)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].AccountNumber < matches[j].AccountNumber
	})

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 30
	}
	start := (page - 1) * perPage
	if start >= len(matches) {
		return nil, nil
	}
	end := start + perPage
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], nil
}

func (r *fakeCustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.customers[customer.ID]; !ok {
		return repository.ErrNotFound
	}
	customer.UpdatedAt = time.Now().UTC()
	clone := *customer
	r.customers[customer.ID] = &clone
	return nil
}

func (r *fakeCustomerRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.customers)
}

// fakeAllocator hands out floor, floor+step, ... under a lock.
type fakeAllocator struct {
	mu    sync.Mutex
	next  int64
	step  int64
	fail  error
	calls int
}

func newFakeAllocator(floor, step int64) *fakeAllocator {
	return &fakeAllocator{next: floor, step: step}
}

func (a *fakeAllocator) Init(ctx context.Context) error { return nil }

func (a *fakeAllocator) Next(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	if a.fail != nil {
		return 0, a.fail
	}
	value := a.next
	a.next += a.step
	return value, nil
}
