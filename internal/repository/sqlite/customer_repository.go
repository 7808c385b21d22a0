package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"digital-wallet/internal/domain"
	"digital-wallet/internal/repository"
)

const createCustomersTable = `
CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	account_number INTEGER NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'customer',
	balance REAL NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_customers_name ON customers (name);
`

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) repository.CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCustomersTable); err != nil {
		return fmt.Errorf("create customers table: %w", err)
	}
	return nil
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	customer.Email = domain.NormalizeEmail(customer.Email)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO customers (id, account_number, email, password_hash, name, role, balance, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.AccountNumber,
		customer.Email,
		customer.PasswordHash,
		customer.Name,
		string(customer.Role),
		customer.Balance,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		if constraintErr := classifyConstraint(err); constraintErr != nil {
			return constraintErr
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, selectCustomer+`WHERE id = ?`, id)
	return scanCustomer(row)
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, selectCustomer+`WHERE email = ?`, domain.NormalizeEmail(email))
	return scanCustomer(row)
}

func (r *CustomerRepository) GetByAccountNumber(ctx context.Context, number int64) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, selectCustomer+`WHERE account_number = ?`, number)
	return scanCustomer(row)
}

// List returns customers matching the sparse equality filter, ordered by
// account number ascending so identical data always pages identically.
func (r *CustomerRepository) List(ctx context.Context, filter repository.ListFilter) ([]domain.Customer, error) {
	query := selectCustomer
	var clauses []string
	var args []any

	if filter.Name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.Email != "" {
		clauses = append(clauses, "email = ?")
		args = append(args, domain.NormalizeEmail(filter.Email))
	}
	if filter.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, string(filter.Role))
	}
	if len(clauses) > 0 {
		query += "WHERE " + strings.Join(clauses, " AND ") + "\n"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 30
	}
	query += "ORDER BY account_number ASC LIMIT ? OFFSET ?"
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

// Update persists mutable profile fields. Identity and account number never
// change; balance is written as-is and the schema rejects negative values.
func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	if err := customer.Validate(); err != nil {
		return err
	}
	customer.UpdatedAt = time.Now().UTC()
	customer.Email = domain.NormalizeEmail(customer.Email)

	res, err := r.db.ExecContext(ctx, `
UPDATE customers
SET email = ?, password_hash = ?, name = ?, role = ?, balance = ?, updated_at = ?
WHERE id = ?`,
		customer.Email,
		customer.PasswordHash,
		customer.Name,
		string(customer.Role),
		customer.Balance,
		customer.UpdatedAt,
		customer.ID,
	)
	if err != nil {
		if constraintErr := classifyConstraint(err); constraintErr != nil {
			return constraintErr
		}
		return fmt.Errorf("update customer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const selectCustomer = `
SELECT id, account_number, email, password_hash, name, role, balance, created_at, updated_at
FROM customers
`

func classifyConstraint(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "constraint") {
		return nil
	}
	switch {
	case strings.Contains(msg, "customers.email"):
		return repository.ErrDuplicateEmail
	case strings.Contains(msg, "customers.account_number"):
		return repository.ErrDuplicateAccountNumber
	default:
		return fmt.Errorf("customer constraint violated: %w", err)
	}
}

func scanCustomer(row interface {
	Scan(dest ...any) error
}) (*domain.Customer, error) {
	var customer domain.Customer
	var role string
	if err := row.Scan(
		&customer.ID,
		&customer.AccountNumber,
		&customer.Email,
		&customer.PasswordHash,
		&customer.Name,
		&role,
		&customer.Balance,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	customer.Role = domain.Role(role)
	return &customer, nil
}
