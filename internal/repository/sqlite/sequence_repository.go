package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"digital-wallet/internal/repository"
)

const createCountersTable = `
CREATE TABLE IF NOT EXISTS counters (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

const accountNumberCounter = "customer_account_number"

// SequenceRepository issues account numbers from a durable single-row
// counter. The increment is one atomic UPDATE, so concurrent callers in any
// number of processes never observe the same value. A value consumed by a
// create that later fails is not returned to the pool: gaps over duplicates.
type SequenceRepository struct {
	db    *sql.DB
	floor int64
	step  int64
}

func NewSequenceRepository(db *sql.DB, floor, step int64) repository.AccountNumberAllocator {
	if step < 1 {
		step = 1
	}
	return &SequenceRepository{db: db, floor: floor, step: step}
}

// Init creates the counter table and seeds the account-number row one step
// below the floor so the first allocation lands on the floor exactly. An
// existing row is left untouched.
func (r *SequenceRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCountersTable); err != nil {
		return fmt.Errorf("create counters table: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO counters (name, value) VALUES (?, ?)
ON CONFLICT (name) DO NOTHING`,
		accountNumberCounter, r.floor-r.step,
	)
	if err != nil {
		return fmt.Errorf("seed account number counter: %w", err)
	}
	return nil
}

func (r *SequenceRepository) Next(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE counters SET value = value + ? WHERE name = ? RETURNING value`,
		r.step, accountNumberCounter,
	)

	var value int64
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: counter %q not initialized", repository.ErrAllocationFailed, accountNumberCounter)
		}
		return 0, fmt.Errorf("%w: %v", repository.ErrAllocationFailed, err)
	}
	return value, nil
}
