package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PassSequenceRepository allocates pass numbers from a per-scope counter.
//
// Allocation happens inside the caller's transaction: the upsert takes a row
// lock on the scope's counter, so concurrent issuances serialize on it and
// can never observe the same value. A rolled-back issuance leaves a gap,
// which is acceptable; a duplicate is not.
type PassSequenceRepository struct{}

// NewPassSequenceRepository constructs the repository.
func NewPassSequenceRepository() *PassSequenceRepository {
	return &PassSequenceRepository{}
}

// Next increments and returns the counter for the scope using the provided
// querier, normally the open issue transaction.
func (r *PassSequenceRepository) Next(ctx context.Context, q sqlx.QueryerContext, scope string) (int64, error) {
	const query = `INSERT INTO pass_sequences (scope, value) VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET value = pass_sequences.value + 1
		RETURNING value`
	var value int64
	if err := sqlx.GetContext(ctx, q, &value, query, scope); err != nil {
		return 0, fmt.Errorf("next pass number for scope %s: %w", scope, err)
	}
	return value, nil
}
