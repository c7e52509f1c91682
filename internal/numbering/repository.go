package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/billdesk/internal/platform/db"
)

// Repository keeps invoice counters in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const upsertSequence = `
INSERT INTO invoice_sequences (tenant, prefix, day, value, updated_at)
VALUES ($1, $2, $3, 1, now())
ON CONFLICT (tenant, prefix, day)
DO UPDATE SET value = invoice_sequences.value + 1, updated_at = now()
RETURNING value`

const insertIssued = `
INSERT INTO issued_invoice_numbers (tenant, invoice_no, issued_at)
VALUES ($1, $2, now())`

// Next increments the counter and records the issued number in one
// transaction so concurrent callers never observe the same value.
func (r *Repository) Next(ctx context.Context, tenant, prefix string, day time.Time) (int64, error) {
	var value int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertSequence, tenant, prefix, day).Scan(&value); err != nil {
			return fmt.Errorf("upsert sequence: %w", err)
		}
		if _, err := tx.Exec(ctx, insertIssued, tenant, Format(prefix, day, value)); err != nil {
			return fmt.Errorf("record issued number: %w", err)
		}
		return nil
	})
	return value, err
}
