package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrReferenceConsumed reports that a payment reference was already
// spent on an earlier confirmation.
var ErrReferenceConsumed = errors.New("payment reference already consumed")

const uniqueViolation = "23505"

// Repository is the replay guard and reconciliation journal for payment
// references.
type Repository interface {
	Consume(ctx context.Context, rec *ReferenceRecord) error
	SetStatus(ctx context.Context, reference, status string) error
	ListActivationFailures(ctx context.Context, limit, offset int) ([]*ReferenceRecord, int, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// Consume records the reference as spent. The primary key on reference
// makes the insert the atomic replay check.
func (r *postgresRepository) Consume(ctx context.Context, rec *ReferenceRecord) error {
	query := `
		INSERT INTO payment_references (reference, order_reference, owner_uid, amount, status)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		rec.Reference, rec.OrderReference, rec.OwnerUID, rec.Amount, StatusConfirmed)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrReferenceConsumed
		}
		return fmt.Errorf("consuming payment reference: %w", err)
	}
	return nil
}

func (r *postgresRepository) SetStatus(ctx context.Context, reference, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_references SET status = $2, updated_at = NOW() WHERE reference = $1`,
		reference, status)
	if err != nil {
		return fmt.Errorf("updating payment reference status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment reference %s not found", reference)
	}
	return nil
}

func (r *postgresRepository) ListActivationFailures(ctx context.Context, limit, offset int) ([]*ReferenceRecord, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM payment_references WHERE status = $1`
	if err := r.pool.QueryRow(ctx, countQuery, StatusActivationFailed).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting activation failures: %w", err)
	}

	query := `
		SELECT reference, order_reference, owner_uid, amount, status, created_at, updated_at
		FROM payment_references
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, StatusActivationFailed, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing activation failures: %w", err)
	}
	defer rows.Close()

	var records []*ReferenceRecord
	for rows.Next() {
		var rec ReferenceRecord
		if err := rows.Scan(&rec.Reference, &rec.OrderReference, &rec.OwnerUID,
			&rec.Amount, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning payment reference: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating payment references: %w", err)
	}
	return records, total, nil
}
