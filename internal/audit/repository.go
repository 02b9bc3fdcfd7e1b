package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Insert(ctx context.Context, log *Log) error
	ListByOwner(ctx context.Context, ownerUID string, limit, offset int) ([]*Log, int, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Insert(ctx context.Context, log *Log) error {
	query := `
		INSERT INTO audit_logs (owner_uid, event_type, severity, resource_type, resource_id, details, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		log.OwnerUID, log.EventType, log.Severity,
		log.ResourceType, log.ResourceID, log.Details, log.OccurredAt)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, ownerUID string, limit, offset int) ([]*Log, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM audit_logs WHERE owner_uid = $1`
	if err := r.pool.QueryRow(ctx, countQuery, ownerUID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit logs: %w", err)
	}

	query := `
		SELECT id, owner_uid, event_type, severity, resource_type, resource_id, details, occurred_at, created_at
		FROM audit_logs
		WHERE owner_uid = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerUID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.OwnerUID, &l.EventType, &l.Severity,
			&l.ResourceType, &l.ResourceID, &l.Details, &l.OccurredAt, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning audit log: %w", err)
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit logs: %w", err)
	}
	return logs, total, nil
}
