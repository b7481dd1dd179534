// Package repository provides data persistence for sync events.
package repository

import (
	"context"
	"database/sql"

	"github.com/shieldops/secrets/internal/database"
	apperrors "github.com/shieldops/secrets/internal/errors"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

const syncEventColumns = `id, secret_id, secret_name, secret_version, operation, status,
	attempts, last_error, created_at, scheduled_at, processed_at`

// PostgreSQLSyncEventRepository handles sync event persistence for PostgreSQL.
type PostgreSQLSyncEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLSyncEventRepository creates a new PostgreSQLSyncEventRepository.
func NewPostgreSQLSyncEventRepository(db *sql.DB) *PostgreSQLSyncEventRepository {
	return &PostgreSQLSyncEventRepository{db: db}
}

// Create inserts a new sync event.
func (r *PostgreSQLSyncEventRepository) Create(ctx context.Context, event *syncerDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO sync_events (` + syncEventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(ctx, query,
		event.ID, event.SecretID, event.SecretName, event.SecretVersion, event.Operation,
		event.Status, event.Attempts, event.LastError, event.CreatedAt, event.ScheduledAt,
		event.ProcessedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create sync event")
	}
	return nil
}

// GetPendingEvents retrieves due pending events, oldest first. Rows are locked
// with SKIP LOCKED so concurrent processors never pick the same event.
func (r *PostgreSQLSyncEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*syncerDomain.Event, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + syncEventColumns + `
			  FROM sync_events
			  WHERE status = $1 AND scheduled_at <= NOW()
			  ORDER BY scheduled_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, syncerDomain.EventStatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending sync events")
	}
	defer rows.Close() //nolint:errcheck

	var events []*syncerDomain.Event
	for rows.Next() {
		var event syncerDomain.Event
		err := rows.Scan(
			&event.ID, &event.SecretID, &event.SecretName, &event.SecretVersion, &event.Operation,
			&event.Status, &event.Attempts, &event.LastError, &event.CreatedAt, &event.ScheduledAt,
			&event.ProcessedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan sync event")
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to read sync events")
	}
	return events, nil
}

// Update updates a sync event's delivery state.
func (r *PostgreSQLSyncEventRepository) Update(ctx context.Context, event *syncerDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE sync_events
			  SET status = $1, attempts = $2, last_error = $3, scheduled_at = $4, processed_at = $5
			  WHERE id = $6`

	_, err := querier.ExecContext(ctx, query,
		event.Status, event.Attempts, event.LastError, event.ScheduledAt, event.ProcessedAt, event.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update sync event")
	}
	return nil
}
