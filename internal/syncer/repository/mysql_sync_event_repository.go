package repository

import (
	"context"
	"database/sql"

	"github.com/shieldops/secrets/internal/database"
	apperrors "github.com/shieldops/secrets/internal/errors"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// MySQLSyncEventRepository handles sync event persistence for MySQL.
type MySQLSyncEventRepository struct {
	db *sql.DB
}

// NewMySQLSyncEventRepository creates a new MySQLSyncEventRepository.
func NewMySQLSyncEventRepository(db *sql.DB) *MySQLSyncEventRepository {
	return &MySQLSyncEventRepository{db: db}
}

// Create inserts a new sync event.
func (r *MySQLSyncEventRepository) Create(ctx context.Context, event *syncerDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO sync_events (` + syncEventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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

// GetPendingEvents retrieves due pending events, oldest first, with SKIP LOCKED
// so concurrent processors never pick the same event.
func (r *MySQLSyncEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*syncerDomain.Event, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + syncEventColumns + `
			  FROM sync_events
			  WHERE status = ? AND scheduled_at <= NOW(6)
			  ORDER BY scheduled_at ASC
			  LIMIT ?
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
func (r *MySQLSyncEventRepository) Update(ctx context.Context, event *syncerDomain.Event) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE sync_events
			  SET status = ?, attempts = ?, last_error = ?, scheduled_at = ?, processed_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query,
		event.Status, event.Attempts, event.LastError, event.ScheduledAt, event.ProcessedAt, event.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update sync event")
	}
	return nil
}
