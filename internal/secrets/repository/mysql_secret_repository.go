package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/shieldops/secrets/internal/database"
	apperrors "github.com/shieldops/secrets/internal/errors"
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
)

// MySQLSecretRepository implements Secret persistence for MySQL databases.
type MySQLSecretRepository struct {
	db *sql.DB
}

// NewMySQLSecretRepository creates a new MySQL Secret repository instance.
func NewMySQLSecretRepository(db *sql.DB) *MySQLSecretRepository {
	return &MySQLSecretRepository{db: db}
}

// Create inserts a new secret. A name already held by another secret maps to
// ErrNameTaken through the unique index.
func (m *MySQLSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	querier := database.GetTx(ctx, m.db)

	tags, err := marshalTags(secret.Tags)
	if err != nil {
		return err
	}

	query := `INSERT INTO secrets (` + secretColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		secret.ID,
		secret.Name,
		secret.Type,
		secret.Status,
		secret.Envelope.KeyID,
		secret.Envelope.Algorithm,
		secret.Envelope.WrappedKey,
		secret.Envelope.KeyNonce,
		secret.Envelope.Ciphertext,
		secret.Envelope.Nonce,
		secret.Version,
		tags,
		secret.Description,
		secret.Owner,
		secret.AccessCount,
		secret.CreatedAt,
		secret.UpdatedAt,
		secret.RotatedAt,
		secret.ExpiresAt,
		secret.LastAccessedAt,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return secretsDomain.ErrNameTaken
		}
		return apperrors.Wrap(err, "failed to create secret")
	}
	return nil
}

// GetByID retrieves a secret by its immutable identifier.
func (m *MySQLSecretRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE id = ? LIMIT 1`
	return scanSecret(querier.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a secret through the unique name index.
func (m *MySQLSecretRepository) GetByName(
	ctx context.Context,
	name string,
) (*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE name = ? LIMIT 1`
	return scanSecret(querier.QueryRowContext(ctx, query, name))
}

// Update writes the new record only when the stored version still equals
// expectedVersion.
func (m *MySQLSecretRepository) Update(
	ctx context.Context,
	secret *secretsDomain.Secret,
	expectedVersion uint,
) error {
	querier := database.GetTx(ctx, m.db)

	tags, err := marshalTags(secret.Tags)
	if err != nil {
		return err
	}

	query := `UPDATE secrets
			  SET name = ?, type = ?, status = ?, key_id = ?, algorithm = ?,
				  wrapped_key = ?, key_nonce = ?, ciphertext = ?, nonce = ?,
				  version = ?, tags = ?, description = ?, owner = ?,
				  updated_at = ?, rotated_at = ?, expires_at = ?
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		secret.Name,
		secret.Type,
		secret.Status,
		secret.Envelope.KeyID,
		secret.Envelope.Algorithm,
		secret.Envelope.WrappedKey,
		secret.Envelope.KeyNonce,
		secret.Envelope.Ciphertext,
		secret.Envelope.Nonce,
		secret.Version,
		tags,
		secret.Description,
		secret.Owner,
		secret.UpdatedAt,
		secret.RotatedAt,
		secret.ExpiresAt,
		secret.ID,
		expectedVersion,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return secretsDomain.ErrNameTaken
		}
		return apperrors.Wrap(err, "failed to update secret")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		if _, err := m.GetByID(ctx, secret.ID); err != nil {
			return err
		}
		return secretsDomain.ErrVersionConflict
	}
	return nil
}

// Delete removes a secret permanently.
func (m *MySQLSecretRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM secrets WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete secret")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read delete result")
	}
	if affected == 0 {
		return secretsDomain.ErrSecretNotFound
	}
	return nil
}

// RecordAccess increments the access counter and stamps the last read time
// without touching the version.
func (m *MySQLSecretRepository) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE secrets SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`
	result, err := querier.ExecContext(ctx, query, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to record secret access")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read access result")
	}
	if affected == 0 {
		return secretsDomain.ErrSecretNotFound
	}
	return nil
}

// List returns secrets matching the filter, newest first, paginated.
func (m *MySQLSecretRepository) List(
	ctx context.Context,
	filter secretsDomain.Filter,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := m.buildFilter(filter)
	query := fmt.Sprintf(
		`SELECT %s FROM secrets %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		secretColumns, where,
	)
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}
	return scanSecrets(rows)
}

// Count returns the number of secrets matching the filter.
func (m *MySQLSecretRepository) Count(
	ctx context.Context,
	filter secretsDomain.Filter,
) (uint64, error) {
	querier := database.GetTx(ctx, m.db)

	where, args := m.buildFilter(filter)
	query := `SELECT COUNT(*) FROM secrets ` + where

	var count uint64
	if err := querier.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count secrets")
	}
	return count, nil
}

// Search matches the query as a case-insensitive substring of the selected
// fields, newest first, paginated.
func (m *MySQLSecretRepository) Search(
	ctx context.Context,
	query string,
	fields secretsDomain.SearchFields,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	pattern := "%" + strings.ToLower(escapeLike(query)) + "%"
	var conds []string
	var args []any
	if fields.Name {
		conds = append(conds, "LOWER(name) LIKE ?")
		args = append(args, pattern)
	}
	if fields.Description {
		conds = append(conds, "LOWER(description) LIKE ?")
		args = append(args, pattern)
	}
	if fields.Tags {
		conds = append(conds, "LOWER(CAST(tags AS CHAR)) LIKE ?")
		args = append(args, pattern)
	}
	if len(conds) == 0 {
		return []*secretsDomain.Secret{}, nil
	}

	sqlQuery := fmt.Sprintf(
		`SELECT %s FROM secrets WHERE %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		secretColumns, strings.Join(conds, " OR "),
	)
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to search secrets")
	}
	return scanSecrets(rows)
}

// Stats returns secret counts grouped by type and by status.
func (m *MySQLSecretRepository) Stats(
	ctx context.Context,
) (map[secretsDomain.SecretType]uint64, map[secretsDomain.SecretStatus]uint64, error) {
	querier := database.GetTx(ctx, m.db)

	byType := make(map[secretsDomain.SecretType]uint64)
	rows, err := querier.QueryContext(ctx, `SELECT type, COUNT(*) FROM secrets GROUP BY type`)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to aggregate secrets by type")
	}
	defer rows.Close()
	for rows.Next() {
		var t secretsDomain.SecretType
		var count uint64
		if err := rows.Scan(&t, &count); err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to scan type aggregate")
		}
		byType[t] = count
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to aggregate secrets by type")
	}

	byStatus := make(map[secretsDomain.SecretStatus]uint64)
	statusRows, err := querier.QueryContext(ctx, `SELECT status, COUNT(*) FROM secrets GROUP BY status`)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to aggregate secrets by status")
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var st secretsDomain.SecretStatus
		var count uint64
		if err := statusRows.Scan(&st, &count); err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to scan status aggregate")
		}
		byStatus[st] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to aggregate secrets by status")
	}

	return byType, byStatus, nil
}

// buildFilter renders filter conditions as a WHERE clause with ? placeholders.
func (m *MySQLSecretRepository) buildFilter(filter secretsDomain.Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Owner != "" {
		conds = append(conds, "owner = ?")
		args = append(args, filter.Owner)
	}
	if len(filter.Tags) > 0 {
		// Subset match: the stored tags must contain every filter pair.
		tags, _ := json.Marshal(filter.Tags)
		conds = append(conds, "JSON_CONTAINS(tags, ?)")
		args = append(args, tags)
	}
	if filter.ExpiresBefore != nil {
		conds = append(conds, "expires_at IS NOT NULL AND expires_at < ?")
		args = append(args, *filter.ExpiresBefore)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// isMySQLDuplicateEntry detects unique constraint violations (error 1062).
func isMySQLDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate entry")
}
