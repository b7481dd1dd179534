package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
	"github.com/shieldops/secrets/internal/database"
	apperrors "github.com/shieldops/secrets/internal/errors"
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
)

const secretColumns = `id, name, type, status, key_id, algorithm, wrapped_key, key_nonce,
	ciphertext, nonce, version, tags, description, owner, access_count,
	created_at, updated_at, rotated_at, expires_at, last_accessed_at`

// PostgreSQLSecretRepository implements Secret persistence for PostgreSQL databases.
type PostgreSQLSecretRepository struct {
	db *sql.DB
}

// NewPostgreSQLSecretRepository creates a new PostgreSQL Secret repository instance.
func NewPostgreSQLSecretRepository(db *sql.DB) *PostgreSQLSecretRepository {
	return &PostgreSQLSecretRepository{db: db}
}

// Create inserts a new secret. A name already held by another secret maps to
// ErrNameTaken through the unique index.
func (p *PostgreSQLSecretRepository) Create(ctx context.Context, secret *secretsDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	tags, err := marshalTags(secret.Tags)
	if err != nil {
		return err
	}

	query := `INSERT INTO secrets (` + secretColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

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
		if isPostgreSQLUniqueViolation(err) {
			return secretsDomain.ErrNameTaken
		}
		return apperrors.Wrap(err, "failed to create secret")
	}
	return nil
}

// GetByID retrieves a secret by its immutable identifier.
func (p *PostgreSQLSecretRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE id = $1 LIMIT 1`
	return scanSecret(querier.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a secret through the unique name index.
func (p *PostgreSQLSecretRepository) GetByName(
	ctx context.Context,
	name string,
) (*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE name = $1 LIMIT 1`
	return scanSecret(querier.QueryRowContext(ctx, query, name))
}

// Update writes the new record only when the stored version still equals
// expectedVersion. A lost race reports ErrVersionConflict; a rename into a
// taken name reports ErrNameTaken.
func (p *PostgreSQLSecretRepository) Update(
	ctx context.Context,
	secret *secretsDomain.Secret,
	expectedVersion uint,
) error {
	querier := database.GetTx(ctx, p.db)

	tags, err := marshalTags(secret.Tags)
	if err != nil {
		return err
	}

	query := `UPDATE secrets
			  SET name = $1, type = $2, status = $3, key_id = $4, algorithm = $5,
				  wrapped_key = $6, key_nonce = $7, ciphertext = $8, nonce = $9,
				  version = $10, tags = $11, description = $12, owner = $13,
				  updated_at = $14, rotated_at = $15, expires_at = $16
			  WHERE id = $17 AND version = $18`

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
		if isPostgreSQLUniqueViolation(err) {
			return secretsDomain.ErrNameTaken
		}
		return apperrors.Wrap(err, "failed to update secret")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		return p.casFailure(ctx, secret.ID)
	}
	return nil
}

// casFailure distinguishes a missing record from a lost version race.
func (p *PostgreSQLSecretRepository) casFailure(ctx context.Context, id uuid.UUID) error {
	if _, err := p.GetByID(ctx, id); err != nil {
		return err
	}
	return secretsDomain.ErrVersionConflict
}

// Delete removes a secret permanently.
func (p *PostgreSQLSecretRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, id)
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

// RecordAccess increments the access counter and stamps the last read time.
// It deliberately bypasses compare-and-swap: reads never bump the version.
func (p *PostgreSQLSecretRepository) RecordAccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secrets SET access_count = access_count + 1, last_accessed_at = $1 WHERE id = $2`
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
func (p *PostgreSQLSecretRepository) List(
	ctx context.Context,
	filter secretsDomain.Filter,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := p.buildFilter(filter)
	query := fmt.Sprintf(
		`SELECT %s FROM secrets %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		secretColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}
	return scanSecrets(rows)
}

// Count returns the number of secrets matching the filter.
func (p *PostgreSQLSecretRepository) Count(
	ctx context.Context,
	filter secretsDomain.Filter,
) (uint64, error) {
	querier := database.GetTx(ctx, p.db)

	where, args := p.buildFilter(filter)
	query := `SELECT COUNT(*) FROM secrets ` + where

	var count uint64
	if err := querier.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count secrets")
	}
	return count, nil
}

// Search matches the query as a case-insensitive substring of the selected
// fields, newest first, paginated.
func (p *PostgreSQLSecretRepository) Search(
	ctx context.Context,
	query string,
	fields secretsDomain.SearchFields,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	pattern := "%" + escapeLike(query) + "%"
	var conds []string
	var args []any
	if fields.Name {
		args = append(args, pattern)
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if fields.Description {
		args = append(args, pattern)
		conds = append(conds, fmt.Sprintf("description ILIKE $%d", len(args)))
	}
	if fields.Tags {
		args = append(args, pattern)
		conds = append(conds, fmt.Sprintf("tags::text ILIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return []*secretsDomain.Secret{}, nil
	}

	sqlQuery := fmt.Sprintf(
		`SELECT %s FROM secrets WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		secretColumns, strings.Join(conds, " OR "), len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to search secrets")
	}
	return scanSecrets(rows)
}

// Stats returns secret counts grouped by type and by status.
func (p *PostgreSQLSecretRepository) Stats(
	ctx context.Context,
) (map[secretsDomain.SecretType]uint64, map[secretsDomain.SecretStatus]uint64, error) {
	querier := database.GetTx(ctx, p.db)

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

// buildFilter renders filter conditions as a WHERE clause with $n placeholders.
func (p *PostgreSQLSecretRepository) buildFilter(filter secretsDomain.Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Owner != "" {
		args = append(args, filter.Owner)
		conds = append(conds, fmt.Sprintf("owner = $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		// Subset match: the stored tags must contain every filter pair.
		tags, _ := json.Marshal(filter.Tags)
		args = append(args, tags)
		conds = append(conds, fmt.Sprintf("tags @> $%d::jsonb", len(args)))
	}
	if filter.ExpiresBefore != nil {
		args = append(args, *filter.ExpiresBefore)
		conds = append(conds, fmt.Sprintf("expires_at IS NOT NULL AND expires_at < $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSecret reads one secret row, mapping sql.ErrNoRows to ErrSecretNotFound.
func scanSecret(row rowScanner) (*secretsDomain.Secret, error) {
	var secret secretsDomain.Secret
	var envelope cryptoDomain.Envelope
	var tags []byte

	err := row.Scan(
		&secret.ID,
		&secret.Name,
		&secret.Type,
		&secret.Status,
		&envelope.KeyID,
		&envelope.Algorithm,
		&envelope.WrappedKey,
		&envelope.KeyNonce,
		&envelope.Ciphertext,
		&envelope.Nonce,
		&secret.Version,
		&tags,
		&secret.Description,
		&secret.Owner,
		&secret.AccessCount,
		&secret.CreatedAt,
		&secret.UpdatedAt,
		&secret.RotatedAt,
		&secret.ExpiresAt,
		&secret.LastAccessedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, secretsDomain.ErrSecretNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan secret")
	}

	secret.Envelope = envelope
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &secret.Tags); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode secret tags")
		}
	}
	return &secret, nil
}

// scanSecrets drains a result set into secret records.
func scanSecrets(rows *sql.Rows) ([]*secretsDomain.Secret, error) {
	defer rows.Close()

	secrets := make([]*secretsDomain.Secret, 0)
	for rows.Next() {
		secret, err := scanSecret(rows)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to read secrets")
	}
	return secrets, nil
}

// marshalTags encodes tags as JSON for the tags column.
func marshalTags(tags map[string]string) ([]byte, error) {
	if tags == nil {
		tags = map[string]string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode secret tags")
	}
	return encoded, nil
}

// escapeLike escapes LIKE metacharacters in user-supplied search text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// isPostgreSQLUniqueViolation detects unique constraint violations from lib/pq.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
