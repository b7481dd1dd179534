package usecase

import (
	"context"
	"time"

	"github.com/shieldops/secrets/internal/metrics"
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
)

// secretUseCaseWithMetrics decorates SecretUseCase with metrics instrumentation.
type secretUseCaseWithMetrics struct {
	next    SecretUseCase
	metrics metrics.BusinessMetrics
}

// NewSecretUseCaseWithMetrics wraps a SecretUseCase with metrics recording.
func NewSecretUseCaseWithMetrics(useCase SecretUseCase, m metrics.BusinessMetrics) SecretUseCase {
	return &secretUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// observe records one operation outcome with its duration.
func (s *secretUseCaseWithMetrics) observe(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "secrets", operation, status)
	s.metrics.RecordDuration(ctx, "secrets", operation, time.Since(start), status)
}

func (s *secretUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreateSecretInput,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Create(ctx, input)
	s.observe(ctx, "secret_create", start, err)
	return secret, err
}

func (s *secretUseCaseWithMetrics) Get(
	ctx context.Context,
	id secretsDomain.Identifier,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Get(ctx, id)
	s.observe(ctx, "secret_get", start, err)
	return secret, err
}

func (s *secretUseCaseWithMetrics) GetMetadata(
	ctx context.Context,
	id secretsDomain.Identifier,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.GetMetadata(ctx, id)
	s.observe(ctx, "secret_get_metadata", start, err)
	return secret, err
}

func (s *secretUseCaseWithMetrics) Update(
	ctx context.Context,
	id secretsDomain.Identifier,
	input UpdateSecretInput,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Update(ctx, id, input)
	s.observe(ctx, "secret_update", start, err)
	return secret, err
}

func (s *secretUseCaseWithMetrics) Rotate(
	ctx context.Context,
	id secretsDomain.Identifier,
	newValue []byte,
) (*secretsDomain.Secret, error) {
	start := time.Now()
	secret, err := s.next.Rotate(ctx, id, newValue)
	s.observe(ctx, "secret_rotate", start, err)
	return secret, err
}

func (s *secretUseCaseWithMetrics) Delete(ctx context.Context, id secretsDomain.Identifier) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe(ctx, "secret_delete", start, err)
	return err
}

func (s *secretUseCaseWithMetrics) List(
	ctx context.Context,
	filter secretsDomain.Filter,
	limit, offset int,
) ([]*secretsDomain.Secret, uint64, error) {
	start := time.Now()
	secrets, total, err := s.next.List(ctx, filter, limit, offset)
	s.observe(ctx, "secret_list", start, err)
	return secrets, total, err
}

func (s *secretUseCaseWithMetrics) Search(
	ctx context.Context,
	query string,
	fields secretsDomain.SearchFields,
	limit, offset int,
) ([]*secretsDomain.Secret, error) {
	start := time.Now()
	secrets, err := s.next.Search(ctx, query, fields, limit, offset)
	s.observe(ctx, "secret_search", start, err)
	return secrets, err
}

func (s *secretUseCaseWithMetrics) Stats(ctx context.Context) (*secretsDomain.Stats, error) {
	start := time.Now()
	stats, err := s.next.Stats(ctx)
	s.observe(ctx, "secret_stats", start, err)
	return stats, err
}

func (s *secretUseCaseWithMetrics) Health(ctx context.Context) (*Health, error) {
	start := time.Now()
	health, err := s.next.Health(ctx)
	s.observe(ctx, "secret_health", start, err)
	return health, err
}

func (s *secretUseCaseWithMetrics) BulkCreate(
	ctx context.Context,
	inputs []CreateSecretInput,
) (*BulkResult, error) {
	start := time.Now()
	result, err := s.next.BulkCreate(ctx, inputs)
	s.observe(ctx, "secret_bulk_create", start, err)
	return result, err
}

func (s *secretUseCaseWithMetrics) BulkDelete(
	ctx context.Context,
	ids []secretsDomain.Identifier,
) (*BulkResult, error) {
	start := time.Now()
	result, err := s.next.BulkDelete(ctx, ids)
	s.observe(ctx, "secret_bulk_delete", start, err)
	return result, err
}

func (s *secretUseCaseWithMetrics) BulkRotate(
	ctx context.Context,
	ids []secretsDomain.Identifier,
) (*BulkResult, error) {
	start := time.Now()
	result, err := s.next.BulkRotate(ctx, ids)
	s.observe(ctx, "secret_bulk_rotate", start, err)
	return result, err
}

func (s *secretUseCaseWithMetrics) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	start := time.Now()
	swept, err := s.next.SweepExpired(ctx, batchSize)
	s.observe(ctx, "secret_sweep_expired", start, err)
	return swept, err
}
