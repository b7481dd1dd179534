package usecase

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
)

// bulkConcurrency caps how many items a bulk operation processes at once.
const bulkConcurrency = 8

// BulkItemResult is the outcome of one item in a bulk operation. Results keep
// the input order regardless of completion order.
type BulkItemResult struct {
	// Index is the item's position in the input slice.
	Index int
	// Name echoes the input name (create) or identifier (delete, rotate).
	Name string
	// ID is the secret ID when the item resolved to one.
	ID uuid.UUID
	// Success reports whether the item completed.
	Success bool
	// Error carries the failure message for unsuccessful items.
	Error string
}

// BulkResult summarizes a bulk operation.
type BulkResult struct {
	Total        int
	SuccessCount int
	ErrorCount   int
	Results      []BulkItemResult
}

// BulkCreate creates many secrets concurrently. Each item succeeds or fails
// on its own; one bad item never aborts the rest.
func (s *SecretManager) BulkCreate(
	ctx context.Context,
	inputs []CreateSecretInput,
) (*BulkResult, error) {
	results := make([]BulkItemResult, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, input := range inputs {
		g.Go(func() error {
			result := BulkItemResult{Index: i, Name: input.Name}
			secret, err := s.Create(gctx, input)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.ID = secret.ID
				result.Success = true
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return summarize(results), nil
}

// BulkDelete deletes many secrets concurrently with per-item isolation.
func (s *SecretManager) BulkDelete(
	ctx context.Context,
	ids []secretsDomain.Identifier,
) (*BulkResult, error) {
	results := make([]BulkItemResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			result := BulkItemResult{Index: i, Name: id.String()}
			if err := s.Delete(gctx, id); err != nil {
				result.Error = err.Error()
			} else {
				result.Success = true
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return summarize(results), nil
}

// BulkRotate rotates many secrets concurrently with per-item isolation. Every
// rotated secret receives a freshly generated value for its type.
func (s *SecretManager) BulkRotate(
	ctx context.Context,
	ids []secretsDomain.Identifier,
) (*BulkResult, error) {
	results := make([]BulkItemResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			result := BulkItemResult{Index: i, Name: id.String()}
			secret, err := s.Rotate(gctx, id, nil)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.ID = secret.ID
				result.Success = true
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return summarize(results), nil
}

// summarize tallies per-item outcomes into a BulkResult.
func summarize(results []BulkItemResult) *BulkResult {
	out := &BulkResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Success {
			out.SuccessCount++
		} else {
			out.ErrorCount++
		}
	}
	return out
}
