package dto

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
	secretsUseCase "github.com/shieldops/secrets/internal/secrets/usecase"
	syncerDomain "github.com/shieldops/secrets/internal/syncer/domain"
)

// SecretData is the API view of a secret.
// SECURITY: The Value field contains base64-encoded plaintext and is only
// included in get and rotate responses. Must be transmitted over HTTPS.
type SecretData struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	Version        uint              `json:"version"`
	Value          string            `json:"value,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
	Description    string            `json:"description,omitempty"`
	Owner          string            `json:"owner,omitempty"`
	AccessCount    uint64            `json:"access_count"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	RotatedAt      *time.Time        `json:"rotated_at,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	LastAccessedAt *time.Time        `json:"last_accessed_at,omitempty"`
}

// SecretResponse wraps a single secret in the uniform response shape.
type SecretResponse struct {
	Success bool       `json:"success"`
	Data    SecretData `json:"data"`
}

// ListSecretsResponse represents a paginated list of secrets.
type ListSecretsResponse struct {
	Success bool         `json:"success"`
	Data    []SecretData `json:"data"`
	Total   uint64       `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// StatsResponse reports aggregate secret counts and operation counters.
type StatsResponse struct {
	Success bool      `json:"success"`
	Data    StatsData `json:"data"`
}

// StatsData carries the statistics payload.
type StatsData struct {
	TotalSecrets  uint64            `json:"total_secrets"`
	ByType        map[string]uint64 `json:"by_type"`
	ByStatus      map[string]uint64 `json:"by_status"`
	AccessCount   uint64            `json:"access_count"`
	RotationCount uint64            `json:"rotation_count"`
	ErrorCount    uint64            `json:"error_count"`
	SyncCount     uint64            `json:"external_sync_count"`
}

// HealthResponse reports storage and provider reachability.
type HealthResponse struct {
	Success   bool                 `json:"success"`
	Status    string               `json:"status"`
	Storage   bool                 `json:"storage"`
	Providers []ProviderHealthData `json:"providers"`
	CheckedAt time.Time            `json:"checked_at"`
}

// ProviderHealthData is the API view of one sync provider's reachability.
type ProviderHealthData struct {
	Name      string    `json:"name"`
	Reachable bool      `json:"reachable"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// BulkResponse summarizes a bulk operation. Success reflects the request as a
// whole; per-item outcomes are in Results.
type BulkResponse struct {
	Success      bool             `json:"success"`
	Total        int              `json:"total"`
	SuccessCount int              `json:"success_count"`
	ErrorCount   int              `json:"error_count"`
	Results      []BulkItemResult `json:"results"`
}

// BulkItemResult is the outcome of one bulk item, in input order.
type BulkItemResult struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MapSecretToData converts a domain secret to its API view. The plaintext is
// included base64-encoded only when includeValue is set.
func MapSecretToData(secret *secretsDomain.Secret, includeValue bool) SecretData {
	data := SecretData{
		ID:             secret.ID.String(),
		Name:           secret.Name,
		Type:           string(secret.Type),
		Status:         string(secret.Status),
		Version:        secret.Version,
		Tags:           secret.Tags,
		Description:    secret.Description,
		Owner:          secret.Owner,
		AccessCount:    secret.AccessCount,
		CreatedAt:      secret.CreatedAt,
		UpdatedAt:      secret.UpdatedAt,
		RotatedAt:      secret.RotatedAt,
		ExpiresAt:      secret.ExpiresAt,
		LastAccessedAt: secret.LastAccessedAt,
	}
	if includeValue && len(secret.Plaintext) > 0 {
		data.Value = base64.StdEncoding.EncodeToString(secret.Plaintext)
	}
	return data
}

// MapSecretToResponse wraps a secret in the uniform response shape.
func MapSecretToResponse(secret *secretsDomain.Secret, includeValue bool) SecretResponse {
	return SecretResponse{
		Success: true,
		Data:    MapSecretToData(secret, includeValue),
	}
}

// MapSecretsToListResponse converts domain secrets to a paginated list
// response. Plaintext values are never included in listings.
func MapSecretsToListResponse(
	secrets []*secretsDomain.Secret,
	total uint64,
	limit, offset int,
) ListSecretsResponse {
	data := make([]SecretData, 0, len(secrets))
	for _, secret := range secrets {
		data = append(data, MapSecretToData(secret, false))
	}
	return ListSecretsResponse{
		Success: true,
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
}

// MapStatsToResponse converts domain statistics to the API response.
func MapStatsToResponse(stats *secretsDomain.Stats) StatsResponse {
	byType := make(map[string]uint64, len(stats.ByType))
	for k, v := range stats.ByType {
		byType[string(k)] = v
	}
	byStatus := make(map[string]uint64, len(stats.ByStatus))
	for k, v := range stats.ByStatus {
		byStatus[string(k)] = v
	}
	return StatsResponse{
		Success: true,
		Data: StatsData{
			TotalSecrets:  stats.TotalSecrets,
			ByType:        byType,
			ByStatus:      byStatus,
			AccessCount:   stats.AccessCount,
			RotationCount: stats.RotationCount,
			ErrorCount:    stats.ErrorCount,
			SyncCount:     stats.SyncCount,
		},
	}
}

// MapHealthToResponse converts the manager health snapshot to the API response.
func MapHealthToResponse(health *secretsUseCase.Health) HealthResponse {
	providers := make([]ProviderHealthData, 0, len(health.Providers))
	for _, p := range health.Providers {
		providers = append(providers, mapProviderHealth(p))
	}
	return HealthResponse{
		Success:   health.Status != secretsUseCase.HealthUnavailable,
		Status:    health.Status,
		Storage:   health.Storage,
		Providers: providers,
		CheckedAt: health.CheckedAt,
	}
}

func mapProviderHealth(p syncerDomain.ProviderHealth) ProviderHealthData {
	return ProviderHealthData{
		Name:      p.Name,
		Reachable: p.Reachable,
		CheckedAt: p.CheckedAt,
		Error:     p.Error,
	}
}

// MapBulkResultToResponse converts a bulk outcome to the API response.
func MapBulkResultToResponse(result *secretsUseCase.BulkResult) BulkResponse {
	results := make([]BulkItemResult, 0, len(result.Results))
	for _, r := range result.Results {
		item := BulkItemResult{
			Index:   r.Index,
			Name:    r.Name,
			Success: r.Success,
			Error:   r.Error,
		}
		if r.ID != uuid.Nil {
			item.ID = r.ID.String()
		}
		results = append(results, item)
	}
	return BulkResponse{
		Success:      true,
		Total:        result.Total,
		SuccessCount: result.SuccessCount,
		ErrorCount:   result.ErrorCount,
		Results:      results,
	}
}
