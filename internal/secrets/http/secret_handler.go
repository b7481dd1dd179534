// Package http provides HTTP handlers for secret management operations.
// Secrets are encrypted at rest using envelope encryption and versioned for
// optimistic concurrency control.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cryptoDomain "github.com/shieldops/secrets/internal/crypto/domain"
	"github.com/shieldops/secrets/internal/httputil"
	secretsDomain "github.com/shieldops/secrets/internal/secrets/domain"
	"github.com/shieldops/secrets/internal/secrets/http/dto"
	secretsUseCase "github.com/shieldops/secrets/internal/secrets/usecase"
	customValidation "github.com/shieldops/secrets/internal/validation"
)

// SecretHandler handles HTTP requests for secret management operations.
type SecretHandler struct {
	secretUseCase secretsUseCase.SecretUseCase
	logger        *slog.Logger
}

// NewSecretHandler creates a new secret handler with required dependencies.
func NewSecretHandler(
	secretUseCase secretsUseCase.SecretUseCase,
	logger *slog.Logger,
) *SecretHandler {
	return &SecretHandler{
		secretUseCase: secretUseCase,
		logger:        logger,
	}
}

// identifierFromParam builds an identifier from a path segment. A segment
// that parses as a UUID resolves by ID, anything else by name.
func identifierFromParam(param string) secretsDomain.Identifier {
	if id, err := uuid.Parse(param); err == nil {
		return secretsDomain.ByID(id)
	}
	return secretsDomain.ByName(param)
}

// CreateHandler creates a new secret.
// POST /v1/secrets
// Returns 201 Created with secret metadata (excludes plaintext value).
func (h *SecretHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := req.DecodedValue()
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}

	secretType, err := secretsDomain.ParseSecretType(req.Type)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	secret, err := h.secretUseCase.Create(c.Request.Context(), secretsUseCase.CreateSecretInput{
		Name:          req.Name,
		Value:         value,
		Type:          secretType,
		ExpiresInDays: req.ExpiresInDays,
		Tags:          req.Tags,
		Description:   req.Description,
		Owner:         req.Owner,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSecretToResponse(secret, false))
}

// GetHandler retrieves and decrypts a secret by ID or name.
// GET /v1/secrets/:id
// Returns 200 OK with the base64-encoded plaintext value.
func (h *SecretHandler) GetHandler(c *gin.Context) {
	secret, err := h.secretUseCase.Get(c.Request.Context(), identifierFromParam(c.Param("id")))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(secret.Plaintext)

	c.JSON(http.StatusOK, dto.MapSecretToResponse(secret, true))
}

// GetMetadataHandler retrieves a secret's metadata without decrypting the
// value or counting an access.
// GET /v1/secrets/:id/metadata
// Returns 200 OK with metadata only.
func (h *SecretHandler) GetMetadataHandler(c *gin.Context) {
	secret, err := h.secretUseCase.GetMetadata(c.Request.Context(), identifierFromParam(c.Param("id")))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretToResponse(secret, false))
}

// UpdateHandler applies a partial update to a secret.
// PATCH /v1/secrets/:id
// Returns 200 OK with updated metadata (excludes plaintext value).
func (h *SecretHandler) UpdateHandler(c *gin.Context) {
	var req dto.UpdateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := req.DecodedValue()
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}

	secret, err := h.secretUseCase.Update(
		c.Request.Context(),
		identifierFromParam(c.Param("id")),
		secretsUseCase.UpdateSecretInput{
			NewValue:       value,
			NewName:        req.Name,
			NewDescription: req.Description,
			NewTags:        req.Tags,
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretToResponse(secret, false))
}

// RotateHandler replaces a secret's value, generating one when the request
// carries none.
// POST /v1/secrets/:id/rotate
// Returns 200 OK with the new base64-encoded value.
func (h *SecretHandler) RotateHandler(c *gin.Context) {
	var req dto.RotateSecretRequest
	// An empty body means a generated value.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	value, err := req.DecodedValue()
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}

	secret, err := h.secretUseCase.Rotate(c.Request.Context(), identifierFromParam(c.Param("id")), value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(secret.Plaintext)

	c.JSON(http.StatusOK, dto.MapSecretToResponse(secret, true))
}

// DeleteHandler permanently removes a secret.
// DELETE /v1/secrets/:id
// Returns 204 No Content.
func (h *SecretHandler) DeleteHandler(c *gin.Context) {
	if err := h.secretUseCase.Delete(c.Request.Context(), identifierFromParam(c.Param("id"))); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListHandler retrieves secrets with filtering and pagination.
// GET /v1/secrets?type=&status=&owner=&tags[env]=prod&offset=0&limit=50
// Returns 200 OK with a paginated list (excludes plaintext values).
func (h *SecretHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := secretsDomain.Filter{Owner: c.Query("owner")}
	if typeStr := c.Query("type"); typeStr != "" {
		secretType, err := secretsDomain.ParseSecretType(typeStr)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		filter.Type = secretType
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status, err := secretsDomain.ParseSecretStatus(statusStr)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		filter.Status = status
	}
	if tags := c.QueryMap("tags"); len(tags) > 0 {
		filter.Tags = tags
	}

	secrets, total, err := h.secretUseCase.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretsToListResponse(secrets, total, limit, offset))
}

// SearchHandler finds secrets whose fields contain the query.
// GET /v1/secrets/search?q=database&fields=name,description,tags
// Returns 200 OK with matching secrets (excludes plaintext values).
func (h *SecretHandler) SearchHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	fields, err := secretsDomain.ParseSearchFields(c.QueryArray("fields"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	secrets, err := h.secretUseCase.Search(c.Request.Context(), c.Query("q"), fields, limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretsToListResponse(secrets, uint64(len(secrets)), limit, offset))
}

// StatsHandler reports aggregate secret counts and operation counters.
// GET /v1/secrets/stats
func (h *SecretHandler) StatsHandler(c *gin.Context) {
	stats, err := h.secretUseCase.Stats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatsToResponse(stats))
}

// HealthHandler reports storage and sync provider reachability.
// GET /v1/health
// Returns 200 OK, or 503 when storage is unreachable.
func (h *SecretHandler) HealthHandler(c *gin.Context) {
	health, err := h.secretUseCase.Health(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	statusCode := http.StatusOK
	if health.Status == secretsUseCase.HealthUnavailable {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, dto.MapHealthToResponse(health))
}

// BulkCreateHandler creates many secrets with per-item isolation.
// POST /v1/secrets/bulk/create
// Returns 200 OK with per-item outcomes in input order.
func (h *SecretHandler) BulkCreateHandler(c *gin.Context) {
	var req dto.BulkCreateSecretsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	inputs := make([]secretsUseCase.CreateSecretInput, 0, len(req.Secrets))
	for _, item := range req.Secrets {
		input := secretsUseCase.CreateSecretInput{
			Name:          item.Name,
			Type:          secretsDomain.SecretType(item.Type),
			ExpiresInDays: item.ExpiresInDays,
			Tags:          item.Tags,
			Description:   item.Description,
			Owner:         item.Owner,
		}
		// A bad value fails only its own item.
		if value, err := item.DecodedValue(); err == nil {
			input.Value = value
		}
		inputs = append(inputs, input)
	}

	result, err := h.secretUseCase.BulkCreate(c.Request.Context(), inputs)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapBulkResultToResponse(result))
}

// BulkDeleteHandler deletes many secrets with per-item isolation.
// POST /v1/secrets/bulk/delete
func (h *SecretHandler) BulkDeleteHandler(c *gin.Context) {
	ids, ok := h.bindBulkIdentifiers(c)
	if !ok {
		return
	}

	result, err := h.secretUseCase.BulkDelete(c.Request.Context(), ids)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapBulkResultToResponse(result))
}

// BulkRotateHandler rotates many secrets with per-item isolation. Every
// rotated secret receives a freshly generated value.
// POST /v1/secrets/bulk/rotate
func (h *SecretHandler) BulkRotateHandler(c *gin.Context) {
	ids, ok := h.bindBulkIdentifiers(c)
	if !ok {
		return
	}

	result, err := h.secretUseCase.BulkRotate(c.Request.Context(), ids)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapBulkResultToResponse(result))
}

// bindBulkIdentifiers parses and validates a bulk identifier request body.
func (h *SecretHandler) bindBulkIdentifiers(c *gin.Context) ([]secretsDomain.Identifier, bool) {
	var req dto.BulkIdentifiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}

	ids := make([]secretsDomain.Identifier, 0, len(req.Identifiers))
	for _, raw := range req.Identifiers {
		ids = append(ids, identifierFromParam(raw))
	}
	return ids, true
}
