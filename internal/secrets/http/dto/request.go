// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"

	customValidation "github.com/shieldops/secrets/internal/validation"
)

// MaxBulkItems bounds the number of items accepted per bulk request.
const MaxBulkItems = 100

// CreateSecretRequest contains the parameters for creating a secret.
// The value is base64-encoded so binary secrets survive JSON transport.
type CreateSecretRequest struct {
	Name          string            `json:"name"`
	Value         string            `json:"value"`
	Type          string            `json:"type"`
	ExpiresInDays int               `json:"expires_in_days"`
	Tags          map[string]string `json:"tags"`
	Description   string            `json:"description"`
	Owner         string            `json:"owner"`
}

// Validate checks if the create secret request is valid.
func (r *CreateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, customValidation.MaxNameLength),
		),
		validation.Field(&r.Value, validation.Required),
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.ExpiresInDays, validation.Min(0)),
		validation.Field(&r.Tags, customValidation.Tags{}),
	)
}

// DecodedValue returns the base64-decoded secret value.
func (r *CreateSecretRequest) DecodedValue() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Value)
}

// UpdateSecretRequest contains the parameters for a partial secret update.
// Nil fields are left unchanged.
type UpdateSecretRequest struct {
	Value       *string           `json:"value"`
	Name        *string           `json:"name"`
	Description *string           `json:"description"`
	Tags        map[string]string `json:"tags"`
}

// Validate checks if the update secret request is valid.
func (r *UpdateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.When(r.Name != nil,
				customValidation.NotBlank,
				customValidation.NoWhitespace,
				validation.Length(1, customValidation.MaxNameLength),
			),
		),
		validation.Field(&r.Value,
			validation.When(r.Value != nil, validation.Required),
		),
		validation.Field(&r.Tags, customValidation.Tags{}),
	)
}

// DecodedValue returns the base64-decoded new value, or nil when the request
// leaves the value unchanged.
func (r *UpdateSecretRequest) DecodedValue() ([]byte, error) {
	if r.Value == nil {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*r.Value)
}

// RotateSecretRequest contains the optional replacement value for a rotation.
// When the value is empty the server generates one for the secret's type.
type RotateSecretRequest struct {
	Value string `json:"value"`
}

// DecodedValue returns the base64-decoded replacement value, or nil when the
// server should generate one.
func (r *RotateSecretRequest) DecodedValue() ([]byte, error) {
	if r.Value == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(r.Value)
}

// BulkCreateSecretsRequest contains the items for a bulk create.
type BulkCreateSecretsRequest struct {
	Secrets []CreateSecretRequest `json:"secrets"`
}

// Validate checks the bulk create request size; per-item validation happens
// inside the bulk operation so one bad item cannot reject the batch.
func (r *BulkCreateSecretsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Secrets,
			validation.Required,
			validation.Length(1, MaxBulkItems),
		),
	)
}

// BulkIdentifiersRequest names the secrets targeted by a bulk delete or
// rotate. Each entry is either a secret ID or a secret name.
type BulkIdentifiersRequest struct {
	Identifiers []string `json:"identifiers"`
}

// Validate checks the bulk identifier request.
func (r *BulkIdentifiersRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Identifiers,
			validation.Required,
			validation.Length(1, MaxBulkItems),
		),
	)
}
