// Package validation provides custom validation rules for the application.
package validation

import (
	"fmt"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/shieldops/secrets/internal/errors"
)

// MaxNameLength bounds secret names accepted by the API.
const MaxNameLength = 255

// MaxTagEntries bounds the number of tag pairs accepted per secret.
const MaxTagEntries = 64

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Tags validates that a tag map is flat string→string with bounded size and
// non-blank keys.
type Tags struct{}

// Validate checks the tag mapping.
func (Tags) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	tags, ok := value.(map[string]string)
	if !ok {
		return validation.NewError("validation_tags_type", "tags must be a flat string to string mapping")
	}

	if len(tags) > MaxTagEntries {
		return validation.NewError(
			"validation_tags_size",
			fmt.Sprintf("tags must not exceed %d entries", MaxTagEntries),
		)
	}

	for k := range tags {
		if strings.TrimSpace(k) == "" {
			return validation.NewError("validation_tags_key", "tag keys must not be blank")
		}
	}

	return nil
}
