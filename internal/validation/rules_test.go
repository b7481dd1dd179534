package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/shieldops/secrets/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	assert.Nil(t, WrapValidationError(nil))

	err := WrapValidationError(errors.New("name: must not be blank"))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "must not be blank")
}

func TestNotBlank(t *testing.T) {
	assert.Error(t, NotBlank.Validate(""))
	assert.Error(t, NotBlank.Validate("   "))
	assert.NoError(t, NotBlank.Validate("db_password"))
}

func TestNoWhitespace(t *testing.T) {
	assert.Error(t, NoWhitespace.Validate(" padded"))
	assert.Error(t, NoWhitespace.Validate("padded "))
	assert.NoError(t, NoWhitespace.Validate("clean"))
}

func TestTags(t *testing.T) {
	rule := Tags{}

	assert.NoError(t, rule.Validate(nil))
	assert.NoError(t, rule.Validate(map[string]string{"env": "prod"}))
	assert.Error(t, rule.Validate(map[string]string{" ": "prod"}))
	assert.Error(t, rule.Validate(map[string]int{"env": 1}))

	big := make(map[string]string)
	for i := 0; i < MaxTagEntries+1; i++ {
		big[string(rune('a'+i%26))+string(rune('0'+i/26))] = "v"
	}
	assert.Error(t, rule.Validate(big))
}
