package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("WrapNil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("PreservesSentinel", func(t *testing.T) {
		err := Wrap(ErrNotFound, "secret lookup")
		assert.True(t, Is(err, ErrNotFound))
		assert.Equal(t, "secret lookup: not found", err.Error())
	})

	t.Run("NestedWrapPreservesSentinel", func(t *testing.T) {
		err := Wrap(Wrap(ErrConflict, "inner"), "outer")
		assert.True(t, Is(err, ErrConflict))
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("layer: %w", ErrInvalidInput)
	assert.True(t, Is(err, ErrInvalidInput))
	assert.False(t, Is(err, ErrNotFound))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrStorage, ErrUnavailable}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b))
		}
	}
}
