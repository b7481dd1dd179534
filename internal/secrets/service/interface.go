// Package service provides secret value generation for rotation without a
// caller-supplied value. Each secret type maps to a generator producing a
// value appropriate for that credential kind.
package service

// ValueGenerator defines the interface for generating secret values.
type ValueGenerator interface {
	Generate() ([]byte, error)
}
