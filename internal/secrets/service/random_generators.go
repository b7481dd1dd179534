package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{}<>?"

	passwordLength = 32
	tokenLength    = 48
)

type passwordGenerator struct{}

// NewPasswordGenerator creates a generator producing strong random passwords
// with at least one character from each class (lower, upper, digit, symbol).
func NewPasswordGenerator() ValueGenerator {
	return &passwordGenerator{}
}

// Generate creates a cryptographically secure random password.
func (g *passwordGenerator) Generate() ([]byte, error) {
	all := lowerChars + upperChars + digitChars + symbolChars

	password := make([]byte, passwordLength)
	// One guaranteed character per class, the rest drawn from the full set.
	classes := []string{lowerChars, upperChars, digitChars, symbolChars}
	for i := range password {
		source := all
		if i < len(classes) {
			source = classes[i]
		}
		c, err := randomChar(source)
		if err != nil {
			return nil, err
		}
		password[i] = c
	}

	if err := shuffle(password); err != nil {
		return nil, err
	}
	return password, nil
}

type tokenGenerator struct {
	length int
}

// NewTokenGenerator creates a generator producing random alphanumeric tokens,
// suitable for API keys and service tokens.
func NewTokenGenerator() ValueGenerator {
	return &tokenGenerator{length: tokenLength}
}

// Generate creates a cryptographically secure random alphanumeric token.
func (g *tokenGenerator) Generate() ([]byte, error) {
	chars := lowerChars + upperChars + digitChars

	token := make([]byte, g.length)
	for i := range token {
		c, err := randomChar(chars)
		if err != nil {
			return nil, err
		}
		token[i] = c
	}
	return token, nil
}

type encryptionKeyGenerator struct{}

// NewEncryptionKeyGenerator creates a generator producing base64-encoded
// 256-bit random keys.
func NewEncryptionKeyGenerator() ValueGenerator {
	return &encryptionKeyGenerator{}
}

// Generate creates a base64-encoded random 32-byte key.
func (g *encryptionKeyGenerator) Generate() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	return []byte(base64.StdEncoding.EncodeToString(key)), nil
}

// randomChar picks one character from source using crypto/rand.
func randomChar(source string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(source))))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random character: %w", err)
	}
	return source[n.Int64()], nil
}

// shuffle permutes the buffer in place with a Fisher-Yates shuffle driven by
// crypto/rand, so the guaranteed class characters end up in random positions.
func shuffle(buf []byte) error {
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("failed to shuffle: %w", err)
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
	return nil
}
