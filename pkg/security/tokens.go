package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// NewOpaqueToken returns a random UUIDv4 string used as a bearer token.
func NewOpaqueToken() string {
	return uuid.NewString()
}

// GenerateNumericCode returns a uniformly random six digit code in [100000, 999999].
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
