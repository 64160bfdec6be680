package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const (
	refreshTokenBytes = 32
	resetCodeDigits   = 4
)

// ErrTokenGeneration is returned when the system random source fails
var ErrTokenGeneration = errors.New("failed to generate token")

// HashToken returns the hex SHA-256 of token; only hashes are persisted
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateRefreshToken returns an opaque, URL-safe refresh token
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateResetCode returns a zero-padded 4 digit password reset code
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n.Int64()), nil
}

// CodesEqual compares two codes in constant time
func CodesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
