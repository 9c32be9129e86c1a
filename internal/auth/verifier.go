// Package auth verifies bearer tokens minted by the user service. This
// service never mints tokens itself; it only holds the public key.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by user-service tokens. The acct claim names the one
// account the bearer may read.
type Claims struct {
	AccountID string `json:"acct"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier validates RS256 tokens against a fixed public key.
type Verifier struct {
	publicKey *rsa.PublicKey
}

// NewVerifier wraps an already-loaded public key.
func NewVerifier(key *rsa.PublicKey) *Verifier {
	return &Verifier{publicKey: key}
}

// NewVerifierFromFile loads an RSA public key in PEM form.
func NewVerifierFromFile(path string) (*Verifier, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key %s: %w", path, err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key %s: %w", path, err)
	}
	return NewVerifier(key), nil
}

// Verify parses and validates a token string, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
