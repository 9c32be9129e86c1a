package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims *Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifyValidToken(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier(&key.PublicKey)

	token := signToken(t, key, &Claims{
		AccountID: "1011226111",
		Name:      "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "1011226111", claims.AccountID)
	assert.Equal(t, "Alice", claims.Name)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)
	v := NewVerifier(&key.PublicKey)

	token := signToken(t, other, &Claims{AccountID: "1011226111"})

	_, err := v.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier(&key.PublicKey)

	token := signToken(t, key, &Claims{
		AccountID: "1011226111",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := v.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier(&key.PublicKey)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{AccountID: "x"}).
		SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = v.Verify(unsigned)
	assert.Error(t, err)
}

func TestAuthenticateMiddleware(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier(&key.PublicKey)

	var got *Claims
	handler := Authenticate(v, func(w http.ResponseWriter, r *http.Request, status int, code string) {
		w.WriteHeader(status)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := signToken(t, key, &Claims{
		AccountID: "1011226111",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions/1011226111", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "1011226111", got.AccountID)
}

func TestAuthenticateMiddlewareRejectsMissingToken(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier(&key.PublicKey)

	handler := Authenticate(v, func(w http.ResponseWriter, r *http.Request, status int, code string) {
		w.WriteHeader(status)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/transactions/1011226111", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
