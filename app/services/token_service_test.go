package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T) TokenService {
	t.Helper()
	svc, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", false, "", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", secretKey: testSecret},
		{name: "missing secret key", expectError: true},
		{name: "rsa without public key", useRSAKeys: true, expectError: true},
		{name: "rsa with malformed public key", useRSAKeys: true, publicKey: "not a pem", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTokenService(time.Hour, "iss", "aud", tt.useRSAKeys, tt.publicKey, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := createTestTokenService(t)

	token, err := svc.GenerateAccessToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.OwnerID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestTokenService_Rejections(t *testing.T) {
	svc := createTestTokenService(t)

	sign := func(claims jwt.MapClaims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"owner_id": 7,
			"iss":      "test-issuer",
			"aud":      "test-audience",
			"exp":      time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("expired token", func(t *testing.T) {
		claims := base()
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := svc.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.ValidateToken(sign(base(), "another-secret-that-is-long-enough!!"))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := base()
		claims["aud"] = "someone-else"
		_, err := svc.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing owner", func(t *testing.T) {
		claims := base()
		delete(claims, "owner_id")
		_, err := svc.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("refresh token", func(t *testing.T) {
		claims := base()
		claims["token_type"] = "refresh"
		_, err := svc.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := base()
		delete(claims, "exp")
		_, err := svc.ValidateToken(sign(claims, testSecret))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestTokenService_RSAVerification(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	svc, err := NewTokenService(time.Hour, "", "", true, publicPEM, "")
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"owner_id": 9,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString(privateKey)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.OwnerID)

	_, err = svc.GenerateAccessToken(9)
	assert.ErrorIs(t, err, ErrTokenSigningUnset)

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"owner_id": 9,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateToken(hmacToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
