package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/golang-jwt/jwt/v5"
)

// Token service error constants
var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrTokenSigningUnset = errors.New("token signing key is not configured")
)

// TokenService verifies bearer tokens issued by the upstream identity service
type TokenService interface {
	ValidateToken(token string) (*TokenClaims, error)
	// GenerateAccessToken signs an owner token with the shared secret. RSA deployments only verify.
	GenerateAccessToken(ownerID uint) (string, error)
}

// TokenClaims represents the claims in an owner access token
type TokenClaims struct {
	OwnerID   uint      `json:"owner_id"`
	Subject   string    `json:"sub"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
	TokenID   string    `json:"jti"`
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	accessTokenTTL time.Duration
	publicKey      *rsa.PublicKey
	secretKey      []byte
	useRSAKeys     bool
	issuer         string
	audience       string
}

// NewTokenService creates a new token service
func NewTokenService(accessTokenTTL time.Duration, issuer, audience string, useRSAKeys bool, publicKeyPEM, secretKey string) (TokenService, error) {
	svc := &TokenServiceImpl{
		accessTokenTTL: accessTokenTTL,
		useRSAKeys:     useRSAKeys,
		issuer:         issuer,
		audience:       audience,
	}

	if useRSAKeys {
		publicKey, err := parseRSAPublicKey(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		svc.publicKey = publicKey
	} else {
		if secretKey == "" {
			return nil, fmt.Errorf("secret key is required when not using RSA keys")
		}
		svc.secretKey = []byte(secretKey)
	}

	return svc, nil
}

func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	if publicKeyPEM == "" {
		return nil, fmt.Errorf("public key is required")
	}

	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("failed to decode public key")
	}

	publicKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}
	return rsaPublicKey, nil
}

// GenerateAccessToken signs an access token for an owner
func (s *TokenServiceImpl) GenerateAccessToken(ownerID uint) (string, error) {
	if s.useRSAKeys {
		return "", ErrTokenSigningUnset
	}

	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}

	now := utils.UTCNow()
	claims := jwt.MapClaims{
		"owner_id":   ownerID,
		"sub":        fmt.Sprintf("%d", ownerID),
		"token_type": "access",
		"jti":        tokenID,
		"iat":        now.Unix(),
		"exp":        now.Add(s.accessTokenTTL).Unix(),
		"iss":        s.issuer,
		"aud":        s.audience,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

// ValidateToken validates a JWT token and returns claims
func (s *TokenServiceImpl) ValidateToken(token string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		// Validate signing method
		if s.useRSAKeys {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	if tokenType, _ := claims["token_type"].(string); tokenType != "" && tokenType != "access" {
		return nil, ErrTokenInvalid
	}

	ownerID, ok := claims["owner_id"].(float64)
	if !ok || ownerID <= 0 {
		return nil, ErrTokenInvalid
	}

	out := &TokenClaims{
		OwnerID:   uint(ownerID),
		TokenType: "access",
	}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if jti, ok := claims["jti"].(string); ok {
		out.TokenID = jti
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.UTC()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.UTC()
	}
	return out, nil
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token ID: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
