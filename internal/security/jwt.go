// Package security issues and verifies user tokens and hashes API keys.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/order-checkout/internal/domain/auth"
)

var _ auth.TokenParser = (*JWTService)(nil)

// JWTService signs and verifies HS256 user tokens carrying the user id in the
// "id" claim.
type JWTService struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTService returns a JWTService. A zero expiration issues tokens without
// an expiry.
func NewJWTService(secret string, expiration time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		expiration: expiration,
	}
}

type jwtClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// GenerateToken issues a token for userID.
func (s *JWTService) GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.expiration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expiration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry of token and returns its
// claims. Any failure is reported as auth.ErrInvalidToken.
func (s *JWTService) ParseToken(token string) (*auth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(auth.ErrInvalidToken, err.Error())
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: claims.UserID}, nil
}

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper, the form API
// keys are stored in.
func HashAPIKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
