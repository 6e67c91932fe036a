package auth

import "errors"

// ErrInvalidToken is returned for malformed, expired or forged user tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the end-user behind a request.
type Claims struct {
	UserID string
}

// TokenParser verifies a user token and returns its claims.
type TokenParser interface {
	ParseToken(token string) (*Claims, error)
}
