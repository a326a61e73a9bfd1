package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// ErrInvalidToken indicates the session token failed validation. Forged,
// expired, and malformed tokens are all reported identically.
var ErrInvalidToken = errors.New("invalid token")
