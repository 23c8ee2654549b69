// Package common contains shared constants and sentinel errors used across
// Starfall client components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Business errors surfaced by the stub backend.
	ErrorNotFound              = errors.New("not found")
	ErrorInvalidUsernameFormat = errors.New("invalid username format")
	ErrorInvalidPasswordFormat = errors.New("invalid password format")
	ErrorUsernameAlreadyExists = errors.New("username already exists")
	ErrorInsufficientBalance   = errors.New("insufficient balance")
)
