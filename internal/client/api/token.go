package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired reports whether the bearer token carries an exp claim in the
// past. The signature is NOT verified; only the server can do that. A token
// that does not parse, or carries no exp claim, is treated as live and left
// for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
