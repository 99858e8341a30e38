package auth

import (
	"encoding/json"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// tokenExpiry reads the exp claim without verifying the signature; the
// server owns the key. Opaque tokens and tokens without exp never expire.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case json.Number:
		if v, err := exp.Int64(); err == nil {
			return time.Unix(v, 0)
		}
	}
	return time.Time{}
}
