package api

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier checks a bearer token and returns its subject claim.
type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}

// HMACVerifier verifies HS256-signed tokens with a shared secret — enough
// for a single-operator control plane; a multi-tenant deployment would
// swap this for RS256 and a key set, which jwt/v5 supports the same way.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier builds a verifier for HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

// Verify implements TokenVerifier.
func (v *HMACVerifier) Verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("token missing subject")
	}
	return sub, nil
}
