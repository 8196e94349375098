package api

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vocdoni/zk-census/types"
)

type callerKey struct{}

// NewAdminToken returns a JWT identifying the holder of key, valid for ttl.
// The subject is the hex encoded public key.
func NewAdminToken(key ed25519.PrivateKey, ttl time.Duration) (string, error) {
	id, err := types.IdentityFromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(key)
}

// ParseAdminToken verifies a token minted by NewAdminToken and returns the
// identity of its subject. The token must be signed by the subject key and
// not expired. Whether the identity is the census admin is decided by the
// ledger.
func ParseAdminToken(raw string) (types.Identity, error) {
	var caller types.Identity
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		sub, err := t.Claims.GetSubject()
		if err != nil {
			return nil, err
		}
		if caller, err = types.IdentityFromHex(sub); err != nil {
			return nil, fmt.Errorf("invalid subject: %w", err)
		}
		return caller.PublicKey(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return types.Identity{}, err
	}
	return caller, nil
}

// adminAuth is the middleware of the admin endpoints. It rejects requests
// without a valid bearer token and stores the caller identity in the request
// context.
func adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			ErrInvalidToken.With("missing bearer token").Write(w)
			return
		}
		caller, err := ParseAdminToken(raw)
		if err != nil {
			ErrInvalidToken.WithErr(err).Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// caller returns the identity authenticated by adminAuth.
func caller(r *http.Request) types.Identity {
	id, _ := r.Context().Value(callerKey{}).(types.Identity)
	return id
}
