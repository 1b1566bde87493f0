package auth

import (
	"fmt"
	"net/http"
	"strings"

	"relay-lab/errors"
)

// TokenVerifier validates bearer tokens and resolves them to a stable
// identity. It is the relay-side consumer of the identity system; a
// connection presenting a token it rejects is refused outright.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify returns the identity bound to tokenString, or ErrAuthentication.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.ErrAuthentication
	}
	claims, err := ValidateToken(v.secret, tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrAuthentication, err)
	}
	if claims.UserID == "" {
		return "", errors.ErrAuthentication
	}
	return claims.UserID, nil
}

// ExtractToken retrieves the credential presented on a websocket upgrade.
// Browsers cannot set headers on websocket dials, so the token query
// parameter is accepted alongside the standard Authorization header.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		// Expecting the standard "Bearer <token>" format
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
