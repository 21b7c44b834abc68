// Package auth verifies the gateway's JWT bearer tokens and maps
// verification failures to the exact status/body pairs the original
// gateway returns.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a gateway bearer token: subject,
// expiry (unix seconds), and tenant identifier.
type Claims struct {
	Subject  string
	TenantID string
	Expiry   int64
}

// Error is a verification failure with its corresponding HTTP status
// and the exact response body the original gateway returns for it.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string { return e.Body }

var (
	// ErrMissingHeader is returned when no Authorization header is present.
	ErrMissingHeader = &Error{Status: 401, Body: "Missing authorization header"}
	// ErrInvalidToken is returned when the header isn't a well-formed bearer token.
	ErrInvalidToken = &Error{Status: 401, Body: "Invalid token"}
	// ErrDecodeError is returned when the token fails signature/claims validation.
	ErrDecodeError = &Error{Status: 401, Body: "Token decode error"}
)

// Verifier validates HS256 bearer tokens against a fixed decoding key.
type Verifier struct {
	key []byte
}

// NewVerifier builds a Verifier from the configured JWT decoding key.
func NewVerifier(decodingKey string) *Verifier {
	return &Verifier{key: []byte(decodingKey)}
}

// Verify extracts and validates the bearer token carried by an
// Authorization header value, returning the decoded Claims or one of
// the sentinel *Error values above. whitelisted bypasses verification
// entirely and returns the synthetic empty claims §4.5 specifies.
func (v *Verifier) Verify(authorizationHeader string, whitelisted bool) (*Claims, error) {
	if whitelisted {
		return &Claims{}, nil
	}
	if authorizationHeader == "" {
		return nil, ErrMissingHeader
	}
	if !strings.HasPrefix(authorizationHeader, "Bearer ") {
		return nil, ErrInvalidToken
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authorizationHeader, "Bearer "))
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, ErrDecodeError
	}

	return claimsFromMap(claims), nil
}

func claimsFromMap(m jwt.MapClaims) *Claims {
	c := &Claims{}
	if sub, ok := m["sub"].(string); ok {
		c.Subject = sub
	}
	if tenant, ok := m["tenant_id"].(string); ok {
		c.TenantID = tenant
	}
	if exp, ok := m["exp"].(float64); ok {
		c.Expiry = int64(exp)
	}
	return c
}
