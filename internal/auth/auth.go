// Package auth resolves the current user from a bearer token. Token
// issuance belongs to the external identity provider; linkhoard only
// verifies signatures and expiry.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linkhoard/linkhoard/internal/domain"
)

// Principal is the resolved identity attached to a request.
type Principal struct {
	UserID string
	Email  string
}

type ctxKey struct{}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext extracts the principal. The ok flag is false when the
// request never passed the auth middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Verifier validates HS256 bearer tokens minted by the identity
// provider.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier creates a verifier. issuer is optional; when set, the
// token's iss claim must match.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{secret: secret, issuer: issuer, now: time.Now}
}

// Verify parses and validates the token and returns the principal.
// Any defect (bad signature, expiry, missing subject) yields
// domain.ErrUnauthenticated; the cause is preserved for logging.
func (v *Verifier) Verify(tokenString string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return Principal{}, domain.ErrUnauthenticated
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}

	p := Principal{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	return p, nil
}
