package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

type ownerContextKey struct{}

func ownerFromContext(ctx context.Context) (domain.Owner, bool) {
	owner, ok := ctx.Value(ownerContextKey{}).(domain.Owner)
	return owner, ok && owner.ID != ""
}

// SignToken issues an HS256 bearer token whose subject is the owner id.
func SignToken(subject string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// authMiddleware resolves the owner from a bearer JWT. The owner never
// comes from request bodies or query strings.
func authMiddleware(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := authenticate(parser, secret, r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "authenticate", err))
				return
			}
			ctx := context.WithValue(r.Context(), ownerContextKey{}, domain.Owner{ID: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(parser *jwt.Parser, secret []byte, header string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("authentication is not configured")
	}
	header = strings.TrimSpace(header)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return "", errors.New("missing bearer token")
	}

	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return "", errors.New("invalid token")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}
