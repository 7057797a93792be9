// Package identity resolves the rate-limit subject for each request. The
// strongest credential wins: an API key identifies an integration, a bearer
// token identifies a user, and the client IP is the floor for anonymous
// traffic. Resolution is best-effort and never blocks a request: a malformed
// credential simply does not contribute, and the request degrades to the next
// subject down.
package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"turnstile/internal/models"
	platformMW "turnstile/internal/platform/middleware"
	dErrors "turnstile/pkg/domain-errors"
)

// APIKeyHeader carries the integration credential.
const APIKeyHeader = "X-API-Key"

// TokenClaims are the access-token claims the resolver understands. Tokens
// are issued by the upstream auth service; only the subject matters here.
type TokenClaims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Resolver derives a models.Identity from an incoming request.
type Resolver struct {
	signingKey []byte
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for credential-rejection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver. An empty signing key disables bearer-token
// subjects entirely; API keys and IPs still resolve.
func NewResolver(signingKey string, opts ...Option) *Resolver {
	r := &Resolver{
		signingKey: []byte(signingKey),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromRequest resolves the identity for a request. It always succeeds: the
// client IP is available on every request, so the returned identity is never
// zero.
func (r *Resolver) FromRequest(req *http.Request) models.Identity {
	apiKeyID := strings.TrimSpace(req.Header.Get(APIKeyHeader))
	userID := r.userIDFromBearer(req)
	ip := platformMW.ClientIP(req)

	identity, err := models.NewIdentity(apiKeyID, userID, ip)
	if err != nil {
		// Unreachable while ClientIP returns a non-empty string, but the
		// invariant belongs to models, not to us.
		identity = models.Identity{IP: req.RemoteAddr}
	}
	return identity
}

// userIDFromBearer extracts the user subject from a Bearer token. Invalid or
// expired tokens contribute nothing: authentication is the upstream gateway's
// job, and limiting an expired session by IP is strictly safer than refusing
// to limit it at all.
func (r *Resolver) userIDFromBearer(req *http.Request) string {
	if len(r.signingKey) == 0 {
		return ""
	}

	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return ""
	}

	claims, err := r.parseToken(token)
	if err != nil {
		r.logger.Debug("bearer token rejected, falling back to weaker subject",
			"error", err,
			"request_id", platformMW.GetRequestID(req.Context()),
		)
		return ""
	}

	if claims.UserID != "" {
		return claims.UserID
	}
	return claims.Subject
}

func (r *Resolver) parseToken(tokenString string) (*TokenClaims, error) {
	claims := new(TokenClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return r.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid token")
	}
	return claims, nil
}
