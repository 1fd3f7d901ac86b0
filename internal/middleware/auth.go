package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"wego-server/internal/auth"
	"wego-server/internal/shared/cookies"
	"wego-server/internal/shared/errors"
	"wego-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthCookieName carries the player token for browser clients, which
// cannot set headers on websocket upgrades.
const AuthCookieName = cookies.AuthCookieName

type TokenValidator interface {
	ValidateJWT(token string) (*auth.Claims, error)
}

type Authenticator struct {
	validator TokenValidator
}

func NewAuthenticator(validator TokenValidator) *Authenticator {
	return &Authenticator{validator: validator}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing JWT authentication")

		token := tokenFromRequest(r)
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := a.validator.ValidateJWT(token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		ctx := WithClaims(r.Context(), claims)
		logger.Debug("JWT authentication successful", "player_id", claims.PlayerID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromRequest(r *http.Request) string {
	if token := BearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// BearerToken returns the token of an "Authorization: Bearer" header, or ""
// when the request has none.
func BearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
