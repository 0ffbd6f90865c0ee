package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gatehouse-id/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-id/gatehouse/internal/shared"
)

// Middleware authenticates bearer tokens and attaches the principal to
// the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAuth rejects requests without a valid, unrevoked bearer token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		user, err := m.Service.VerifyToken(r.Context(), raw)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", rejectionDetail(err))
			return
		}
		principal := &shared.Principal{
			ID:       user.ID,
			Email:    user.Email,
			RoleName: user.RoleName,
			Token:    raw,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// rejectionDetail maps verification failures to client-safe messages.
// Token contents and signing material never appear here.
func rejectionDetail(err error) string {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		switch tokenErr.Kind {
		case TokenExpired:
			return "token expired"
		case TokenRevoked:
			return "token revoked"
		}
	}
	return "invalid token"
}
