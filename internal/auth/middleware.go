package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Clark-Hu/movielens-api/internal/domain"
	"github.com/Clark-Hu/movielens-api/internal/logging"
)

type contextKey string

const identityContextKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying who.
func WithIdentity(ctx context.Context, who domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, who)
}

// IdentityFrom returns the caller stored in ctx, or domain.Anonymous.
func IdentityFrom(ctx context.Context) domain.Identity {
	who, ok := ctx.Value(identityContextKey).(domain.Identity)
	if !ok {
		return domain.Anonymous
	}
	return who
}

// Identify resolves the bearer token of every request. A missing or invalid
// token leaves the request anonymous; rejecting it is up to the route.
func (m *Manager) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Msg("ignoring invalid bearer token")
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithIdentity(r.Context(), domain.Identity{UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
