package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/openbiocard/openbiocard-backend/api/responses"
	"github.com/openbiocard/openbiocard-backend/api/validators"
	"github.com/openbiocard/openbiocard-backend/internal/identity"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

// UsernameHeader names the account a bearer token belongs to.
const UsernameHeader = "X-Username"

type authenticator interface {
	Authenticate(ctx context.Context, username, token string) (*identity.Principal, error)
}

// Auth resolves the bearer token for the X-Username account and seeds the
// request context with the principal.
func Auth(auth authenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.ParseBearer(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			username := strings.TrimSpace(r.Header.Get(UsernameHeader))
			if username == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			principal, err := auth.Authenticate(r.Context(), username, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), *principal)
			if logg != nil {
				ctx = logg.WithUsername(ctx, principal.Username)
				ctx = logg.WithActorRole(ctx, string(principal.Type))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
