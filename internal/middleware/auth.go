package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/josh-kwaku/acquisim/internal/auth"
	"github.com/josh-kwaku/acquisim/internal/domain"
	"github.com/josh-kwaku/acquisim/internal/handler"
	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/secret"
)

type systemAuthorizer interface {
	AuthorizeSystem(ctx context.Context, creds domain.Credentials) error
}

// SystemAuth guards operator routes with HTTP basic auth checked against the
// bank's system credentials.
func SystemAuth(authorizer systemAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="acquisim"`)
				handler.RespondAppError(w, handler.ErrMissingCredentials, nil)
				return
			}

			err := authorizer.AuthorizeSystem(r.Context(), domain.Credentials{
				Username: username,
				Password: secret.New(password),
			})
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrNotAuthorized):
				logging.FromContext(r.Context()).Warn("system auth rejected", "username", username)
				w.Header().Set("WWW-Authenticate", `Basic realm="acquisim"`)
				handler.RespondAppError(w, handler.ErrInvalidCredentials, nil)
				return
			default:
				handler.RespondDomainError(w, err)
				return
			}

			ctx := auth.ContextWithOperator(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
