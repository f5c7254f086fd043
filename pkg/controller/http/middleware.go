package http

import (
	"net/http"
	"strings"

	"github.com/gaprio/gaprio/pkg/domain/model/auth"
	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/gaprio/gaprio/pkg/utils/errutil"
	"github.com/gaprio/gaprio/pkg/utils/logging"
)

// AuthUseCase is the authenticator used by the HTTP surface
type AuthUseCase = usecase.AuthUseCaseInterface

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// authMiddleware resolves the principal of protected requests
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if authUC == nil {
				errutil.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			token := bearerToken(r)
			if token == "" && !authUC.IsNoAuthn() {
				errutil.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			principal, err := authUC.Authenticate(ctx, token)
			if err != nil {
				logging.From(ctx).Warn("authentication failed", "error", err.Error())
				errutil.WriteError(w, http.StatusUnauthorized, "Invalid authentication token")
				return
			}

			ctx = auth.ContextWithPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
