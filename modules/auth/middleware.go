package auth

import (
	"net/http"
	"strings"

	authsvc "github.com/uniserve/uniserve/svc/auth"
)

// RequireBearer verifies the Authorization header and installs the resolved
// principal into the request context. Requests without a valid access token
// are rejected with 401.
func RequireBearer(svc *authsvc.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondError(w, authsvc.ErrUnauthenticated)
				return
			}
			principal, err := svc.VerifyBearerToken(r.Context(), token)
			if err != nil {
				respondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authsvc.WithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
