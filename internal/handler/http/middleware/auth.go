package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RevocationChecker reports whether a raw token was revoked at logout.
type RevocationChecker interface {
	IsTokenRevoked(token string) bool
}

// AuthRequired admits requests whose verified token is a live access token.
// It must run after jwtauth.Verifier.
func AuthRequired(revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if revocations != nil && revocations.IsTokenRevoked(jwtauth.TokenFromHeader(r)) {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
