package middleware

import (
	"net/http"

	"vitrin-be/internal/identity"
)

// Auth validates the bearer token and loads its claims into the request
// context. Requests without a valid token pass through unauthenticated;
// handlers that require identity reject them downstream.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := identity.ExtractBearer(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := identity.ParseToken(tokenStr, secret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := identity.SetUserContext(r.Context(), claims.UserID, claims.StoreID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
