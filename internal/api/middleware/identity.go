package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/api/shared"
)

// UserIDHeader carries the caller's identity, supplied by the fronting
// gateway that terminates authentication.
const UserIDHeader = "X-User-ID"

// IdentityMiddleware extracts the authenticated user ID from the request
// header and stores it in the context. Requests without a valid user ID are
// rejected before reaching the handlers.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get(UserIDHeader))
		if err != nil || userID == uuid.Nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing or invalid user identity")
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
