package middleware

import (
	"context"
	"net/http"
	"strings"

	"glowUpAPI/internal/logger"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

type contextKey string

const ClerkIDKey contextKey = "clerkID"

// verifyToken resolves a Clerk session token to its subject.
var verifyToken = func(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ClerkAuthMiddleware validates Clerk JWT tokens and puts the subject in the
// request context. Websocket handshakes may pass the token as ?token= since
// browsers cannot set headers on them.
func ClerkAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		subject, err := verifyToken(r.Context(), token)
		if err != nil {
			logger.Debug("token verification failed", "err", err)
			authRejections.WithLabelValues("invalid_token").Inc()
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClerkID(r.Context(), subject)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			return "", false
		}
		return token, true
	}

	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// WithClerkID stores the authenticated Clerk user ID in ctx.
func WithClerkID(ctx context.Context, clerkID string) context.Context {
	return context.WithValue(ctx, ClerkIDKey, clerkID)
}

// GetClerkID extracts Clerk user ID from context
func GetClerkID(ctx context.Context) (string, bool) {
	clerkID, ok := ctx.Value(ClerkIDKey).(string)
	return clerkID, ok && clerkID != ""
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"error": "` + message + `"}`))
}
