package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"talksphere/internal/httputil"
	"talksphere/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

// AuthMiddleware requires a bearer token and stores the caller's user id in
// the request context.
//
// Without a JWT secret the token itself is the user id, which is how the
// upstream identity provider hands out identities. With a secret the token
// must be an HS256 JWT carrying the id in "user_id" or "sub".
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			userID, code, err := resolveUserID(tokenString, jwtSecret)
			if err != nil {
				if code == model.CodeTokenExpired {
					httputil.WriteUnauthorizedWithCode(w, code, "Access token has expired")
					return
				}
				httputil.WriteUnauthorizedWithCode(w, code, "Invalid authentication token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuthMiddleware attaches the user id when a valid token is present
// and lets anonymous requests through unchanged.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := tokenFromRequest(r); tokenString != "" {
				if userID, _, err := resolveUserID(tokenString, jwtSecret); err == nil {
					r = r.WithContext(WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminChecker decides whether a user may perform moderation actions.
type AdminChecker interface {
	RequireAdmin(ctx context.Context, userID string) error
}

// RequireAdmin must run after AuthMiddleware. Non-admins get 403.
func RequireAdmin(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			if err := checker.RequireAdmin(r.Context(), userID); err != nil {
				if errors.Is(err, model.ErrNotAdmin) {
					httputil.WriteForbidden(w, "Admin privileges required")
					return
				}
				log.Printf("[ERROR] RequireAdmin: user=%s err=%v", userID, err)
				httputil.WriteInternalError(w, "Failed to check privileges")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or "" and false if not found
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// tokenFromRequest checks the Authorization header first, then falls back
// to the access_token cookie used by browsers.
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookie, err := r.Cookie("access_token"); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// resolveUserID maps a token to a user id, returning an error code for the
// response on failure.
func resolveUserID(tokenString, jwtSecret string) (string, string, error) {
	if jwtSecret == "" {
		return tokenString, "", nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", model.CodeTokenExpired, err
		}
		return "", model.CodeTokenInvalid, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", model.CodeTokenInvalid, jwt.ErrTokenInvalidClaims
	}

	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, "", nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, "", nil
	}
	return "", model.CodeTokenInvalid, jwt.ErrTokenInvalidClaims
}
