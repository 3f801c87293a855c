package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/dkoval/identity-service/internal/auth"
	"github.com/dkoval/identity-service/internal/domain"
	"github.com/dkoval/identity-service/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the authenticated user stored by the
// Authenticate middleware, or nil if the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(identityKey).(*domain.User)
	return user
}

// Authenticate resolves the Authorization header to a user and stores it in
// the request context. Two schemes are supported: Bearer (a signed token) and
// Basic (identifier:password). When the header carries a Bearer credential it
// is used even if it fails; there is no fallthrough from one scheme to the
// other. Requests without a usable credential get 401 with a WWW-Authenticate
// challenge naming the scheme that failed.
func Authenticate(svc *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			scheme, credential, found := strings.Cut(header, " ")
			if !found {
				writeUnauthorized(w, "Bearer", "missing or malformed authorization header")
				return
			}

			var (
				user      *domain.User
				err       error
				challenge string
			)
			switch strings.ToLower(scheme) {
			case "bearer":
				challenge = "Bearer"
				user, err = svc.AuthenticateToken(r.Context(), strings.TrimSpace(credential))
			case "basic":
				challenge = "Basic"
				identifier, secret, parseErr := auth.ParseBasicAuth(header)
				if parseErr != nil {
					writeUnauthorized(w, "Basic", "invalid basic authorization header")
					return
				}
				user, err = svc.AuthenticateBasic(r.Context(), identifier, secret)
			default:
				writeUnauthorized(w, "Bearer", "unsupported authorization scheme")
				return
			}

			if err != nil {
				w.Header().Set("WWW-Authenticate", challenge)
				writeAppError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose authenticated user lacks the superuser
// flag. It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := IdentityFromContext(r.Context())
		if user == nil {
			writeUnauthorized(w, "Bearer", "user not authenticated")
			return
		}
		if !user.IsSuperuser {
			writeJSON(w, http.StatusForbidden, response{
				Error: &errorResponse{Code: "FORBIDDEN", Message: "administrator privileges required"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter, challenge, message string) {
	w.Header().Set("WWW-Authenticate", challenge)
	writeJSON(w, http.StatusUnauthorized, response{
		Error: &errorResponse{Code: "UNAUTHORIZED", Message: message},
	})
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string
	Environment    string
}

// CORS returns a middleware that sets Cross-Origin Resource Sharing headers.
// In development mode (or when AllowedOrigins contains "*"), a wildcard origin
// is used. In non-development modes, only the explicitly listed origins are
// allowed and the request Origin header is validated against the list.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowWildcard := cfg.Environment == "development"
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowWildcard = true
		}
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if allowWildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Correlation-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
