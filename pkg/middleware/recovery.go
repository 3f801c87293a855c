package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery converts panics in downstream handlers into JSON 500 responses so
// one bad request cannot take the service down. The panic value and stack are
// logged; the client only ever sees a generic error in the same enveloped
// shape the handlers use.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				cause := recover()
				if cause == nil {
					return
				}

				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", cause),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				writePanicResponse(w, l)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writePanicResponse(w http.ResponseWriter, l *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	body := map[string]map[string]string{
		"error": {
			"code":    "INTERNAL_ERROR",
			"message": "an internal error occurred",
		},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		l.Error("failed to encode panic response", slog.String("error", err.Error()))
	}
}
