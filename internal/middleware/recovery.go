package middleware

import (
	"net/http"

	"arcstore-api/pkg/apierror"

	"go.uber.org/zap"
)

// NewRecovery returns a middleware that turns panics into a 500 response.
func NewRecovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered",
						zap.Any("panic", rec),
						RequestIDField(r.Context()),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"),
					)

					writeError(w, apierror.InternalError("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
