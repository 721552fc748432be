package security

import (
	"net/http"
	"strings"
)

// RequireHTTPS : отклоняет запросы, пришедшие не по TLS.
// X-Forwarded-Proto учитывается для TLS, терминированного на прокси.
func RequireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.TLS == nil && !strings.EqualFold(request.Header.Get("X-Forwarded-Proto"), "https") {
			writeBearerError(writer, http.StatusForbidden, "invalid_request", "https required")
			return
		}
		next.ServeHTTP(writer, request)
	})
}
