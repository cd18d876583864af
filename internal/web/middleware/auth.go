package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the client key
const APIKeyHeader = "X-API-Key"

// Authentication rejects requests whose X-API-Key header does not match
// key. An empty key lets every request through.
func Authentication(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
