package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// TokenHeader carries the session token for clients that cannot use cookies.
const TokenHeader = "X-Carline-Token"

var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS applies the dashboard origin policy. Credentials are allowed so the
// auth cookie travels with cross-origin requests.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{TokenHeader, "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
