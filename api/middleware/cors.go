package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"https://pennyekart.com",
	"https://admin.pennyekart.com",
}

// CORS applies the storefront origin policy. Extra origins come from config.
func CORS(extra ...string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   append(append([]string{}, defaultCORSOrigins...), extra...),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
