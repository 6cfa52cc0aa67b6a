package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS returns middleware allowing the configured frontend origin plus local
// development hosts.
func CORS(clientOrigin string) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:3000"}
	if trimmed := strings.TrimSpace(clientOrigin); trimmed != "" && trimmed != origins[0] {
		origins = append(origins, trimmed)
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
