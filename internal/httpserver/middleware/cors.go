package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/chatrelay/internal/config"
)

// CORS answers preflight requests and sets the CORS headers of every response.
// The request and trace ids are exposed so browser clients can report them.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return passthrough
	}

	c := cors.New(cors.Options{
		AllowedOrigins:       cfg.AllowedOrigins,
		AllowedMethods:       cfg.AllowedMethods,
		AllowedHeaders:       cfg.AllowedHeaders,
		ExposedHeaders:       []string{requestIDHeader, traceIDHeader},
		AllowCredentials:     cfg.AllowCredentials,
		MaxAge:               cfg.MaxAge,
		OptionsSuccessStatus: http.StatusNoContent,
	})

	return c.Handler
}
