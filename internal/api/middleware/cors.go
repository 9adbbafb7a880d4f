package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/osa911/enquiryd/internal/api/constants"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured frontend origins to call the API.
// A "*" entry (the default) allows any origin without credentials.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", constants.HeaderRequestID}
	config.ExposeHeaders = []string{
		constants.HeaderRequestID,
		"Retry-After",
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
	}
	config.MaxAge = 12 * time.Hour

	var origins []string
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			config.AllowAllOrigins = true
			origins = nil
			break
		}
		origins = append(origins, origin)
	}
	if !config.AllowAllOrigins {
		if len(origins) == 0 {
			config.AllowAllOrigins = true
		} else {
			config.AllowOrigins = origins
		}
	}

	return cors.New(config)
}
