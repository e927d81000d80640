package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"hcda/config"
)

func SetupCORS(cfg config.CORSConfig) gin.HandlerFunc {
	methods := []string{"GET", "POST", "OPTIONS"}
	headers := []string{"Origin", "Content-Type", RequestIDHeader}

	var origins []string
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    methods,
			AllowHeaders:    headers,
			ExposeHeaders:   []string{"Content-Length", "Content-Disposition", RequestIDHeader},
			MaxAge:          12 * time.Hour,
		})
	}

	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  methods,
		AllowHeaders:  headers,
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}
