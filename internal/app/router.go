package app

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prompthub.io/prompthub/internal/api/handlers"
	"prompthub.io/prompthub/internal/api/middleware"
	"prompthub.io/prompthub/internal/config"
	"prompthub.io/prompthub/internal/metrics"
	"prompthub.io/prompthub/internal/pkg/logger"
)

// defaultAllowedOrigins are the local UI dev servers.
var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

func newRouter(cfg *config.Config, server *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		cors.New(buildCORSConfig(cfg)),
		middleware.RequestID(),
		middleware.AccessLog(),
		metrics.PrometheusMiddleware(),
		middleware.ErrorHandler(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	server.RegisterHealthRoutes(router)

	api := router.Group("/", middleware.MustOpenAPIValidator(""))
	if key := strings.TrimSpace(cfg.Security.JWTSigningKey); key != "" {
		api.Use(middleware.JWTAuth(middleware.JWTConfig{
			SigningKey: []byte(key),
			Issuer:     middleware.DefaultIssuer,
		}))
	} else {
		logger.Warn("security.jwt_signing_key is not set, template changes are attributed to the default actor")
	}
	server.RegisterRoutes(api)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{Error: "route not found", Code: "ROUTE_NOT_FOUND"})
	})
	return router
}

// buildCORSConfig turns the server settings into a cors.Config. A "*"
// origin is honoured only with server.unsafe_allow_all_origins, which also
// disables credentials.
func buildCORSConfig(cfg *config.Config) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false
		return cc
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	cc.AllowOrigins = origins
	return cc
}
