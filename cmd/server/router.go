package main

import (
	"context"
	"net/http"
	"slices"
	"time"

	"account_service/internal/handler"
	"account_service/internal/metrics"
	"account_service/internal/middleware"
	"account_service/internal/service"
	"account_service/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	auth    service.AuthService
	users   service.UserService
	jwt     *utils.JWTUtil
	metrics *metrics.Metrics
	db      Pinger
	log     *zap.Logger

	allowedOrigins []string
	tokenRate      float64
	tokenBurst     int
}

func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.log))
	router.Use(d.metrics.Middleware())
	router.Use(cors.New(corsConfig(d.allowedOrigins)))

	authHandler := handler.NewAuthHandler(d.auth, d.log)
	userHandler := handler.NewUserHandler(d.users, d.log)

	tokenLimit := middleware.RateLimitPerIP(d.tokenRate, d.tokenBurst, 10_000, time.Hour)
	authHandler.RegisterAuthRoutes(&router.RouterGroup, tokenLimit)
	userHandler.RegisterUserRoutes(&router.RouterGroup,
		middleware.JWTAuthMiddleware(d.jwt),
		middleware.ActiveUserMiddleware(d.auth, d.log),
	)

	router.GET("/health", func(c *gin.Context) {
		if err := d.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length", "WWW-Authenticate"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
