package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"farmtrack-backend/config"
	"farmtrack-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// Devices report often; they are not rate limited per IP.
		api.POST("/iot/telemetry", h.PostTelemetry)

		cron := api.Group("/cron", mw.BearerSecret(cfg.CronSecret))
		cron.GET("/close-sessions", h.CloseSessions)
		cron.POST("/close-sessions", h.CloseSessions)

		public := api.Group("", rateLimiter)
		public.GET("/iot/telemetry", h.GetTelemetry)
		public.GET("/iot/status", h.GetMachineStatus)
		public.GET("/leaderboard", caching, h.GetLeaderboard)
		public.POST("/panchayats/:id/score", mw.Invalidate(cacheStore), h.PostPanchayatScore)
		public.GET("/admin/live-events", h.GetLiveEvents)
		public.GET("/admin/utilization-audit", h.GetUtilizationAudit)

		public.GET("/subscriptions", h.GetSubscription)
		public.PUT("/subscriptions", h.PutSubscription)
		public.DELETE("/subscriptions", h.DeleteSubscription)
		public.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
