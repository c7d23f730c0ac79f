package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/lu123321/counseling-app/config"
	"github.com/lu123321/counseling-app/internal/mw"
	"github.com/lu123321/counseling-app/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.EventStore, clients ClientDirectory, sessions SessionService, webpushOptions *webpush.Options, loc *time.Location) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, clients, sessions, webpushOptions, loc)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), 5)

	// Derived calendar views are safe to cache briefly; mutations go
	// through uncached routes.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/calendar/month", caching, handler.GetMonthView)
		api.GET("/calendar/day", caching, handler.GetDayView)

		api.POST("/events", handler.CreateEvent)
		api.GET("/events/:id", handler.GetEvent)
		api.PATCH("/events/:id", handler.UpdateEvent)
		api.DELETE("/events/:id", handler.DeleteEvent)
		api.POST("/events/:id/status", handler.TransitionStatus)
		api.POST("/events/:id/session", handler.ConvertToSession)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
