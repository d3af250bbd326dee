package router

import (
	"fmt"
	"strings"

	"github.com/rifa-next/internal/cache"
	"github.com/rifa-next/internal/config"
	adminhandlers "github.com/rifa-next/internal/http/handlers/admin"
	publichandlers "github.com/rifa-next/internal/http/handlers/public"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter wires the HTTP surface.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.Z()
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rifa"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/raffles", publicHandler.ListRaffles)
		apiV1.GET("/raffles/:id", publicHandler.GetRaffle)
		apiV1.GET("/raffles/:id/availability", publicHandler.GetRaffleAvailability)
		apiV1.GET("/raffles/:id/quote", publicHandler.QuoteRaffle)

		apiV1.POST("/checkout",
			RateLimitMiddleware(redisClient, checkoutRule, KeyByIP),
			publicHandler.CreateCheckout)
		apiV1.GET("/orders/:order_no", publicHandler.GetOrder)
		apiV1.GET("/payments/flow/status", publicHandler.FlowPaymentStatus)

		// Payment providers call back here. The paths must stay in
		// step with the URLs registered on checkout.
		apiV1.POST("/webhooks/mercadopago", publicHandler.MercadoPagoWebhook)
		apiV1.POST("/webhooks/flow", publicHandler.FlowWebhook)

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login",
				RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")),
				adminHandler.Login)

			authed := admin.Group("")
			authed.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authed.GET("/raffles", adminHandler.ListRaffles)
				authed.POST("/raffles", adminHandler.CreateRaffle)
				authed.GET("/raffles/:id", adminHandler.GetRaffle)
				authed.PUT("/raffles/:id", adminHandler.UpdateRaffle)
				authed.DELETE("/raffles/:id", adminHandler.DeleteRaffle)
				authed.POST("/raffles/:id/tiers", adminHandler.AddTier)
				authed.DELETE("/raffles/:id/tiers/:tier_id", adminHandler.RemoveTier)
				authed.POST("/raffles/:id/giveaway", adminHandler.GrantGiveaway)

				authed.GET("/coupons", adminHandler.ListCoupons)
				authed.POST("/coupons", adminHandler.CreateCoupon)
				authed.PUT("/coupons/:id", adminHandler.UpdateCoupon)
				authed.DELETE("/coupons/:id", adminHandler.DeleteCoupon)

				authed.PUT("/inventory/stock", adminHandler.SetStock)
				authed.GET("/inventory/:id/availability", adminHandler.GetAvailability)

				authed.GET("/orders", adminHandler.ListOrders)
				authed.GET("/orders/:id", adminHandler.GetOrder)
				authed.POST("/orders/:id/cancel", adminHandler.CancelOrder)

				authed.GET("/payments", adminHandler.ListPayments)
			}
		}
	}

	return r
}
