package router

import (
	"net/http"

	"delegate-portal/internal/cart"
	"delegate-portal/internal/handlers"
	"delegate-portal/internal/metrics"
	"delegate-portal/internal/middleware"
	"delegate-portal/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Orders    service.OrderService
	Payments  service.PaymentService
	Wallet    service.WalletService
	CartStore cart.Persister
	Tokens    middleware.TokenVerifier
	// Users, when set, records every authenticated caller locally.
	Users middleware.UserSyncer
	// AllowOrigins defaults to any origin.
	AllowOrigins []string
}

func Router(d Deps, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.GinMiddleware())

	origins := d.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	webhooks := handlers.NewWebhookHandler(d.Payments, log)
	r.POST("/webhooks/payhere", webhooks.PayHere)
	r.POST("/webhooks/cybersource", webhooks.CyberSource)

	cartH := handlers.NewCartHandler(d.CartStore, d.Orders, log)
	orderH := handlers.NewOrderHandler(d.Orders, d.Wallet, log)
	walletH := handlers.NewWalletHandler(d.Wallet, log)
	adminH := handlers.NewAdminHandler(d.Orders, d.Wallet, log)

	authChain := []gin.HandlerFunc{middleware.AuthRequired(d.Tokens, log)}
	if d.Users != nil {
		authChain = append(authChain, middleware.SyncUser(d.Users, log))
	}
	api := r.Group("/api/v1", authChain...)
	{
		api.GET("/cart", cartH.Get)
		api.POST("/cart/items", cartH.AddItem)
		api.PUT("/cart/items/quantity", cartH.UpdateQuantity)
		api.DELETE("/cart/items", cartH.RemoveItem)
		api.DELETE("/cart", cartH.Clear)
		api.POST("/cart/checkout", cartH.Checkout)

		api.POST("/orders", orderH.Create)
		api.GET("/orders", orderH.List)
		api.GET("/orders/:id", orderH.Get)
		api.POST("/orders/:id/pay-with-credit", orderH.PayWithCredit)

		api.GET("/wallet", walletH.Balance)
		api.GET("/wallet/transactions", walletH.Transactions)
	}

	admin := api.Group("/admin", middleware.AdminOnly())
	{
		admin.PATCH("/orders/:id/status", adminH.UpdateOrderStatus)
		admin.POST("/wallet/top-up", adminH.TopUp)
		admin.POST("/wallet/transfer", adminH.Transfer)
	}

	return r
}
