package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
)

type Handlers struct {
	Orders   *OrderHandler
	Tracking *TrackingHandler
	Catalog  *CatalogHandler
	Tokens   *TokenHandler
}

func NewRouter(h Handlers, authz *Authz, lg logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RecoveryMiddleware(lg), MetricsMiddleware(), LoggingMiddleware(lg), CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/token", h.Tokens.IssueToken)

		api.POST("/orders", h.Orders.CreateOrder)
		api.GET("/orders", h.Orders.GetOrder)
		api.PUT("/orders/:id", h.Orders.UpdateOrder)
		api.POST("/orders/:id/cancel", h.Orders.CancelOrder)
		api.GET("/orders/:id/history", h.Tracking.GetOrderHistory)
		api.POST("/manager/orders", h.Orders.CreateManagerOrder)
		api.GET("/hr/orders", h.Orders.ListOrganizationOrders)

		api.GET("/menu", h.Catalog.GetMenu)
		api.GET("/dates", h.Catalog.GetDates)
		api.GET("/payments/:id", h.Tracking.GetPaymentStatus)

		api.GET("/kitchen/summary", authz.Require(PermKitchenRead), h.Catalog.GetKitchenSummary)
	}

	return r
}
