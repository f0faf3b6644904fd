package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"foodpay/internal/database"
)

// NewRouter wires the payment endpoints. The webhook and the method catalog
// are unauthenticated; everything else requires a bearer token, refunds an
// admin one.
func NewRouter(h *PaymentHandler, jwtSecret string, db database.Service) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.GET("/health", func(c *gin.Context) {
		stats := db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	p := r.Group("/payments")
	p.POST("/webhook/gateway", h.Webhook)
	p.GET("/methods", h.Methods)

	authed := p.Group("", AuthRequired(jwtSecret))
	authed.POST("/initiate", h.Initiate)
	authed.POST("/charge", h.Charge)
	authed.POST("/cash", h.Cash)
	authed.GET("/status/:transactionId", h.Status)
	authed.GET("/history", h.History)

	admin := p.Group("", AuthRequired(jwtSecret), AdminRequired())
	admin.POST("/refund", h.Refund)

	return r
}
