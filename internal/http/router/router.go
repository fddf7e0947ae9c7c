package router

import (
	"github.com/gin-gonic/gin"

	"aicheckr.app/mentions/internal/http/handler/webhook"
)

func SetupRoutes(router *gin.Engine, meta *webhook.MetaWebhookHandler) {
	// Unrouted methods on known paths must come back 405, not 404.
	router.HandleMethodNotAllowed = true

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/webhooks/instagram", meta.Verify)
	router.POST("/webhooks/instagram", meta.HandleEvent)
	router.OPTIONS("/webhooks/instagram", meta.Preflight)
}
