package notification

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the REST endpoints. protected must already run
// JWTAuth; admin must additionally require the admin role.
func RegisterRoutes(protected, admin *gin.RouterGroup, handler *Handler) {
	notifGroup := protected.Group("/notifications")
	{
		notifGroup.GET("", handler.GetNotifications)
		notifGroup.GET("/unread-count", handler.GetUnreadCount)
		notifGroup.PATCH("/:id/read", handler.MarkAsRead)
		notifGroup.POST("/read-all", handler.MarkAllAsRead)
		notifGroup.DELETE("/:id", handler.DeleteNotification)
		notifGroup.POST("/test", handler.SendTestNotification)
	}

	admin.POST("/notifications", handler.CreateNotification)
}

// RegisterWSRoutes mounts the live session socket.
func RegisterWSRoutes(ws *gin.RouterGroup, handler *WSHandler) {
	ws.GET("/notifications", handler.Serve)
}
