package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hadialmais/lynqmarket_backend/controllers"
	"github.com/hadialmais/lynqmarket_backend/middleware"
	"github.com/hadialmais/lynqmarket_backend/services"
	"github.com/hadialmais/lynqmarket_backend/websocket"
)

// RegisterCommissionRoutes sets up both sides of the commission negotiation
func RegisterCommissionRoutes(e *echo.Echo, db *mongo.Client, redisClient *redis.Client, hub *websocket.Hub, engine *services.NegotiationService) {
	commissionController := controllers.NewCommissionController(engine)
	adminController := controllers.NewCommissionAdminController(engine, redisClient, hub)

	// Manager side
	m := e.Group("/api/manager/commissions")
	m.Use(middleware.JWTMiddleware())
	m.Use(middleware.ActivityTracker(db))
	m.Use(middleware.RequireUserType("manager"))

	m.POST("", commissionController.SubmitOffer)
	m.GET("", commissionController.GetMyCommissions)
	m.GET("/summary", commissionController.GetSummary)
	m.GET("/:id", commissionController.GetCommission)
	m.POST("/:id/respond", commissionController.RespondToCounter)

	// Admin side
	a := e.Group("/api/admin/commissions")
	a.Use(middleware.JWTMiddleware())
	a.Use(middleware.ActivityTracker(db))
	a.Use(middleware.RequireUserType("admin"))

	a.GET("", adminController.GetAll)
	a.GET("/pending", adminController.GetPending)
	a.GET("/stats", adminController.GetStats)
	a.GET("/:id", adminController.GetOne)
	a.POST("/:id/respond", adminController.Respond)
	a.POST("/bulk-respond", adminController.BulkRespond)
}
