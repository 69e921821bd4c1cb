package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hadialmais/lynqmarket_backend/controllers"
	"github.com/hadialmais/lynqmarket_backend/middleware"
	"github.com/hadialmais/lynqmarket_backend/services"
)

// RegisterManagerRoutes sets up the service catalog routes. Browsing is
// public, listing management is restricted to managers.
func RegisterManagerRoutes(e *echo.Echo, db *mongo.Client, engine *services.NegotiationService) {
	serviceController := controllers.NewServiceController(db, engine)
	orderController := controllers.NewOrderController(db, nil)

	// Public catalog
	e.GET("/api/services", serviceController.ListServices)
	e.GET("/api/services/:id", serviceController.GetService)
	e.GET("/api/services/:id/reviews", controllers.NewReviewController(db).GetServiceReviews)

	// Manager-only listing management
	m := e.Group("/api/manager")
	m.Use(middleware.JWTMiddleware())
	m.Use(middleware.ActivityTracker(db))
	m.Use(middleware.RequireUserType("manager"))

	m.POST("/services", serviceController.CreateService)
	m.GET("/services", serviceController.GetMyServices)
	m.PUT("/services/:id", serviceController.UpdateService)
	m.DELETE("/services/:id", serviceController.DeleteService)
	m.POST("/services/:id/images", serviceController.UploadServiceImage)

	m.GET("/orders", orderController.GetManagerOrders)
}
