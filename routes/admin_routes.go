package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hadialmais/lynqmarket_backend/controllers"
	"github.com/hadialmais/lynqmarket_backend/middleware"
)

// RegisterAdminRoutes sets up user management, category management and the
// platform dashboard
func RegisterAdminRoutes(e *echo.Echo, db *mongo.Client, redisClient *redis.Client) {
	adminController := controllers.NewAdminController(db, redisClient)
	categoryController := controllers.NewCategoryController(db)

	a := e.Group("/api/admin")
	a.Use(middleware.JWTMiddleware())
	a.Use(middleware.ActivityTracker(db))
	a.Use(middleware.RequireUserType("admin"))

	a.GET("/dashboard", adminController.GetDashboard)

	a.GET("/users", adminController.ListUsers)
	a.GET("/users/:id", adminController.GetUser)
	a.PUT("/users/:id/active", adminController.SetUserActive)
	a.DELETE("/users/:id", adminController.DeleteUser)

	a.POST("/categories", categoryController.CreateCategory)
	a.PUT("/categories/:id", categoryController.UpdateCategory)
	a.DELETE("/categories/:id", categoryController.DeleteCategory)
}
