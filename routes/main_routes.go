package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hadialmais/lynqmarket_backend/controllers"
	"github.com/hadialmais/lynqmarket_backend/services"
	"github.com/hadialmais/lynqmarket_backend/websocket"
)

// SetupRoutes configures all API routes by calling individual route
// registration functions
func SetupRoutes(e *echo.Echo, db *mongo.Client, redisClient *redis.Client, hub *websocket.Hub, engine *services.NegotiationService) {
	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)

	RegisterAuthRoutes(e, db, authController)
	RegisterUserRoutes(e, db, userController, hub)
	RegisterManagerRoutes(e, db, engine)
	RegisterCommissionRoutes(e, db, redisClient, hub, engine)
	RegisterAdminRoutes(e, db, redisClient)
	RegisterFileRoutes(e)
}
