package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hadialmais/lynqmarket_backend/controllers"
	"github.com/hadialmais/lynqmarket_backend/middleware"
	"github.com/hadialmais/lynqmarket_backend/websocket"
)

// RegisterUserRoutes sets up the catalog, cart, order, review and chat routes
func RegisterUserRoutes(e *echo.Echo, db *mongo.Client, userController *controllers.UserController, hub *websocket.Hub) {
	cartController := controllers.NewCartController(db)
	orderController := controllers.NewOrderController(db, hub)
	reviewController := controllers.NewReviewController(db)
	chatController := controllers.NewChatController(db, hub)
	categoryController := controllers.NewCategoryController(db)

	// Public catalog browsing
	e.GET("/api/categories", categoryController.GetCategories)

	// Protected routes group
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())
	r.Use(middleware.ActivityTracker(db))

	// Profile
	r.GET("/users/profile", userController.GetProfile)
	r.PUT("/users/profile", userController.UpdateProfile)
	r.POST("/users/change-password", userController.ChangePassword)
	r.POST("/upload-profile-photo", userController.UploadProfilePhoto)

	// Cart
	r.GET("/cart", cartController.GetCart)
	r.POST("/cart", cartController.AddToCart)
	r.PUT("/cart", cartController.UpdateCartItem)
	r.DELETE("/cart", cartController.ClearCart)
	r.POST("/cart/checkout", cartController.Checkout)

	// Orders
	r.GET("/orders", orderController.GetMyOrders)
	r.GET("/orders/:id", orderController.GetOrder)
	r.PUT("/orders/:id/status", orderController.UpdateOrderStatus)

	// Reviews
	r.POST("/reviews", reviewController.CreateReview)
	r.POST("/reviews/:id/reply", reviewController.ReplyToReview, middleware.RequireUserType("manager"))
	r.DELETE("/reviews/:id", reviewController.DeleteReview)

	// Chat
	r.POST("/chat/messages", chatController.SendMessage)
	r.GET("/chat/conversations", chatController.GetConversations)
	r.GET("/chat/conversations/:id/messages", chatController.GetMessages)

	// WebSocket entry point; authentication can also happen in-band
	e.GET("/api/ws", chatController.HandleWebSocket)
}
