// controllers/cart_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hadialmais/lynqmarket_backend/config"
	"github.com/hadialmais/lynqmarket_backend/models"
	"github.com/hadialmais/lynqmarket_backend/utils"
)

// CartController manages the caller's cart, one cart per user
type CartController struct {
	DB *mongo.Client
}

func NewCartController(db *mongo.Client) *CartController {
	return &CartController{DB: db}
}

// GetCart returns the caller's cart, empty if none exists yet
func (cc *CartController) GetCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	collection := config.GetCollection(cc.DB, "carts")
	var cart models.Cart
	err = collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			cart = models.Cart{UserID: userID, Items: []models.CartItem{}}
		} else {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to retrieve cart",
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Cart retrieved successfully",
		Data:    cart,
	})
}

// AddToCart adds a service to the caller's cart or bumps its quantity
func (cc *CartController) AddToCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	var req models.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
		})
	}

	servicesColl := config.GetCollection(cc.DB, "services")
	var service models.Service
	err = servicesColl.FindOne(ctx, bson.M{"_id": serviceID, "isActive": true}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Service not found or inactive",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve service",
		})
	}

	cartsColl := config.GetCollection(cc.DB, "carts")
	var cart models.Cart
	err = cartsColl.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err != nil && err != mongo.ErrNoDocuments {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve cart",
		})
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ServiceID == serviceID {
			cart.Items[i].Quantity += req.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{
			ServiceID: serviceID,
			ManagerID: service.ManagerID,
			Title:     service.Title,
			Price:     service.Price,
			Quantity:  req.Quantity,
		})
	}

	now := time.Now()
	_, err = cartsColl.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": cart.Items, "updatedAt": now}, "$setOnInsert": bson.M{"userId": userID}},
		options.Update().SetUpsert(true))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update cart",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Service added to cart",
		Data:    cart.Items,
	})
}

// UpdateCartItem changes a cart item's quantity; zero removes it
func (cc *CartController) UpdateCartItem(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	var req models.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
		})
	}

	cartsColl := config.GetCollection(cc.DB, "carts")
	var cart models.Cart
	err = cartsColl.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Cart not found",
		})
	}

	items := make([]models.CartItem, 0, len(cart.Items))
	found := false
	for _, item := range cart.Items {
		if item.ServiceID == serviceID {
			found = true
			if req.Quantity > 0 {
				item.Quantity = req.Quantity
				items = append(items, item)
			}
			continue
		}
		items = append(items, item)
	}
	if !found {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Service not in cart",
		})
	}

	_, err = cartsColl.UpdateOne(ctx, bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": items, "updatedAt": time.Now()}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update cart",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Cart updated successfully",
		Data:    items,
	})
}

// ClearCart empties the caller's cart
func (cc *CartController) ClearCart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	cartsColl := config.GetCollection(cc.DB, "carts")
	_, err = cartsColl.UpdateOne(ctx, bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to clear cart",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Cart cleared successfully",
	})
}

// Checkout turns the caller's cart into a pending order
func (cc *CartController) Checkout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	var req models.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	cartsColl := config.GetCollection(cc.DB, "carts")
	var cart models.Cart
	err = cartsColl.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err != nil || len(cart.Items) == 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Cart is empty",
		})
	}

	total := 0.0
	for _, item := range cart.Items {
		total += item.Price * float64(item.Quantity)
	}

	now := time.Now()
	order := models.Order{
		UserID:    userID,
		Items:     cart.Items,
		Total:     total,
		Status:    models.OrderStatusPending,
		Notes:     utils.SanitizeInput(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	ordersColl := config.GetCollection(cc.DB, "orders")
	result, err := ordersColl.InsertOne(ctx, order)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create order",
		})
	}
	order.ID = result.InsertedID.(primitive.ObjectID)

	// Empty the cart after a successful checkout
	_, err = cartsColl.UpdateOne(ctx, bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": now}})
	if err != nil {
		log.Printf("Failed to clear cart after checkout for user %s: %v", userID.Hex(), err)
	}

	// Confirmation email is best effort
	go func() {
		emailCtx, emailCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer emailCancel()

		var user models.User
		if err := config.GetCollection(cc.DB, "users").FindOne(emailCtx, bson.M{"_id": userID}).Decode(&user); err != nil {
			return
		}
		if err := utils.SendOrderConfirmation(user.Email, user.FullName, order.ID.Hex(), order.Total); err != nil {
			log.Printf("Failed to send order confirmation for %s: %v", order.ID.Hex(), err)
		}
	}()

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Order placed successfully",
		Data:    order,
	})
}
