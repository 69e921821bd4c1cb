package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hadialmais/lynqmarket_backend/config"
	"github.com/hadialmais/lynqmarket_backend/models"
	"github.com/hadialmais/lynqmarket_backend/utils"
)

const dashboardCacheKey = "admin:dashboard"

// AdminController handles user management and the platform dashboard
type AdminController struct {
	DB    *mongo.Client
	Redis *redis.Client
}

func NewAdminController(db *mongo.Client, redisClient *redis.Client) *AdminController {
	return &AdminController{DB: db, Redis: redisClient}
}

// GetDashboard returns platform-wide counts, cached for five minutes
func (ac *AdminController) GetDashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if ac.Redis != nil {
		if cached, err := ac.Redis.Get(ctx, dashboardCacheKey).Result(); err == nil {
			var data map[string]interface{}
			if json.Unmarshal([]byte(cached), &data) == nil {
				return c.JSON(http.StatusOK, models.Response{
					Status:  http.StatusOK,
					Message: "Dashboard retrieved successfully",
					Data:    data,
				})
			}
		}
	}

	usersColl := config.GetCollection(ac.DB, "users")
	servicesColl := config.GetCollection(ac.DB, "services")
	ordersColl := config.GetCollection(ac.DB, "orders")

	totalUsers, err := usersColl.CountDocuments(ctx, bson.M{"userType": models.UserTypeUser})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count users",
		})
	}
	totalManagers, err := usersColl.CountDocuments(ctx, bson.M{"userType": models.UserTypeManager})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count managers",
		})
	}
	activeUsers, err := usersColl.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count active users",
		})
	}
	totalServices, err := servicesColl.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count services",
		})
	}
	totalOrders, err := ordersColl.CountDocuments(ctx, bson.M{})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count orders",
		})
	}

	// Revenue over completed orders
	revenue := 0.0
	cursor, err := ordersColl.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": models.OrderStatusCompleted}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$total"}}}},
	})
	if err == nil {
		var agg []struct {
			Total float64 `bson:"total"`
		}
		if cursor.All(ctx, &agg) == nil && len(agg) > 0 {
			revenue = agg[0].Total
		}
	}

	data := map[string]interface{}{
		"totalUsers":    totalUsers,
		"totalManagers": totalManagers,
		"activeUsers":   activeUsers,
		"totalServices": totalServices,
		"totalOrders":   totalOrders,
		"totalRevenue":  revenue,
	}

	if ac.Redis != nil {
		if encoded, err := json.Marshal(data); err == nil {
			if err := ac.Redis.Set(ctx, dashboardCacheKey, encoded, 5*time.Minute).Err(); err != nil {
				log.Printf("Failed to cache dashboard: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Dashboard retrieved successfully",
		Data:    data,
	})
}

// ListUsers returns users filtered by type, paginated
func (ac *AdminController) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if userType := c.QueryParam("userType"); userType != "" {
		filter["userType"] = userType
	}
	if search := c.QueryParam("search"); search != "" {
		sanitized := utils.SanitizeInput(search)
		filter["$or"] = []bson.M{
			{"fullName": bson.M{"$regex": sanitized, "$options": "i"}},
			{"email": bson.M{"$regex": sanitized, "$options": "i"}},
		}
	}

	page := 1
	if pageStr := c.QueryParam("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	limit := 20
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	collection := config.GetCollection(ac.DB, "users")

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count users",
		})
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"password": 0})

	cursor, err := collection.Find(ctx, filter, findOptions)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve users",
		})
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode users",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Users retrieved successfully",
		Data: map[string]interface{}{
			"users": users,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// GetUser returns one user by id
func (ac *AdminController) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	collection := config.GetCollection(ac.DB, "users")
	var user models.User
	err = collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "User not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve user",
		})
	}
	user.Password = ""

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User retrieved successfully",
		Data:    user,
	})
}

// SetUserActive activates or deactivates an account
func (ac *AdminController) SetUserActive(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "isActive flag is required",
		})
	}

	collection := config.GetCollection(ac.DB, "users")
	result, err := collection.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"isActive": *req.IsActive, "updatedAt": time.Now()}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update user",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	ac.invalidateDashboardCache()

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User status updated successfully",
	})
}

// DeleteUser removes an account and deactivates any listings it owns
func (ac *AdminController) DeleteUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	collection := config.GetCollection(ac.DB, "users")
	result, err := collection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete user",
		})
	}
	if result.DeletedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	servicesColl := config.GetCollection(ac.DB, "services")
	_, err = servicesColl.UpdateMany(ctx, bson.M{"managerId": userID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}})
	if err != nil {
		log.Printf("Failed to deactivate services of deleted user %s: %v", userID.Hex(), err)
	}

	ac.invalidateDashboardCache()

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User deleted successfully",
	})
}

func (ac *AdminController) invalidateDashboardCache() {
	if ac.Redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ac.Redis.Del(ctx, dashboardCacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate dashboard cache: %v", err)
	}
}
