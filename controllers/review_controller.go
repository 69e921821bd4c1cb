// controllers/review_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hadialmais/lynqmarket_backend/config"
	"github.com/hadialmais/lynqmarket_backend/middleware"
	"github.com/hadialmais/lynqmarket_backend/models"
	"github.com/hadialmais/lynqmarket_backend/utils"
)

// ReviewController handles service reviews and the rating aggregate kept on
// each service document
type ReviewController struct {
	DB *mongo.Client
}

func NewReviewController(db *mongo.Client) *ReviewController {
	return &ReviewController{DB: db}
}

// CreateReview posts a review, one per user per service
func (rc *ReviewController) CreateReview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	var req models.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Rating must be between 1 and 5",
		})
	}

	serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
		})
	}

	servicesColl := config.GetCollection(rc.DB, "services")
	var service models.Service
	err = servicesColl.FindOne(ctx, bson.M{"_id": serviceID}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Service not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve service",
		})
	}

	reviewsColl := config.GetCollection(rc.DB, "reviews")

	count, err := reviewsColl.CountDocuments(ctx, bson.M{"serviceId": serviceID, "userId": userID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check existing reviews",
		})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "You have already reviewed this service",
		})
	}

	review := models.Review{
		ServiceID: serviceID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   utils.SanitizeInput(req.Comment),
		CreatedAt: time.Now(),
	}

	result, err := reviewsColl.InsertOne(ctx, review)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create review",
		})
	}
	review.ID = result.InsertedID.(primitive.ObjectID)

	rc.recalculateServiceRating(ctx, serviceID)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Review posted successfully",
		Data:    review,
	})
}

// GetServiceReviews returns all reviews of a service, newest first
func (rc *ReviewController) GetServiceReviews(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serviceID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
		})
	}

	reviewsColl := config.GetCollection(rc.DB, "reviews")
	cursor, err := reviewsColl.Find(ctx, bson.M{"serviceId": serviceID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve reviews",
		})
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode reviews",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reviews retrieved successfully",
		Data:    reviews,
	})
}

// ReplyToReview lets the owning manager answer a review once
func (rc *ReviewController) ReplyToReview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	managerID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	reviewID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid review ID",
		})
	}

	var req models.ReviewReplyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Reply text is required",
		})
	}

	reviewsColl := config.GetCollection(rc.DB, "reviews")
	var review models.Review
	err = reviewsColl.FindOne(ctx, bson.M{"_id": reviewID}).Decode(&review)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Review not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve review",
		})
	}

	// Only the manager owning the reviewed service may reply
	servicesColl := config.GetCollection(rc.DB, "services")
	var service models.Service
	err = servicesColl.FindOne(ctx, bson.M{"_id": review.ServiceID}).Decode(&service)
	if err != nil || service.ManagerID != managerID {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You can only reply to reviews of your own services",
		})
	}

	now := time.Now()
	_, err = reviewsColl.UpdateOne(ctx, bson.M{"_id": reviewID}, bson.M{"$set": bson.M{
		"reply":     utils.SanitizeInput(req.Reply),
		"repliedAt": now,
	}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save reply",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reply posted successfully",
	})
}

// DeleteReview removes a review; allowed for its author or an admin
func (rc *ReviewController) DeleteReview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}
	callerID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	reviewID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid review ID",
		})
	}

	reviewsColl := config.GetCollection(rc.DB, "reviews")
	var review models.Review
	err = reviewsColl.FindOne(ctx, bson.M{"_id": reviewID}).Decode(&review)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Review not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve review",
		})
	}

	if review.UserID != callerID && claims.UserType != models.UserTypeAdmin {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You can only delete your own reviews",
		})
	}

	_, err = reviewsColl.DeleteOne(ctx, bson.M{"_id": reviewID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete review",
		})
	}

	rc.recalculateServiceRating(ctx, review.ServiceID)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Review deleted successfully",
	})
}

// recalculateServiceRating recomputes the rating aggregate on the service
// document from the reviews collection
func (rc *ReviewController) recalculateServiceRating(ctx context.Context, serviceID primitive.ObjectID) {
	reviewsColl := config.GetCollection(rc.DB, "reviews")

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"serviceId": serviceID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := reviewsColl.Aggregate(ctx, pipeline)
	if err != nil {
		return
	}
	defer cursor.Close(ctx)

	rating := 0.0
	count := 0
	var agg []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cursor.All(ctx, &agg); err == nil && len(agg) > 0 {
		rating = agg[0].Avg
		count = agg[0].Count
	}

	servicesColl := config.GetCollection(rc.DB, "services")
	servicesColl.UpdateOne(ctx, bson.M{"_id": serviceID}, bson.M{"$set": bson.M{
		"rating":      rating,
		"ratingCount": count,
		"updatedAt":   time.Now(),
	}})
}
