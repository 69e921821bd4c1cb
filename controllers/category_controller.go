package controllers

import (
	"context"
	"io"
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

// CategoryController manages the service categories. Writes are admin-only,
// reads are public.
type CategoryController struct {
	DB *mongo.Client
}

func NewCategoryController(db *mongo.Client) *CategoryController {
	return &CategoryController{DB: db}
}

// CreateCategory creates a new category with an optional logo upload
func (cc *CategoryController) CreateCategory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	categoryName := utils.SanitizeInput(c.FormValue("name"))
	if categoryName == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Category name is required",
		})
	}

	collection := config.GetCollection(cc.DB, "categories")

	var existingCategory models.Category
	err := collection.FindOne(ctx, bson.M{"name": categoryName}).Decode(&existingCategory)
	if err == nil {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Category with this name already exists",
		})
	}

	category := models.Category{
		Name:        categoryName,
		Description: utils.SanitizeInput(c.FormValue("description")),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	result, err := collection.InsertOne(ctx, category)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create category",
		})
	}
	category.ID = result.InsertedID.(primitive.ObjectID)

	// Handle logo upload if provided
	file, err := c.FormFile("logo")
	if err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusCreated, models.Response{
				Status:  http.StatusCreated,
				Message: "Category created successfully, but logo upload failed: " + err.Error(),
				Data:    category,
			})
		}
		defer src.Close()

		fileData, err := io.ReadAll(src)
		if err != nil {
			return c.JSON(http.StatusCreated, models.Response{
				Status:  http.StatusCreated,
				Message: "Category created successfully, but logo upload failed: " + err.Error(),
				Data:    category,
			})
		}

		logoURL, err := utils.UploadImage(fileData, file.Filename, "category")
		if err != nil {
			return c.JSON(http.StatusCreated, models.Response{
				Status:  http.StatusCreated,
				Message: "Category created successfully, but logo upload failed: " + err.Error(),
				Data:    category,
			})
		}

		_, err = collection.UpdateOne(ctx, bson.M{"_id": category.ID},
			bson.M{"$set": bson.M{"logo": logoURL, "updatedAt": time.Now()}})
		if err == nil {
			category.Logo = logoURL
		}
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Category created successfully",
		Data:    category,
	})
}

// GetCategories returns all categories
func (cc *CategoryController) GetCategories(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(cc.DB, "categories")
	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve categories",
		})
	}
	defer cursor.Close(ctx)

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode categories",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Categories retrieved successfully",
		Data:    categories,
	})
}

// UpdateCategory updates a category's name, description or logo
func (cc *CategoryController) UpdateCategory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid category ID",
		})
	}

	var req models.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	updateFields := bson.M{"updatedAt": time.Now()}
	if req.Name != "" {
		updateFields["name"] = utils.SanitizeInput(req.Name)
	}
	if req.Description != "" {
		updateFields["description"] = utils.SanitizeInput(req.Description)
	}
	if req.Logo != "" {
		updateFields["logo"] = req.Logo
	}

	collection := config.GetCollection(cc.DB, "categories")
	result, err := collection.UpdateOne(ctx, bson.M{"_id": categoryID}, bson.M{"$set": updateFields})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update category",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Category not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Category updated successfully",
	})
}

// DeleteCategory removes a category. Services keep their categoryId; the
// catalog treats a dangling category as uncategorized.
func (cc *CategoryController) DeleteCategory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid category ID",
		})
	}

	collection := config.GetCollection(cc.DB, "categories")
	result, err := collection.DeleteOne(ctx, bson.M{"_id": categoryID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete category",
		})
	}
	if result.DeletedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Category not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Category deleted successfully",
	})
}
