// controllers/commission_admin_controller.go
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
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hadialmais/lynqmarket_backend/middleware"
	"github.com/hadialmais/lynqmarket_backend/models"
	"github.com/hadialmais/lynqmarket_backend/repositories"
	"github.com/hadialmais/lynqmarket_backend/services"
	"github.com/hadialmais/lynqmarket_backend/websocket"
)

const commissionStatsCacheKey = "commission:stats"
const commissionStatsCacheTTL = 5 * time.Minute

// CommissionAdminController exposes the admin side of the commission
// negotiation: responding to offers (singly or in bulk), filtered listings
// and the dashboard aggregation.
type CommissionAdminController struct {
	Engine *services.NegotiationService
	Redis  *redis.Client
	Hub    *websocket.Hub
}

func NewCommissionAdminController(engine *services.NegotiationService, redisClient *redis.Client, hub *websocket.Hub) *CommissionAdminController {
	return &CommissionAdminController{Engine: engine, Redis: redisClient, Hub: hub}
}

// Respond applies the admin's accept, reject or counter decision to one
// commission
func (cac *CommissionAdminController) Respond(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	adminID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	commissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission ID format",
		})
	}

	var req models.AdminCommissionResponseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Action must be accept, reject or counter",
		})
	}

	commission, err := cac.Engine.AdminRespond(ctx, commissionID, adminID, req.Action, req.CounterPercentage, req.Notes)
	if err != nil {
		return commissionErrorResponse(c, err)
	}

	cac.invalidateStatsCache(ctx)

	if cac.Hub != nil {
		if err := cac.Hub.NotifyCommissionUpdate(commission.ManagerID, commission); err != nil {
			log.Printf("Failed to notify manager %s of commission update: %v", commission.ManagerID.Hex(), err)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission response recorded successfully",
		Data:    commission,
	})
}

// BulkRespond applies one decision to many commissions; per-item outcomes
// are reported instead of failing the whole batch
func (cac *CommissionAdminController) BulkRespond(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	adminID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	var req models.BulkAdminCommissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Commission IDs and action are required",
		})
	}

	results := cac.Engine.BulkAdminRespond(ctx, req.CommissionIDs, adminID, req.Action, req.CounterPercentage, req.Notes)

	cac.invalidateStatsCache(ctx)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Bulk commission response processed",
		Data:    map[string]interface{}{"results": results},
	})
}

// GetAll lists commissions with optional status, type, manager, service and
// percentage range filters
func (cac *CommissionAdminController) GetAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := repositories.CommissionFilter{
		Status: c.QueryParam("status"),
		Type:   c.QueryParam("type"),
	}

	if managerHex := c.QueryParam("managerId"); managerHex != "" {
		managerID, err := primitive.ObjectIDFromHex(managerHex)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid manager ID format",
			})
		}
		filter.ManagerID = &managerID
	}

	if serviceHex := c.QueryParam("serviceId"); serviceHex != "" {
		serviceID, err := primitive.ObjectIDFromHex(serviceHex)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid service ID format",
			})
		}
		filter.ServiceID = &serviceID
	}

	if minStr := c.QueryParam("minPercentage"); minStr != "" {
		min, err := strconv.ParseFloat(minStr, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid minPercentage value",
			})
		}
		filter.MinPercentage = &min
	}

	if maxStr := c.QueryParam("maxPercentage"); maxStr != "" {
		max, err := strconv.ParseFloat(maxStr, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid maxPercentage value",
			})
		}
		filter.MaxPercentage = &max
	}

	commissions, err := cac.Engine.List(ctx, filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve commissions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved successfully",
		Data:    commissions,
	})
}

// GetPending lists manager offers awaiting an admin decision
func (cac *CommissionAdminController) GetPending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	commissions, err := cac.Engine.ListPendingAdminReview(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve pending commissions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Pending commissions retrieved successfully",
		Data:    commissions,
	})
}

// GetOne returns a single commission with its negotiation history
func (cac *CommissionAdminController) GetOne(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	commissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission ID format",
		})
	}

	commission, err := cac.Engine.Get(ctx, commissionID)
	if err != nil {
		return commissionErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission retrieved successfully",
		Data:    commission,
	})
}

// GetStats returns the commission dashboard aggregation, cached briefly in
// Redis since it scans the whole collection
func (cac *CommissionAdminController) GetStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cac.Redis != nil {
		if cached, err := cac.Redis.Get(ctx, commissionStatsCacheKey).Result(); err == nil {
			var stats services.CommissionStats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return c.JSON(http.StatusOK, models.Response{
					Status:  http.StatusOK,
					Message: "Commission statistics retrieved successfully",
					Data:    stats,
				})
			}
		}
	}

	stats, err := cac.Engine.Stats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve commission statistics",
		})
	}

	if cac.Redis != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := cac.Redis.Set(ctx, commissionStatsCacheKey, payload, commissionStatsCacheTTL).Err(); err != nil {
				log.Printf("Failed to cache commission stats: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission statistics retrieved successfully",
		Data:    stats,
	})
}

func (cac *CommissionAdminController) invalidateStatsCache(ctx context.Context) {
	if cac.Redis == nil {
		return
	}
	if err := cac.Redis.Del(ctx, commissionStatsCacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate commission stats cache: %v", err)
	}
}
