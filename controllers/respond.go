package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/middlewares"
	"sparepart-marketplace/models"
	"sparepart-marketplace/repositories"
	"sparepart-marketplace/services"

	"github.com/gin-gonic/gin"
)

// OrderAPI is the service surface the controllers drive.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, actor services.Actor, req models.PlaceOrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, actor services.Actor, f repositories.OrderFilter) ([]models.OrderView, error)
	ListOrderItems(ctx context.Context, actor services.Actor, f repositories.OrderItemFilter) ([]models.OrderItemView, error)
	AdvanceItemStatus(ctx context.Context, actor services.Actor, itemID int64, status string) (*models.OrderItemStatus, error)
	RemoveItem(ctx context.Context, actor services.Actor, itemID int64) error
}

func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, userOK := c.Get(middlewares.ContextUserIDKey)
	role, roleOK := c.Get(middlewares.ContextRoleKey)
	if !userOK || !roleOK {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  false,
			"message": "User not authenticated",
		})
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID.(int64), Role: role.(string)}, true
}

// writeError maps a service error to its HTTP response.
func writeError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)

	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{
			"status":  false,
			"message": "Validation error",
			"errors":  verr.Fields,
		})
		return
	}

	message := "Internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	c.JSON(status, gin.H{
		"status":  false,
		"message": message,
	})
}

// Accepted date layouts for filter parameters.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDateQuery(c *gin.Context, key string, verr *apperrors.ValidationError) *time.Time {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	verr.Add(key, "must be a date (2006-01-02 or RFC 3339)")
	return nil
}

func parseIDQuery(c *gin.Context, key string, verr *apperrors.ValidationError) *int64 {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		verr.Add(key, "must be a positive integer")
		return nil
	}
	return &parsed
}

func parseBoolQuery(c *gin.Context, key string, verr *apperrors.ValidationError) *bool {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		verr.Add(key, "must be a boolean")
		return nil
	}
	return &parsed
}

func parseStatusQuery(c *gin.Context, key string, verr *apperrors.ValidationError) *models.Status {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	status, ok := models.ParseStatus(value)
	if !ok {
		verr.Add(key, "must be one of pending, approved, declined, complete")
		return nil
	}
	return &status
}
