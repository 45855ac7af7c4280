package controllers

import (
	"net/http"
	"strconv"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/middlewares"
	"sparepart-marketplace/repositories"

	"github.com/gin-gonic/gin"
)

type OrderItemController struct {
	api OrderAPI
}

func NewOrderItemController(api OrderAPI) *OrderItemController {
	return &OrderItemController{api: api}
}

// List handles GET /api/order_items. Filters: start_date, end_date,
// shop_id, spare_part_id, status, paid — each applied to the item itself.
// Non-admin callers only see items of their own orders.
func (ctl *OrderItemController) List(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("list_items", success)
	}()

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	verr := apperrors.NewValidationError()
	filter := repositories.OrderItemFilter{
		From:        parseDateQuery(c, "start_date", verr),
		To:          parseDateQuery(c, "end_date", verr),
		ShopID:      parseIDQuery(c, "shop_id", verr),
		SparePartID: parseIDQuery(c, "spare_part_id", verr),
		Status:      parseStatusQuery(c, "status", verr),
		Paid:        parseBoolQuery(c, "paid", verr),
	}
	if verr.HasErrors() {
		writeError(c, verr)
		return
	}

	items, err := ctl.api.ListOrderItems(c.Request.Context(), actor, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Order items retrieved successfully",
		"result":  items,
	})
}

// UpdateStatus handles PUT /api/order_items/:id/status. Legal transitions
// append to the item's status history; illegal ones are rejected and the
// history is left untouched.
func (ctl *OrderItemController) UpdateStatus(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("update_item_status", success)
	}()

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itemID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  false,
			"message": "Invalid order item ID",
		})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  false,
			"message": "Malformed request body",
		})
		return
	}

	status, err := ctl.api.AdvanceItemStatus(c.Request.Context(), actor, itemID, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Order item status updated",
		"data":    status,
	})
}

// Delete handles DELETE /api/order_items/:id. The item is tombstoned, not
// removed; its order and status history keep referencing it.
func (ctl *OrderItemController) Delete(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("delete_item", success)
	}()

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itemID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  false,
			"message": "Invalid order item ID",
		})
		return
	}

	if err := ctl.api.RemoveItem(c.Request.Context(), actor, itemID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Order item deleted",
	})
}
