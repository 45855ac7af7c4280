package controllers

import (
	"net/http"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/middlewares"
	"sparepart-marketplace/models"
	"sparepart-marketplace/repositories"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	api OrderAPI
}

func NewOrderController(api OrderAPI) *OrderController {
	return &OrderController{api: api}
}

// Create handles POST /api/orders: validate the cart, write the aggregate
// atomically, return 201 with the created order or 422 with every failing
// field.
func (ctl *OrderController) Create(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("create", success)
	}()

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  false,
			"message": "Malformed request body",
		})
		return
	}

	order, err := ctl.api.PlaceOrder(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  true,
		"message": "Order created successfully",
		"data":    order,
	})
}

// List handles GET /api/orders. Filters: from_date, to_date, shop_id,
// status, paid. The item filters are existential: an order matches when any
// of its items does.
func (ctl *OrderController) List(c *gin.Context) {
	defer func() {
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("list", success)
	}()

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	verr := apperrors.NewValidationError()
	filter := repositories.OrderFilter{
		From:   parseDateQuery(c, "from_date", verr),
		To:     parseDateQuery(c, "to_date", verr),
		ShopID: parseIDQuery(c, "shop_id", verr),
		Status: parseStatusQuery(c, "status", verr),
		Paid:   parseBoolQuery(c, "paid", verr),
	}
	if verr.HasErrors() {
		writeError(c, verr)
		return
	}

	orders, err := ctl.api.ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  true,
		"message": "Orders retrieved successfully",
		"result":  orders,
	})
}
