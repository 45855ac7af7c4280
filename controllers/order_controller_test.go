package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/middlewares"
	"sparepart-marketplace/models"
	"sparepart-marketplace/repositories"
	"sparepart-marketplace/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	placeReq    models.PlaceOrderRequest
	placeResult *models.Order
	placeErr    error

	listActor   services.Actor
	orderFilter repositories.OrderFilter
	itemFilter  repositories.OrderItemFilter
	listErr     error

	advancedItem  int64
	advancedTo    string
	advanceResult *models.OrderItemStatus
	advanceErr    error

	removedItem int64
	removeErr   error
}

func (f *fakeAPI) PlaceOrder(_ context.Context, _ services.Actor, req models.PlaceOrderRequest) (*models.Order, error) {
	f.placeReq = req
	return f.placeResult, f.placeErr
}

func (f *fakeAPI) ListOrders(_ context.Context, actor services.Actor, filter repositories.OrderFilter) ([]models.OrderView, error) {
	f.listActor = actor
	f.orderFilter = filter
	return []models.OrderView{}, f.listErr
}

func (f *fakeAPI) ListOrderItems(_ context.Context, actor services.Actor, filter repositories.OrderItemFilter) ([]models.OrderItemView, error) {
	f.listActor = actor
	f.itemFilter = filter
	return []models.OrderItemView{}, f.listErr
}

func (f *fakeAPI) AdvanceItemStatus(_ context.Context, _ services.Actor, itemID int64, status string) (*models.OrderItemStatus, error) {
	f.advancedItem = itemID
	f.advancedTo = status
	return f.advanceResult, f.advanceErr
}

func (f *fakeAPI) RemoveItem(_ context.Context, _ services.Actor, itemID int64) error {
	f.removedItem = itemID
	return f.removeErr
}

func testIdentity(userID int64, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.ContextUserIDKey, userID)
		c.Set(middlewares.ContextRoleKey, role)
		c.Next()
	}
}

func newRouter(api OrderAPI, userID int64, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(testIdentity(userID, role))

	orders := NewOrderController(api)
	items := NewOrderItemController(api)
	r.POST("/api/orders", orders.Create)
	r.GET("/api/orders", orders.List)
	r.GET("/api/order_items", items.List)
	r.PUT("/api/order_items/:id/status", items.UpdateStatus)
	r.DELETE("/api/order_items/:id", items.Delete)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateOrderReturns201WithAggregate(t *testing.T) {
	api := &fakeAPI{placeResult: &models.Order{ID: 11, UserID: 7, TotalAmount: 45000}}
	r := newRouter(api, 7, models.RoleVehicleOwner)

	w := doJSON(t, r, http.MethodPost, "/api/orders", models.PlaceOrderRequest{
		UserID:      7,
		TotalAmount: 45000,
		OrderItems: []models.PlaceOrderItem{
			{ID: 3, Quantity: 2, Price: 15000},
			{ID: 9, Quantity: 1, Price: 15000},
		},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["status"])
	require.Len(t, api.placeReq.OrderItems, 2)
	assert.Equal(t, int64(7), api.placeReq.UserID)
}

func TestCreateOrderValidationErrorEnvelope(t *testing.T) {
	verr := apperrors.NewValidationError()
	verr.Add("order_items", "must contain at least one item")
	api := &fakeAPI{placeErr: verr}
	r := newRouter(api, 7, models.RoleVehicleOwner)

	w := doJSON(t, r, http.MethodPost, "/api/orders", models.PlaceOrderRequest{UserID: 7})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["status"])
	fieldErrors, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fieldErrors, "order_items")
}

func TestCreateOrderMalformedBody(t *testing.T) {
	api := &fakeAPI{}
	r := newRouter(api, 7, models.RoleVehicleOwner)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderPersistenceErrorHidesDetail(t *testing.T) {
	api := &fakeAPI{placeErr: &apperrors.PersistenceError{Op: "insert order", Err: errors.New("deadlock on idx_orders")}}
	r := newRouter(api, 7, models.RoleVehicleOwner)

	w := doJSON(t, r, http.MethodPost, "/api/orders", models.PlaceOrderRequest{UserID: 7})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Internal server error", body["message"])
	assert.NotContains(t, w.Body.String(), "deadlock")
}

func TestListOrdersParsesFilters(t *testing.T) {
	api := &fakeAPI{}
	r := newRouter(api, 1, models.RoleAdmin)

	w := doJSON(t, r, http.MethodGet,
		"/api/orders?from_date=2026-01-01&to_date=2026-02-01&shop_id=5&status=pending&paid=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, api.orderFilter.From)
	require.NotNil(t, api.orderFilter.To)
	require.NotNil(t, api.orderFilter.ShopID)
	assert.Equal(t, int64(5), *api.orderFilter.ShopID)
	require.NotNil(t, api.orderFilter.Status)
	assert.Equal(t, models.StatusPending, *api.orderFilter.Status)
	require.NotNil(t, api.orderFilter.Paid)
	assert.True(t, *api.orderFilter.Paid)
}

func TestListOrdersRejectsBadFilterValues(t *testing.T) {
	api := &fakeAPI{}
	r := newRouter(api, 1, models.RoleAdmin)

	w := doJSON(t, r, http.MethodGet, "/api/orders?from_date=soon&status=shipped&paid=maybe", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	fieldErrors, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fieldErrors, "from_date")
	assert.Contains(t, fieldErrors, "status")
	assert.Contains(t, fieldErrors, "paid")
}

func TestListOrderItemsParsesFilters(t *testing.T) {
	api := &fakeAPI{}
	r := newRouter(api, 7, models.RoleVehicleOwner)

	w := doJSON(t, r, http.MethodGet,
		"/api/order_items?start_date=2026-01-01&end_date=2026-02-01&spare_part_id=3&paid=false", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), api.listActor.UserID)
	require.NotNil(t, api.itemFilter.SparePartID)
	assert.Equal(t, int64(3), *api.itemFilter.SparePartID)
	require.NotNil(t, api.itemFilter.Paid)
	assert.False(t, *api.itemFilter.Paid)
}

func TestUpdateStatusIllegalTransition(t *testing.T) {
	api := &fakeAPI{advanceErr: &apperrors.StateError{From: "pending", To: "complete"}}
	r := newRouter(api, 8, models.RoleVendor)

	w := doJSON(t, r, http.MethodPut, "/api/order_items/21/status", gin.H{"status": "complete"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, int64(21), api.advancedItem)
	assert.Equal(t, "complete", api.advancedTo)
}

func TestUpdateStatusSuccess(t *testing.T) {
	api := &fakeAPI{advanceResult: &models.OrderItemStatus{ID: 55, OrderItemID: 21, Status: models.StatusApproved}}
	r := newRouter(api, 8, models.RoleVendor)

	w := doJSON(t, r, http.MethodPut, "/api/order_items/21/status", gin.H{"status": "approved"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["status"])
}

func TestUpdateStatusBadItemID(t *testing.T) {
	api := &fakeAPI{}
	r := newRouter(api, 8, models.RoleVendor)

	w := doJSON(t, r, http.MethodPut, "/api/order_items/abc/status", gin.H{"status": "approved"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, api.advancedItem)
}

func TestDeleteItemForbiddenForNonAdmins(t *testing.T) {
	api := &fakeAPI{removeErr: &apperrors.AuthorizationError{Reason: "only admins may remove order items"}}
	r := newRouter(api, 8, models.RoleVendor)

	w := doJSON(t, r, http.MethodDelete, "/api/order_items/21", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteItemUnknownID(t *testing.T) {
	api := &fakeAPI{removeErr: &apperrors.NotFoundError{Resource: "order item", ID: 404}}
	r := newRouter(api, 1, models.RoleAdmin)

	w := doJSON(t, r, http.MethodDelete, "/api/order_items/404", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	orders := NewOrderController(&fakeAPI{})
	r.GET("/api/orders", orders.List)

	w := doJSON(t, r, http.MethodGet, "/api/orders", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
