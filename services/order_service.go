package services

import (
	"context"
	"fmt"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/models"
	"sparepart-marketplace/notifications"
	"sparepart-marketplace/repositories"

	"go.uber.org/zap"
)

// Actor is the authenticated caller, passed explicitly into every operation.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsVendor() bool {
	return a.Role == models.RoleVendor
}

// OrderStore is the write side of the order aggregate.
type OrderStore interface {
	Place(ctx context.Context, order *models.Order) (*models.Order, error)
	AdvanceStatus(ctx context.Context, itemID int64, next models.Status) (*models.OrderItemStatus, error)
	SoftDeleteItem(ctx context.Context, itemID int64) error
}

// OrderReader is the filterable read side.
type OrderReader interface {
	ListOrders(ctx context.Context, f repositories.OrderFilter) ([]models.OrderView, error)
	ListOrderItems(ctx context.Context, f repositories.OrderItemFilter) ([]models.OrderItemView, error)
}

// Catalog is the read-only reference data the placement validation needs.
type Catalog interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	MissingSpareParts(ctx context.Context, ids []int64) ([]int64, error)
	ShopIDsForSpareParts(ctx context.Context, ids []int64) ([]int64, error)
}

type OrderService struct {
	store      OrderStore
	reader     OrderReader
	catalog    Catalog
	dispatcher notifications.Dispatcher
	logger     *zap.Logger
}

func NewOrderService(store OrderStore, reader OrderReader, catalog Catalog, dispatcher notifications.Dispatcher, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:      store,
		reader:     reader,
		catalog:    catalog,
		dispatcher: dispatcher,
		logger:     logger.Named("order_service"),
	}
}

// PlaceOrder validates the cart, persists the aggregate atomically, and
// fans out post-commit notifications. Every validation violation is
// collected before the request is rejected; no write happens on failure.
// The submitted total_amount is stored as-is, it is not recomputed from the
// line items.
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, req models.PlaceOrderRequest) (*models.Order, error) {
	verr := apperrors.NewValidationError()

	if req.UserID <= 0 {
		verr.Add("user_id", "is required")
	} else {
		exists, err := s.catalog.UserExists(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if !exists {
			verr.Add("user_id", "does not reference an existing user")
		}
	}

	if len(req.OrderItems) == 0 {
		verr.Add("order_items", "must contain at least one item")
	}

	partIDs := make([]int64, 0, len(req.OrderItems))
	for i, item := range req.OrderItems {
		if item.ID <= 0 {
			verr.Add(fmt.Sprintf("order_items.%d.id", i), "is required")
		} else {
			partIDs = append(partIDs, item.ID)
		}
		if item.Quantity < 1 {
			verr.Add(fmt.Sprintf("order_items.%d.quantity", i), "must be at least 1")
		}
		if item.Price < 0 {
			verr.Add(fmt.Sprintf("order_items.%d.price", i), "must not be negative")
		}
	}

	if len(partIDs) > 0 {
		missing, err := s.catalog.MissingSpareParts(ctx, partIDs)
		if err != nil {
			return nil, err
		}
		missingSet := make(map[int64]bool, len(missing))
		for _, id := range missing {
			missingSet[id] = true
		}
		for i, item := range req.OrderItems {
			if missingSet[item.ID] {
				verr.Add(fmt.Sprintf("order_items.%d.id", i), "does not reference an existing spare part")
			}
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}

	order := &models.Order{
		UserID:      req.UserID,
		TotalAmount: req.TotalAmount,
		Items:       make([]models.OrderItem, len(req.OrderItems)),
	}
	for i, item := range req.OrderItems {
		order.Items[i] = models.OrderItem{
			SparePartID: item.ID,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	placed, err := s.store.Place(ctx, order)
	if err != nil {
		return nil, err
	}

	s.notifyOrderCreated(ctx, placed, partIDs)
	return placed, nil
}

// notifyOrderCreated publishes the customer event and one vendor event per
// distinct shop in the cart. The order is committed by now; failures are
// logged and swallowed.
func (s *OrderService) notifyOrderCreated(ctx context.Context, order *models.Order, partIDs []int64) {
	if err := s.dispatcher.CustomerOrderCreated(ctx, order); err != nil {
		s.logger.Error("failed to publish customer order created event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}

	shopIDs, err := s.catalog.ShopIDsForSpareParts(ctx, partIDs)
	if err != nil {
		s.logger.Error("failed to resolve shops for vendor notifications",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	for _, shopID := range shopIDs {
		if err := s.dispatcher.VendorOrderCreated(ctx, order, shopID); err != nil {
			s.logger.Error("failed to publish vendor order created event",
				zap.Int64("order_id", order.ID), zap.Int64("shop_id", shopID), zap.Error(err))
		}
	}
}

// ListOrders applies the caller's filters; non-admin actors only ever see
// their own orders.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, f repositories.OrderFilter) ([]models.OrderView, error) {
	if !actor.IsAdmin() {
		owner := actor.UserID
		f.OwnerUserID = &owner
	}
	return s.reader.ListOrders(ctx, f)
}

// ListOrderItems applies the caller's filters; non-admin actors are
// restricted to items of orders they own.
func (s *OrderService) ListOrderItems(ctx context.Context, actor Actor, f repositories.OrderItemFilter) ([]models.OrderItemView, error) {
	if !actor.IsAdmin() {
		owner := actor.UserID
		f.OwnerUserID = &owner
	}
	return s.reader.ListOrderItems(ctx, f)
}

// AdvanceItemStatus moves an item through the fulfillment machine:
// pending -> approved|declined, approved -> complete. Vendors and admins
// only; the initial pending status is never set through this path.
func (s *OrderService) AdvanceItemStatus(ctx context.Context, actor Actor, itemID int64, status string) (*models.OrderItemStatus, error) {
	if !actor.IsAdmin() && !actor.IsVendor() {
		return nil, &apperrors.AuthorizationError{Reason: "only vendors and admins may change item status"}
	}

	next, ok := models.ParseStatus(status)
	if !ok {
		verr := apperrors.NewValidationError()
		verr.Add("status", "must be one of pending, approved, declined, complete")
		return nil, verr
	}

	return s.store.AdvanceStatus(ctx, itemID, next)
}

// RemoveItem soft-deletes an order item. Admin only.
func (s *OrderService) RemoveItem(ctx context.Context, actor Actor, itemID int64) error {
	if !actor.IsAdmin() {
		return &apperrors.AuthorizationError{Reason: "only admins may remove order items"}
	}
	return s.store.SoftDeleteItem(ctx, itemID)
}
