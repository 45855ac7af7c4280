package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/models"

	"go.uber.org/zap"
)

// OrderRepository owns all writes to the order aggregate: the order row, its
// items, and their append-only status history.
type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger.Named("order_repository")}
}

// Place persists an order with its items and their initial pending statuses
// as one serializable transaction. Either the whole aggregate is written or
// nothing is.
func (r *OrderRepository) Place(ctx context.Context, order *models.Order) (*models.Order, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "begin placement", Err: err}
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	result, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, total_amount, created_at, updated_at) VALUES (?, ?, ?, ?)",
		order.UserID, order.TotalAmount, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, r.rollback(tx, "insert order", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, r.rollback(tx, "read order id", err)
	}
	order.ID = orderID

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = orderID
		item.CreatedAt = now
		item.UpdatedAt = now

		itemResult, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, spare_part_id, quantity, price, paid, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			item.OrderID, item.SparePartID, item.Quantity, item.Price, item.Paid, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return nil, r.rollback(tx, "insert order item", err)
		}

		itemID, err := itemResult.LastInsertId()
		if err != nil {
			return nil, r.rollback(tx, "read order item id", err)
		}
		item.ID = itemID

		statusResult, err := tx.ExecContext(ctx,
			"INSERT INTO order_item_statuses (order_item_id, status, created_at) VALUES (?, ?, ?)",
			itemID, models.StatusPending, now,
		)
		if err != nil {
			return nil, r.rollback(tx, "insert initial status", err)
		}

		statusID, err := statusResult.LastInsertId()
		if err != nil {
			return nil, r.rollback(tx, "read status id", err)
		}
		item.Statuses = []models.OrderItemStatus{{
			ID:          statusID,
			OrderItemID: itemID,
			Status:      models.StatusPending,
			CreatedAt:   now,
		}}
	}

	if err := tx.Commit(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "commit placement", Err: err}
	}

	r.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int("items", len(order.Items)))
	return order, nil
}

// AdvanceStatus appends a new status row after verifying the transition is
// legal from the item's latest status. History rows are never updated or
// removed.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, itemID int64, next models.Status) (*models.OrderItemStatus, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "begin status advance", Err: err}
	}

	var exists int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM order_items WHERE id = ? AND deleted_at IS NULL",
		itemID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, &apperrors.NotFoundError{Resource: "order item", ID: itemID}
	}
	if err != nil {
		return nil, r.rollback(tx, "load order item", err)
	}

	var current models.Status
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM order_item_statuses WHERE order_item_id = ? ORDER BY id DESC LIMIT 1 FOR UPDATE",
		itemID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		// Every item gets a pending row at creation; a missing history
		// means the aggregate invariant is broken.
		return nil, r.rollback(tx, "load current status", errors.New("order item has no status history"))
	}
	if err != nil {
		return nil, r.rollback(tx, "load current status", err)
	}

	if !current.CanTransitionTo(next) {
		tx.Rollback()
		return nil, &apperrors.StateError{From: string(current), To: string(next)}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		"INSERT INTO order_item_statuses (order_item_id, status, created_at) VALUES (?, ?, ?)",
		itemID, next, now,
	)
	if err != nil {
		return nil, r.rollback(tx, "append status", err)
	}

	statusID, err := result.LastInsertId()
	if err != nil {
		return nil, r.rollback(tx, "read status id", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "commit status advance", Err: err}
	}

	r.logger.Info("order item status advanced",
		zap.Int64("order_item_id", itemID),
		zap.String("from", string(current)),
		zap.String("to", string(next)))
	return &models.OrderItemStatus{
		ID:          statusID,
		OrderItemID: itemID,
		Status:      next,
		CreatedAt:   now,
	}, nil
}

// SoftDeleteItem tombstones an item. The row stays referenced by its order
// and status history; queries filter it out.
func (r *OrderRepository) SoftDeleteItem(ctx context.Context, itemID int64) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE order_items SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now(), time.Now(), itemID,
	)
	if err != nil {
		return &apperrors.PersistenceError{Op: "soft delete order item", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &apperrors.PersistenceError{Op: "soft delete order item", Err: err}
	}
	if affected == 0 {
		return &apperrors.NotFoundError{Resource: "order item", ID: itemID}
	}
	return nil
}

func (r *OrderRepository) rollback(tx *sql.Tx, op string, cause error) error {
	if err := tx.Rollback(); err != nil {
		r.logger.Error("rollback failed", zap.String("op", op), zap.Error(err))
	}
	return &apperrors.PersistenceError{Op: op, Err: cause}
}
