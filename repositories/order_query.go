package repositories

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"sparepart-marketplace/apperrors"
	"sparepart-marketplace/models"

	"go.uber.org/zap"
)

// OrderFilter selects orders. From/To bound orders.created_at; the item
// predicates are existential, so an order matches when ANY of its live items
// satisfies each supplied predicate independently.
type OrderFilter struct {
	From        *time.Time
	To          *time.Time
	ShopID      *int64
	Status      *models.Status
	Paid        *bool
	OwnerUserID *int64
}

// OrderItemFilter selects items directly: every predicate applies to the
// item itself, not to its siblings. The shop is the item's spare part's shop.
type OrderItemFilter struct {
	From        *time.Time
	To          *time.Time
	ShopID      *int64
	SparePartID *int64
	Status      *models.Status
	Paid        *bool
	OwnerUserID *int64
}

// OrderQueries is the read side: filter composition plus eager assembly of
// the nested item, spare-part, shop, unit, image, and status-history detail.
type OrderQueries struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderQueries(db *sql.DB, logger *zap.Logger) *OrderQueries {
	return &OrderQueries{db: db, logger: logger.Named("order_queries")}
}

func orderConditions(f OrderFilter) ([]string, []any) {
	var conditions []string
	var args []any

	if f.OwnerUserID != nil {
		conditions = append(conditions, "o.user_id = ?")
		args = append(args, *f.OwnerUserID)
	}
	if f.From != nil {
		conditions = append(conditions, "o.created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conditions = append(conditions, "o.created_at <= ?")
		args = append(args, *f.To)
	}
	if f.ShopID != nil {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM order_items oi JOIN spare_parts sp ON sp.id = oi.spare_part_id WHERE oi.order_id = o.id AND oi.deleted_at IS NULL AND sp.shop_id = ?)")
		args = append(args, *f.ShopID)
	}
	if f.Status != nil {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM order_items oi JOIN order_item_statuses ois ON ois.order_item_id = oi.id WHERE oi.order_id = o.id AND oi.deleted_at IS NULL AND ois.status = ?)")
		args = append(args, string(*f.Status))
	}
	if f.Paid != nil {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.deleted_at IS NULL AND oi.paid = ?)")
		args = append(args, *f.Paid)
	}
	return conditions, args
}

func itemConditions(f OrderItemFilter) ([]string, []any) {
	conditions := []string{"oi.deleted_at IS NULL"}
	var args []any

	if f.OwnerUserID != nil {
		conditions = append(conditions, "o.user_id = ?")
		args = append(args, *f.OwnerUserID)
	}
	if f.From != nil {
		conditions = append(conditions, "oi.created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conditions = append(conditions, "oi.created_at <= ?")
		args = append(args, *f.To)
	}
	if f.ShopID != nil {
		conditions = append(conditions, "sp.shop_id = ?")
		args = append(args, *f.ShopID)
	}
	if f.SparePartID != nil {
		conditions = append(conditions, "oi.spare_part_id = ?")
		args = append(args, *f.SparePartID)
	}
	if f.Status != nil {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM order_item_statuses ois WHERE ois.order_item_id = oi.id AND ois.status = ?)")
		args = append(args, string(*f.Status))
	}
	if f.Paid != nil {
		conditions = append(conditions, "oi.paid = ?")
		args = append(args, *f.Paid)
	}
	return conditions, args
}

const itemSelect = `SELECT oi.id, oi.order_id, o.user_id, oi.spare_part_id, oi.quantity, oi.price, oi.paid, oi.created_at,
       sp.sparepart_name, sp.shop_id, COALESCE(s.shop_name, ''), COALESCE(u.unit_name, '')
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN spare_parts sp ON sp.id = oi.spare_part_id
LEFT JOIN shops s ON s.id = sp.shop_id
LEFT JOIN units u ON u.id = sp.unit_id`

// ListOrders returns matching orders with nested item detail attached. The
// whole result is assembled in a fixed number of queries regardless of size.
func (q *OrderQueries) ListOrders(ctx context.Context, f OrderFilter) ([]models.OrderView, error) {
	query := "SELECT o.id, o.user_id, o.total_amount, o.created_at FROM orders o"
	conditions, args := orderConditions(f)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list orders", Err: err}
	}
	defer rows.Close()

	orders := make([]models.OrderView, 0)
	index := make(map[int64]int)
	var orderIDs []int64
	for rows.Next() {
		var o models.OrderView
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, &apperrors.PersistenceError{Op: "scan order", Err: err}
		}
		o.Items = []models.OrderItemView{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "list orders", Err: err}
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := q.itemsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return orders, nil
}

// ListOrderItems returns matching items with their order, spare-part, and
// status-history detail attached.
func (q *OrderQueries) ListOrderItems(ctx context.Context, f OrderItemFilter) ([]models.OrderItemView, error) {
	conditions, args := itemConditions(f)
	query := itemSelect + " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY oi.created_at DESC, oi.id DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "list order items", Err: err}
	}
	defer rows.Close()

	items, err := q.scanItems(rows)
	if err != nil {
		return nil, err
	}
	if err := q.attachDetail(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *OrderQueries) itemsForOrders(ctx context.Context, orderIDs []int64) ([]models.OrderItemView, error) {
	query := itemSelect + " WHERE oi.order_id IN (" + placeholders(len(orderIDs)) + ") AND oi.deleted_at IS NULL ORDER BY oi.order_id, oi.id"

	rows, err := q.db.QueryContext(ctx, query, int64Args(orderIDs)...)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "load order items", Err: err}
	}
	defer rows.Close()

	items, err := q.scanItems(rows)
	if err != nil {
		return nil, err
	}
	if err := q.attachDetail(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *OrderQueries) scanItems(rows *sql.Rows) ([]models.OrderItemView, error) {
	items := make([]models.OrderItemView, 0)
	for rows.Next() {
		var (
			item models.OrderItemView
			part models.SparePartView
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.OrderUserID, &item.SparePartID,
			&item.Quantity, &item.Price, &item.Paid, &item.CreatedAt,
			&part.Name, &part.ShopID, &part.ShopName, &part.UnitName,
		); err != nil {
			return nil, &apperrors.PersistenceError{Op: "scan order item", Err: err}
		}
		part.ID = item.SparePartID
		item.SparePart = &part
		item.Statuses = []models.OrderItemStatus{}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.PersistenceError{Op: "scan order items", Err: err}
	}
	return items, nil
}

// attachDetail loads status history and spare-part images for the given
// items in two batch queries.
func (q *OrderQueries) attachDetail(ctx context.Context, items []models.OrderItemView) error {
	if len(items) == 0 {
		return nil
	}

	itemIndex := make(map[int64]int, len(items))
	itemIDs := make([]int64, 0, len(items))
	partIDs := make([]int64, 0, len(items))
	partSeen := make(map[int64]bool)
	for i, item := range items {
		itemIndex[item.ID] = i
		itemIDs = append(itemIDs, item.ID)
		if !partSeen[item.SparePartID] {
			partSeen[item.SparePartID] = true
			partIDs = append(partIDs, item.SparePartID)
		}
	}

	statusQuery := "SELECT id, order_item_id, status, created_at FROM order_item_statuses WHERE order_item_id IN (" +
		placeholders(len(itemIDs)) + ") ORDER BY order_item_id, id"
	rows, err := q.db.QueryContext(ctx, statusQuery, int64Args(itemIDs)...)
	if err != nil {
		return &apperrors.PersistenceError{Op: "load status history", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var s models.OrderItemStatus
		if err := rows.Scan(&s.ID, &s.OrderItemID, &s.Status, &s.CreatedAt); err != nil {
			return &apperrors.PersistenceError{Op: "scan status", Err: err}
		}
		if i, ok := itemIndex[s.OrderItemID]; ok {
			items[i].Statuses = append(items[i].Statuses, s)
		}
	}
	if err := rows.Err(); err != nil {
		return &apperrors.PersistenceError{Op: "load status history", Err: err}
	}

	imageQuery := "SELECT spare_part_id, image_url FROM spare_part_images WHERE spare_part_id IN (" +
		placeholders(len(partIDs)) + ") ORDER BY spare_part_id, id"
	imageRows, err := q.db.QueryContext(ctx, imageQuery, int64Args(partIDs)...)
	if err != nil {
		return &apperrors.PersistenceError{Op: "load spare part images", Err: err}
	}
	defer imageRows.Close()
	images := make(map[int64][]string)
	for imageRows.Next() {
		var partID int64
		var url string
		if err := imageRows.Scan(&partID, &url); err != nil {
			return &apperrors.PersistenceError{Op: "scan spare part image", Err: err}
		}
		images[partID] = append(images[partID], url)
	}
	if err := imageRows.Err(); err != nil {
		return &apperrors.PersistenceError{Op: "load spare part images", Err: err}
	}
	for i := range items {
		if items[i].SparePart != nil {
			items[i].SparePart.Images = images[items[i].SparePartID]
		}
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
