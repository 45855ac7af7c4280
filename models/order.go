package models

import (
	"time"
)

// Status is the fulfillment state of a single order item. History is
// append-only: every transition adds a new OrderItemStatus row.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusComplete Status = "complete"
)

// successors encodes the legal transitions:
// pending -> approved | declined, approved -> complete.
// declined and complete are terminal.
var successors = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusDeclined},
	StatusApproved: {StatusComplete},
	StatusDeclined: {},
	StatusComplete: {},
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusDeclined, StatusComplete:
		return Status(s), true
	}
	return "", false
}

func (s Status) Valid() bool {
	_, ok := successors[s]
	return ok
}

func (s Status) Terminal() bool {
	next, ok := successors[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, n := range successors[s] {
		if n == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Items       []OrderItem `json:"items"`
}

type OrderItem struct {
	ID          int64             `json:"id"`
	OrderID     int64             `json:"order_id"`
	SparePartID int64             `json:"spare_part_id"`
	Quantity    int               `json:"quantity"`
	Price       float64           `json:"price"`
	Paid        bool              `json:"paid"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty"`
	Statuses    []OrderItemStatus `json:"statuses"`
}

type OrderItemStatus struct {
	ID          int64     `json:"id"`
	OrderItemID int64     `json:"order_item_id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlaceOrderRequest is the POST /orders body. Item ids reference spare
// parts; price is the caller's snapshot, not recomputed from the catalog.
type PlaceOrderRequest struct {
	UserID      int64            `json:"user_id"`
	TotalAmount float64          `json:"total_amount"`
	OrderItems  []PlaceOrderItem `json:"order_items"`
}

type PlaceOrderItem struct {
	ID       int64   `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderView is an order with its items and their catalog details eagerly
// attached, as returned by the listing endpoints.
type OrderView struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TotalAmount float64         `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderItemView `json:"items"`
}

type OrderItemView struct {
	ID          int64             `json:"id"`
	OrderID     int64             `json:"order_id"`
	OrderUserID int64             `json:"order_user_id"`
	SparePartID int64             `json:"spare_part_id"`
	Quantity    int               `json:"quantity"`
	Price       float64           `json:"price"`
	Paid        bool              `json:"paid"`
	CreatedAt   time.Time         `json:"created_at"`
	SparePart   *SparePartView    `json:"spare_part,omitempty"`
	Statuses    []OrderItemStatus `json:"statuses"`
}

type SparePartView struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	ShopID   int64    `json:"shop_id"`
	ShopName string   `json:"shop_name"`
	UnitName string   `json:"unit_name"`
	Images   []string `json:"images,omitempty"`
}
