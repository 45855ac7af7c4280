package models

import "time"

// Catalog and user-directory read models. These tables are owned by the
// catalog/identity services; the order workflow only reads them.

const (
	RoleVehicleOwner = "vehicle_owner"
	RoleVendor       = "vendor"
	RoleAdmin        = "admin"
)

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Shop struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	ShopName string `json:"shop_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Unit struct {
	ID       int64  `json:"id"`
	UnitName string `json:"unit_name"`
}

type SparePart struct {
	ID        int64      `json:"id"`
	ShopID    int64      `json:"shop_id"`
	Name      string     `json:"sparepart_name"`
	UnitID    int64      `json:"unit_id"`
	Price     float64    `json:"price"`
	Images    []string   `json:"images,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
