package entities

import (
	"database/sql"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusOnTheWay  OrderStatus = "on_the_way"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// EnRoute reports whether the status is one of the two interchangeable
// "driver en route to customer" labels.
func (s OrderStatus) EnRoute() bool {
	return s == OrderStatusOnTheWay || s == OrderStatusInTransit
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type Role string

const (
	RoleCustomer      Role = "customer"
	RoleBusinessOwner Role = "business_owner"
	RoleDriver        Role = "delivery_driver"
	RoleAdmin         Role = "admin"
	RoleSuperAdmin    Role = "super_admin"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

// Order money fields are integer minor currency units (cents).
// PlatformFee, BusinessEarnings and DeliveryEarnings stay NULL until the
// order settles on delivery and are never written again afterwards.
type Order struct {
	ID               string         `db:"id"`
	Number           string         `db:"number"`
	CustomerID       string         `db:"customer_id"`
	BusinessID       string         `db:"business_id"`
	DeliveryPersonID sql.NullString `db:"delivery_person_id"`
	Subtotal         int64          `db:"subtotal"`
	DeliveryFee      int64          `db:"delivery_fee"`
	Total            int64          `db:"total"`
	PlatformFee      sql.NullInt64  `db:"platform_fee"`
	BusinessEarnings sql.NullInt64  `db:"business_earnings"`
	DeliveryEarnings sql.NullInt64  `db:"delivery_earnings"`
	PaymentMethod    PaymentMethod  `db:"payment_method"`
	Status           OrderStatus    `db:"status"`
	CreatedAt        time.Time      `db:"created_at"`
	DeliveredAt      sql.NullTime   `db:"delivered_at"`
}

// Settled reports whether the earnings fields have been written, which
// happens exactly once, on the transition to delivered.
func (o Order) Settled() bool {
	return o.PlatformFee.Valid && o.BusinessEarnings.Valid
}

type Payment struct {
	ID        string        `db:"id"`
	OrderID   string        `db:"order_id"`
	Method    PaymentMethod `db:"method"`
	Amount    int64         `db:"amount"`
	Status    string        `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
}

type User struct {
	ID        string    `db:"id"`
	Login     string    `db:"login"`
	Password  string    `db:"password"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

type Business struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
