package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is a purchase of raffle tickets. Status transitions are the only
// mutation path; a paid or canceled order is immutable outside of
// administrative override.
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"` // human-readable number
	UserID         uint           `gorm:"index;not null" json:"user_id,omitempty"`
	GuestEmail     string         `gorm:"index" json:"guest_email,omitempty"`
	Status         string         `gorm:"index;not null" json:"status"`
	Currency       string         `gorm:"not null" json:"currency"`
	SubtotalAmount Money          `gorm:"type:decimal(20,0);not null;default:0" json:"subtotal_amount"`
	DiscountAmount Money          `gorm:"type:decimal(20,0);not null;default:0" json:"discount_amount"`
	TotalAmount    Money          `gorm:"type:decimal(20,0);not null;default:0" json:"total_amount"`
	CouponID       *uint          `gorm:"index" json:"coupon_id,omitempty"`
	ClientIP       string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`
	CanceledAt     *time.Time     `gorm:"index" json:"canceled_at"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Discounts []OrderDiscount `gorm:"foreignKey:OrderID" json:"discounts,omitempty"`
	Entries   []RaffleEntry   `gorm:"foreignKey:OrderID" json:"entries,omitempty"`
}

// TableName sets the table name.
func (Order) TableName() string {
	return "orders"
}

// OrderDiscount snapshots a coupon application on an order, so the
// discount survives later coupon edits.
type OrderDiscount struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	OrderID    uint      `gorm:"index;not null" json:"order_id"`
	CouponID   uint      `gorm:"index;not null" json:"coupon_id"`
	CouponCode string    `gorm:"not null" json:"coupon_code"`
	Amount     Money     `gorm:"type:decimal(20,0);not null" json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName sets the table name.
func (OrderDiscount) TableName() string {
	return "order_discounts"
}
