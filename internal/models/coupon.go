package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon is a discount code. UsedCount is monotonic and never exceeds
// MaxUses; it is incremented only inside the transaction that finalizes
// a paid order, not at validate time.
type Coupon struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Code        string         `gorm:"uniqueIndex;not null" json:"code"`
	Type        string         `gorm:"not null" json:"type"` // percent or amount
	Value       Money          `gorm:"type:decimal(20,0);not null" json:"value"`
	MinSubtotal Money          `gorm:"type:decimal(20,0);not null;default:0" json:"min_subtotal"`
	MaxUses     int            `gorm:"not null;default:0" json:"max_uses"` // 0 means unlimited
	UsedCount   int            `gorm:"not null;default:0" json:"used_count"`
	StartsAt    *time.Time     `gorm:"index" json:"starts_at"`
	EndsAt      *time.Time     `gorm:"index" json:"ends_at"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (Coupon) TableName() string {
	return "coupons"
}
