package models

import (
	"time"
)

// RaffleEntry records a buyer's intent to acquire Quantity tickets for a
// raffle, tied to one order. Created at checkout, read (never mutated)
// when the payment confirms and tickets are assigned.
type RaffleEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	RaffleID  uint      `gorm:"index;not null" json:"raffle_id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"` // 0 for guest orders
	Quantity  int       `gorm:"not null" json:"quantity"`
	Source    string    `gorm:"index;not null" json:"source"` // pending_purchase or giveaway
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name.
func (RaffleEntry) TableName() string {
	return "raffle_entries"
}
