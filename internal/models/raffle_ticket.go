package models

import (
	"time"
)

// RaffleTicket is one numbered ticket in a raffle pool. The full set
// 1..total_tickets is created when the raffle is created; tickets are
// the contended resource claimed by paying orders.
//
// A ticket transitions available -> paid at most once and is never
// re-released after payment. UserID/OrderID stay nil until assignment.
type RaffleTicket struct {
	ID                   uint       `gorm:"primarykey" json:"id"`
	RaffleID             uint       `gorm:"uniqueIndex:idx_raffle_number;not null" json:"raffle_id"`
	Number               int        `gorm:"uniqueIndex:idx_raffle_number;not null" json:"number"`
	Status               string     `gorm:"index;not null;default:'available'" json:"status"`
	UserID               *uint      `gorm:"index" json:"user_id,omitempty"`
	OrderID              *uint      `gorm:"index" json:"order_id,omitempty"`
	ReservationExpiresAt *time.Time `gorm:"index" json:"reservation_expires_at,omitempty"`
	PaidAt               *time.Time `gorm:"index" json:"paid_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName sets the table name.
func (RaffleTicket) TableName() string {
	return "raffle_tickets"
}
