package models

import (
	"time"

	"gorm.io/gorm"
)

// Raffle is one draw with a fixed, pre-materialized pool of numbered
// tickets. PaidTickets is a monotonic counter that must equal the number
// of tickets in paid state at all times.
type Raffle struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Status         string         `gorm:"index;not null;default:'draft'" json:"status"`
	TicketPriceCLP Money          `gorm:"type:decimal(20,0);not null" json:"ticket_price_clp"` // base unit price
	TotalTickets   int            `gorm:"not null" json:"total_tickets"`
	PaidTickets    int            `gorm:"not null;default:0" json:"paid_tickets"`
	StartsAt       *time.Time     `gorm:"index" json:"starts_at"`
	EndsAt         *time.Time     `gorm:"index" json:"ends_at"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	PricingTiers []RafflePricingTier `gorm:"foreignKey:RaffleID" json:"pricing_tiers,omitempty"`
}

// TableName sets the table name.
func (Raffle) TableName() string {
	return "raffles"
}

// RafflePricingTier is a bulk-discount rule: Quantity tickets for a fixed
// PriceCLP bundle price.
type RafflePricingTier struct {
	ID       uint  `gorm:"primarykey" json:"id"`
	RaffleID uint  `gorm:"index;not null" json:"raffle_id"`
	Quantity int   `gorm:"not null" json:"quantity"`
	PriceCLP Money `gorm:"type:decimal(20,0);not null" json:"price_clp"`
	IsActive bool  `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name.
func (RafflePricingTier) TableName() string {
	return "raffle_pricing_tiers"
}
