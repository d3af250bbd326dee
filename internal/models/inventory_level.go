package models

import (
	"time"
)

// InventoryLevel tracks physical stock per (variant, source) pair, for
// merchandise sold alongside raffle tickets.
//
// Invariant: 0 <= Reserved <= Stock. Available units are Stock - Reserved.
type InventoryLevel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	VariantID uint      `gorm:"uniqueIndex:idx_variant_source;not null" json:"variant_id"`
	SourceID  uint      `gorm:"uniqueIndex:idx_variant_source;not null" json:"source_id"`
	Stock     int       `gorm:"not null;default:0" json:"stock"`
	Reserved  int       `gorm:"not null;default:0" json:"reserved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name.
func (InventoryLevel) TableName() string {
	return "inventory_levels"
}

// Available returns the units free to reserve.
func (l InventoryLevel) Available() int {
	return l.Stock - l.Reserved
}
