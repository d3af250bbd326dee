package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment is one payment attempt against an order. Exactly one approved
// payment drives an order to paid. Lifecycle is init -> approved or
// init -> rejected; approved is absorbing.
type Payment struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	OrderID         uint           `gorm:"index;not null" json:"order_id"`
	Provider        string         `gorm:"index;not null" json:"provider"` // mercadopago or flow
	Amount          Money          `gorm:"type:decimal(20,0);not null" json:"amount"`
	Currency        string         `gorm:"not null" json:"currency"`
	Status          string         `gorm:"index;not null" json:"status"`
	ProviderToken   string         `gorm:"index" json:"provider_token"` // Flow token / MP preference id
	ProviderRef     string         `gorm:"index" json:"provider_ref"`   // provider-side payment id
	ProviderPayload JSON           `gorm:"type:json" json:"provider_payload"`
	RedirectURL     string         `gorm:"type:text" json:"redirect_url"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`
	CallbackAt      *time.Time     `gorm:"index" json:"callback_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (Payment) TableName() string {
	return "payments"
}
