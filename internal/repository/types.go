package repository

import "time"

// OrderListFilter filters order listings.
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	GuestEmail  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentListFilter filters payment listings.
type PaymentListFilter struct {
	Page        int
	PageSize    int
	OrderID     uint
	Provider    string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CouponListFilter filters coupon listings.
type CouponListFilter struct {
	Page     int
	PageSize int
	Code     string
	IsActive *bool
}

// RaffleListFilter filters raffle listings.
type RaffleListFilter struct {
	Page       int
	PageSize   int
	Status     string
	Search     string
	OnlyActive bool
}
