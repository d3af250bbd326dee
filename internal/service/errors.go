package service

import (
	"errors"

	"github.com/rifa-next/internal/repository"
)

// Sentinel errors surfaced to the HTTP layer. Handlers map these to
// response codes with errors.Is.
var (
	ErrQuantityInvalid     = errors.New("quantity must be positive")
	ErrRaffleNotFound      = errors.New("raffle not found")
	ErrRaffleNotActive     = errors.New("raffle is not open for purchase")
	ErrRaffleHasSales      = errors.New("raffle already has paid tickets")
	ErrTicketsInsufficient = errors.New("not enough tickets available")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotCancelable  = errors.New("order can no longer be canceled")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrProviderDisabled    = errors.New("payment provider is not enabled")
	ErrProviderUnavailable = errors.New("payment provider request failed")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponNotStarted    = errors.New("coupon is not active yet")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponMinSubtotal   = errors.New("subtotal below coupon minimum")
	ErrStockInsufficient   = errors.New("not enough stock available")
	ErrConsumeExceeds      = errors.New("consume exceeds reserved stock")
	ErrLevelNotFound       = errors.New("inventory level not found")
	ErrInvalidCredentials  = errors.New("invalid username or password")
)

// ErrCouponExhausted is the repository sentinel re-exported so callers
// have a single identity to match, whether the cap was hit during
// validation or by the guarded commit-time increment.
var ErrCouponExhausted = repository.ErrCouponExhausted
