package service

import (
	"strings"
	"time"

	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponService validates discount codes and applies them to checkouts.
type CouponService struct {
	couponRepo repository.CouponRepository
}

// NewCouponService creates a coupon service.
func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo}
}

// Validate checks a coupon code against a checkout subtotal and returns
// the discount it grants. Checks run in a fixed order so callers get a
// stable error for any given coupon state: existence, active flag,
// start, end, usage cap, minimum subtotal.
//
// The usage cap check here is advisory only. The authoritative guard is
// the atomic used_count increment that runs inside the payment
// finalization transaction.
func (s *CouponService) Validate(code string, subtotal models.Money) (models.Money, *models.Coupon, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return models.Money{}, nil, ErrCouponNotFound
	}

	coupon, err := s.couponRepo.GetByCode(trimmed)
	if err != nil {
		return models.Money{}, nil, err
	}
	if coupon == nil || !coupon.IsActive {
		return models.Money{}, nil, ErrCouponNotFound
	}

	now := time.Now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return models.Money{}, coupon, ErrCouponNotStarted
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return models.Money{}, coupon, ErrCouponExpired
	}

	if coupon.MaxUses > 0 && coupon.UsedCount >= coupon.MaxUses {
		return models.Money{}, coupon, ErrCouponExhausted
	}

	if subtotal.Decimal.Cmp(coupon.MinSubtotal.Decimal) < 0 {
		return models.Money{}, coupon, ErrCouponMinSubtotal
	}

	discount := s.calculateDiscount(coupon, subtotal)
	return discount, coupon, nil
}

// calculateDiscount computes the peso discount for a coupon, clamped to
// the subtotal. Percent discounts floor to whole pesos.
func (s *CouponService) calculateDiscount(coupon *models.Coupon, subtotal models.Money) models.Money {
	var discount decimal.Decimal
	switch coupon.Type {
	case constants.CouponTypePercent:
		discount = subtotal.Decimal.
			Mul(coupon.Value.Decimal).
			Div(decimal.NewFromInt(100)).
			Floor()
	case constants.CouponTypeAmount:
		discount = coupon.Value.Decimal
	default:
		return models.NewMoney(0)
	}

	if discount.IsNegative() {
		return models.NewMoney(0)
	}
	if discount.GreaterThan(subtotal.Decimal) {
		discount = subtotal.Decimal
	}
	return models.NewMoneyFromDecimal(discount)
}
