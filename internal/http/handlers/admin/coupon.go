package admin

import (
	"strings"
	"time"

	"github.com/rifa-next/internal/constants"
	handlershared "github.com/rifa-next/internal/http/handlers/shared"
	"github.com/rifa-next/internal/http/response"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"
	"github.com/rifa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCouponRequest is the admin coupon creation payload.
type CreateCouponRequest struct {
	Code        string     `json:"code" binding:"required"`
	Type        string     `json:"type" binding:"required"`
	Value       int64      `json:"value" binding:"required"`
	MinSubtotal int64      `json:"min_subtotal"`
	MaxUses     int        `json:"max_uses"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsActive    *bool      `json:"is_active"`
}

// UpdateCouponRequest carries partial coupon edits.
type UpdateCouponRequest struct {
	Type        *string    `json:"type"`
	Value       *int64     `json:"value"`
	MinSubtotal *int64     `json:"min_subtotal"`
	MaxUses     *int       `json:"max_uses"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsActive    *bool      `json:"is_active"`
}

func validCouponType(t string) bool {
	return t == constants.CouponTypePercent || t == constants.CouponTypeAmount
}

// CreateCoupon creates a discount coupon.
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid coupon payload", err)
		return
	}
	if !validCouponType(req.Type) {
		respondError(c, response.CodeBadRequest, "coupon type must be percent or amount", nil)
		return
	}
	if req.Value <= 0 || (req.Type == constants.CouponTypePercent && req.Value > 100) {
		respondError(c, response.CodeBadRequest, "invalid coupon value", nil)
		return
	}

	coupon := &models.Coupon{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Type:        req.Type,
		Value:       models.NewMoney(req.Value),
		MinSubtotal: models.NewMoney(req.MinSubtotal),
		MaxUses:     req.MaxUses,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		IsActive:    true,
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if err := h.CouponRepo.Create(coupon); err != nil {
		respondError(c, response.CodeInternal, "failed to create coupon", err)
		return
	}

	requestLog(c).Infow("coupon created", "coupon_id", coupon.ID, "code", coupon.Code)
	response.Success(c, coupon)
}

// UpdateCoupon applies a partial coupon edit. The code itself is
// immutable once printed on marketing material.
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid coupon id", err)
		return
	}
	var req UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid coupon payload", err)
		return
	}

	coupon, err := h.CouponRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to load coupon", err)
		return
	}
	if coupon == nil {
		respondServiceError(c, service.ErrCouponNotFound)
		return
	}

	if req.Type != nil {
		if !validCouponType(*req.Type) {
			respondError(c, response.CodeBadRequest, "coupon type must be percent or amount", nil)
			return
		}
		coupon.Type = *req.Type
	}
	if req.Value != nil {
		if *req.Value <= 0 || (coupon.Type == constants.CouponTypePercent && *req.Value > 100) {
			respondError(c, response.CodeBadRequest, "invalid coupon value", nil)
			return
		}
		coupon.Value = models.NewMoney(*req.Value)
	}
	if req.MinSubtotal != nil {
		coupon.MinSubtotal = models.NewMoney(*req.MinSubtotal)
	}
	if req.MaxUses != nil {
		coupon.MaxUses = *req.MaxUses
	}
	if req.StartsAt != nil {
		coupon.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		coupon.EndsAt = req.EndsAt
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if err := h.CouponRepo.Update(coupon); err != nil {
		respondError(c, response.CodeInternal, "failed to update coupon", err)
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon soft-deletes a coupon.
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid coupon id", err)
		return
	}
	if err := h.CouponRepo.Delete(id); err != nil {
		respondError(c, response.CodeInternal, "failed to delete coupon", err)
		return
	}
	requestLog(c).Infow("coupon deleted", "coupon_id", id)
	response.Success(c, nil)
}

// ListCoupons lists coupons for the back office.
func (h *Handler) ListCoupons(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     c.Query("code"),
	}
	if active := c.Query("is_active"); active != "" {
		isActive := active == "true" || active == "1"
		filter.IsActive = &isActive
	}
	coupons, total, err := h.CouponRepo.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list coupons", err)
		return
	}
	response.SuccessWithPage(c, coupons, response.NewPagination(page, pageSize, total))
}
