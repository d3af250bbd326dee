package public

import (
	"strings"

	"github.com/rifa-next/internal/http/response"
	"github.com/rifa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest is the ticket purchase payload.
type CheckoutRequest struct {
	RaffleID   uint   `json:"raffle_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
	Provider   string `json:"provider" binding:"required"`
	GuestEmail string `json:"guest_email"`
	CouponCode string `json:"coupon_code"`
}

// CreateCheckout starts a ticket purchase and returns the provider
// redirect.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid checkout payload", err)
		return
	}

	result, err := h.PaymentService.CreateCheckout(c.Request.Context(), service.CheckoutInput{
		RaffleID:   req.RaffleID,
		Quantity:   req.Quantity,
		Provider:   strings.ToLower(strings.TrimSpace(req.Provider)),
		GuestEmail: req.GuestEmail,
		CouponCode: req.CouponCode,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// GetOrder looks an order up by number. Guest orders require the
// matching contact email.
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "missing order number", nil)
		return
	}
	detail, err := h.OrderService.GetByOrderNo(orderNo, c.Query("email"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}
