package public

import (
	"strings"

	"github.com/rifa-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// FlowPaymentStatus re-queries Flow for the payment tied to a token.
// The browser return page polls this after redirect since Flow's
// confirmation may arrive before or after the shopper does.
func (h *Handler) FlowPaymentStatus(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		respondError(c, response.CodeBadRequest, "missing token", nil)
		return
	}

	order, payment, err := h.PaymentService.CheckFlowStatus(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"order_no":       order.OrderNo,
		"order_status":   order.Status,
		"payment_status": payment.Status,
	})
}
