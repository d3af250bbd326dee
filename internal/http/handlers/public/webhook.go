package public

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Webhook handlers always acknowledge with 200 so providers stop
// retrying. Processing failures are logged and surface through the
// alert queue, not the HTTP status.

func (h *Handler) MercadoPagoWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		requestLog(c).Warnw("mercadopago webhook body read failed", "error", err)
		c.String(http.StatusOK, "OK")
		return
	}

	if err := h.PaymentService.HandleMercadoPagoWebhook(c.Request.Context(), c.Request.URL.Query(), body); err != nil {
		requestLog(c).Warnw("mercadopago webhook processing failed", "error", err)
	}
	c.String(http.StatusOK, "OK")
}

func (h *Handler) FlowWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		requestLog(c).Warnw("flow webhook form parse failed", "error", err)
		c.String(http.StatusOK, "OK")
		return
	}

	if err := h.PaymentService.HandleFlowWebhook(c.Request.Context(), c.Request.PostForm); err != nil {
		requestLog(c).Warnw("flow webhook processing failed", "error", err)
	}
	c.String(http.StatusOK, "OK")
}
