package admin

import (
	handlershared "github.com/rifa-next/internal/http/handlers/shared"
	"github.com/rifa-next/internal/http/response"
	"github.com/rifa-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListOrders lists orders for the back office.
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.OrderService.ListAdmin(repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		Status:     c.Query("status"),
		OrderNo:    c.Query("order_no"),
		GuestEmail: c.Query("guest_email"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder returns one order with its payments and tickets.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}
	detail, err := h.OrderService.GetAdmin(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// CancelOrder cancels an order still awaiting payment.
func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order id", err)
		return
	}
	if err := h.OrderService.Cancel(id); err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("order canceled", "order_id", id)
	response.Success(c, nil)
}

// ListPayments lists payment attempts for the back office.
func (h *Handler) ListPayments(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.PaymentListFilter{
		Page:     page,
		PageSize: pageSize,
		Provider: c.Query("provider"),
		Status:   c.Query("status"),
	}
	if orderID, err := handlershared.ParseUintQuery(c, "order_id"); err == nil {
		filter.OrderID = orderID
	}
	payments, total, err := h.PaymentRepo.ListAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to list payments", err)
		return
	}
	response.SuccessWithPage(c, payments, response.NewPagination(page, pageSize, total))
}
