package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/provider"
	"github.com/rifa-next/internal/queue"
	"github.com/rifa-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer processes the async task queue.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds the task handlers.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskTicketConfirmationEmail, c.handleTicketConfirmationEmail)
	mux.HandleFunc(queue.TaskPaymentExceptionAlert, c.handlePaymentExceptionAlert)
}

func (c *Consumer) handleTicketConfirmationEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_ticket_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TicketConfirmationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_ticket_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || payload.Email == "" {
		logger.Debugw("worker_ticket_email_skip_invalid_payload",
			"order_id", payload.OrderID, "order_no", payload.OrderNo)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_ticket_email_skip_email_service_nil",
			"order_id", payload.OrderID, "order_no", payload.OrderNo)
		return nil
	}
	if err := c.EmailService.SendTicketConfirmation(payload); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailServiceDisabled),
			errors.Is(err, service.ErrEmailServiceNotConfigured):
			logger.Debugw("worker_ticket_email_skip_disabled",
				"order_id", payload.OrderID, "order_no", payload.OrderNo)
			return nil
		case errors.Is(err, service.ErrInvalidEmail):
			logger.Warnw("worker_ticket_email_skip_invalid_address",
				"order_id", payload.OrderID, "order_no", payload.OrderNo)
			return nil
		default:
			logger.Warnw("worker_ticket_email_send_failed",
				"order_id", payload.OrderID,
				"order_no", payload.OrderNo,
				"error", err,
			)
			return err
		}
	}
	logger.Infow("worker_ticket_email_sent",
		"order_id", payload.OrderID,
		"order_no", payload.OrderNo,
		"tickets", len(payload.TicketNumbers),
	)
	return nil
}

// handlePaymentExceptionAlert surfaces reconciliation anomalies in the
// operator log. It never retries, the alert itself is the output.
func (c *Consumer) handlePaymentExceptionAlert(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.PaymentExceptionAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_alert_unmarshal_failed", "error", err)
		return nil
	}
	logger.Errorw("payment_exception_alert",
		"provider", payload.Provider,
		"payment_id", payload.PaymentID,
		"alert_type", payload.AlertType,
		"message", payload.Message,
		"detail", payload.Detail,
	)
	return nil
}
