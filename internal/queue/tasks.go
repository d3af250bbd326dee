package queue

import (
	"encoding/json"

	"github.com/rifa-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskTicketConfirmationEmail delivers the post-payment ticket email.
	TaskTicketConfirmationEmail = constants.TaskTicketConfirmationEmail
	// TaskPaymentExceptionAlert notifies operators about webhook anomalies.
	TaskPaymentExceptionAlert = constants.TaskPaymentExceptionAlert
)

// TicketConfirmationEmailPayload carries everything the mail template
// needs, snapshotted at commit time so the task does not re-read state.
type TicketConfirmationEmailPayload struct {
	OrderID       uint   `json:"order_id"`
	OrderNo       string `json:"order_no"`
	Email         string `json:"email"`
	RaffleTitle   string `json:"raffle_title"`
	TicketNumbers []int  `json:"ticket_numbers"`
	TotalCLP      int64  `json:"total_clp"`
}

// PaymentExceptionAlertPayload describes a webhook processing anomaly.
type PaymentExceptionAlertPayload struct {
	Provider  string                 `json:"provider"`
	PaymentID uint                   `json:"payment_id"`
	AlertType string                 `json:"alert_type"`
	Message   string                 `json:"message"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// NewTicketConfirmationEmailTask builds the email task.
func NewTicketConfirmationEmailTask(payload TicketConfirmationEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTicketConfirmationEmail, body), nil
}

// NewPaymentExceptionAlertTask builds the alert task.
func NewPaymentExceptionAlertTask(payload PaymentExceptionAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentExceptionAlert, body), nil
}
