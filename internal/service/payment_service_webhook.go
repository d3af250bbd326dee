package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/payment/flow"
	"github.com/rifa-next/internal/payment/mercadopago"
	"github.com/rifa-next/internal/queue"

	"gorm.io/gorm"
)

// HandleMercadoPagoWebhook processes a Mercado Pago notification. The
// notification body is a hint only: the payment state that drives the
// order transition always comes from a fresh provider query. Errors are
// returned for logging; the HTTP handler acknowledges regardless, so
// the provider keeps retrying transient failures.
func (s *PaymentService) HandleMercadoPagoWebhook(ctx context.Context, query url.Values, body []byte) error {
	if !mercadopago.IsPaymentTopic(query, body) {
		logger.Debugw("mp_webhook_ignored_topic", "query", query.Encode())
		return nil
	}
	resourceID := mercadopago.ExtractResourceID(query, body)
	if resourceID == "" {
		logger.Warnw("mp_webhook_missing_resource_id", "query", query.Encode())
		return nil
	}

	cfg := &mercadopago.Config{
		AccessToken: s.paymentCfg.MercadoPago.AccessToken,
		BaseURL:     s.paymentCfg.MercadoPago.BaseURL,
		TimeoutMS:   s.paymentCfg.MercadoPago.TimeoutMS,
	}
	status, err := mercadopago.GetPayment(ctx, cfg, resourceID)
	if err != nil {
		logger.Errorw("mp_webhook_status_query_failed", "resource_id", resourceID, "error", err)
		return err
	}

	payment, err := s.paymentFromExternalReference(status.ExternalReference)
	if err != nil {
		return err
	}
	if payment == nil {
		logger.Warnw("mp_webhook_unknown_payment",
			"resource_id", resourceID,
			"external_reference", status.ExternalReference,
		)
		s.alert(constants.PaymentProviderMercadoPago, 0, "unknown_payment",
			"webhook referenced a payment we do not have", map[string]interface{}{
				"resource_id":        resourceID,
				"external_reference": status.ExternalReference,
			})
		return nil
	}

	// Cheap idempotency pre-check. The authoritative one runs again
	// inside the finalization transaction.
	if payment.Status == constants.PaymentStatusApproved {
		logger.Infow("mp_webhook_replay_ignored", "payment_id", payment.ID)
		return nil
	}

	switch status.Status {
	case constants.MpStatusApproved:
		return s.finalizePayment(payment, status.PaymentID, models.JSON(status.Raw))
	case constants.MpStatusRejected, constants.MpStatusCancelled:
		return s.rejectPayment(payment, status.PaymentID, models.JSON(status.Raw))
	default:
		logger.Infow("mp_webhook_pending",
			"payment_id", payment.ID,
			"provider_status", status.Status,
		)
		return nil
	}
}

// HandleFlowWebhook processes a Flow payment confirmation. Flow POSTs
// only a token; the actual state comes from getStatus. Signature
// verification is advisory by default because the status re-query is
// the real trust boundary; strict mode rejects unsigned callbacks
// outright.
func (s *PaymentService) HandleFlowWebhook(ctx context.Context, form url.Values) error {
	token := strings.TrimSpace(form.Get("token"))
	if token == "" {
		logger.Warnw("flow_webhook_missing_token")
		return nil
	}

	cfg := &flow.Config{
		APIKey:    s.paymentCfg.Flow.APIKey,
		SecretKey: s.paymentCfg.Flow.SecretKey,
		BaseURL:   s.paymentCfg.Flow.BaseURL,
		TimeoutMS: s.paymentCfg.Flow.TimeoutMS,
	}
	if err := flow.VerifySignature(cfg, form); err != nil {
		if s.paymentCfg.Flow.StrictSignature {
			logger.Errorw("flow_webhook_signature_rejected", "error", err)
			return err
		}
		logger.Warnw("flow_webhook_signature_mismatch", "error", err)
	}

	return s.syncFlowPayment(ctx, cfg, token)
}

// CheckFlowStatus reconciles one Flow payment by token and reports the
// resulting order state. Buyer return pages poll this, which also
// covers webhooks Flow never managed to deliver.
func (s *PaymentService) CheckFlowStatus(ctx context.Context, token string) (*models.Order, *models.Payment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrPaymentNotFound
	}
	cfg := &flow.Config{
		APIKey:    s.paymentCfg.Flow.APIKey,
		SecretKey: s.paymentCfg.Flow.SecretKey,
		BaseURL:   s.paymentCfg.Flow.BaseURL,
		TimeoutMS: s.paymentCfg.Flow.TimeoutMS,
	}
	if err := s.syncFlowPayment(ctx, cfg, token); err != nil {
		return nil, nil, err
	}
	payment, err := s.paymentRepo.GetByProviderToken(token)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, ErrPaymentNotFound
	}
	order, err := s.orderRepo.GetByID(payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}
	return order, payment, nil
}

func (s *PaymentService) syncFlowPayment(ctx context.Context, cfg *flow.Config, token string) error {
	payment, err := s.paymentRepo.GetByProviderToken(token)
	if err != nil {
		return err
	}
	if payment == nil {
		logger.Warnw("flow_webhook_unknown_token", "token", token)
		s.alert(constants.PaymentProviderFlow, 0, "unknown_token",
			"callback carried a token we do not have", map[string]interface{}{"token": token})
		return nil
	}
	if payment.Status == constants.PaymentStatusApproved {
		logger.Infow("flow_webhook_replay_ignored", "payment_id", payment.ID)
		return nil
	}

	status, err := flow.GetStatus(ctx, cfg, token)
	if err != nil {
		logger.Errorw("flow_status_query_failed", "payment_id", payment.ID, "error", err)
		return err
	}

	ref := strconv.FormatInt(status.FlowOrder, 10)
	switch status.Status {
	case constants.FlowStatusPaid:
		return s.finalizePayment(payment, ref, models.JSON(status.Raw))
	case constants.FlowStatusRejected, constants.FlowStatusCanceled:
		return s.rejectPayment(payment, ref, models.JSON(status.Raw))
	default:
		logger.Infow("flow_payment_pending",
			"payment_id", payment.ID,
			"flow_status", status.Status,
		)
		return nil
	}
}

// finalizePayment commits the approved payment: tickets assigned,
// coupon counted, order paid, all in one transaction keyed on the
// payment row's own status. A second finalization of the same payment
// observes status approved inside the transaction and does nothing.
func (s *PaymentService) finalizePayment(payment *models.Payment, providerRef string, payload models.JSON) error {
	var email queue.TicketConfirmationEmailPayload
	var finalized bool

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		current, err := paymentRepo.GetByID(payment.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		if current.Status == constants.PaymentStatusApproved {
			return nil
		}

		order, err := orderRepo.GetByID(current.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		entry, err := s.entryRepo.WithTx(tx).GetByOrderID(order.ID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrOrderNotFound
		}

		tickets, err := s.raffleService.AssignTickets(tx, entry.RaffleID, order.ID, entry.UserID, entry.Quantity)
		if err != nil {
			return err
		}

		if order.CouponID != nil {
			if err := s.couponRepo.WithTx(tx).IncrementUsedCount(*order.CouponID, 1); err != nil {
				// The buyer already paid; an exhausted coupon at this
				// point is an operator problem, not a buyer problem.
				logger.Warnw("coupon_count_on_commit_failed",
					"order_id", order.ID,
					"coupon_id", *order.CouponID,
					"error", err,
				)
				s.alert(current.Provider, current.ID, "coupon_exhausted_at_commit",
					"paid order consumed a coupon past its cap", map[string]interface{}{
						"order_id":  order.ID,
						"coupon_id": *order.CouponID,
					})
			}
		}

		now := time.Now()
		current.Status = constants.PaymentStatusApproved
		current.ProviderRef = providerRef
		current.ProviderPayload = payload
		current.PaidAt = &now
		current.CallbackAt = &now
		if err := paymentRepo.Update(current); err != nil {
			return err
		}

		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusPaid, map[string]interface{}{
			"paid_at": now,
		}); err != nil {
			return err
		}

		raffle, err := s.raffleRepo.WithTx(tx).GetByID(entry.RaffleID)
		if err != nil {
			return err
		}
		numbers := make([]int, 0, len(tickets))
		for _, ticket := range tickets {
			numbers = append(numbers, ticket.Number)
		}
		email = queue.TicketConfirmationEmailPayload{
			OrderID:       order.ID,
			OrderNo:       order.OrderNo,
			Email:         s.buyerEmail(tx, order),
			TicketNumbers: numbers,
			TotalCLP:      order.TotalAmount.Int64(),
		}
		if raffle != nil {
			email.RaffleTitle = raffle.Title
		}
		finalized = true
		return nil
	})
	if err != nil {
		return err
	}
	if !finalized {
		return nil
	}

	logger.Infow("payment_finalized",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"provider", payment.Provider,
		"provider_ref", providerRef,
	)

	// Post-commit side effect. A lost email never rolls back a paid
	// order; it is logged and can be resent.
	if email.Email != "" {
		if err := s.queueClient.EnqueueTicketConfirmationEmail(email); err != nil {
			logger.Errorw("confirmation_email_enqueue_failed",
				"order_id", payment.OrderID,
				"error", err,
			)
		}
	}
	return nil
}

// rejectPayment records a provider rejection. An approved payment is
// never demoted; a rejection arriving after approval is an anomaly
// worth an operator alert.
func (s *PaymentService) rejectPayment(payment *models.Payment, providerRef string, payload models.JSON) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		current, err := paymentRepo.GetByID(payment.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPaymentNotFound
		}
		if current.Status == constants.PaymentStatusApproved {
			logger.Warnw("rejection_after_approval_ignored", "payment_id", current.ID)
			s.alert(current.Provider, current.ID, "rejection_after_approval",
				"provider reported rejection for an approved payment", nil)
			return nil
		}
		if current.Status == constants.PaymentStatusRejected {
			return nil
		}

		now := time.Now()
		current.Status = constants.PaymentStatusRejected
		current.ProviderRef = providerRef
		current.ProviderPayload = payload
		current.CallbackAt = &now
		if err := paymentRepo.Update(current); err != nil {
			return err
		}

		order, err := s.orderRepo.WithTx(tx).GetByID(current.OrderID)
		if err != nil {
			return err
		}
		if order != nil && order.Status == constants.OrderStatusPendingPayment {
			if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, constants.OrderStatusFailed, nil); err != nil {
				return err
			}
		}
		logger.Infow("payment_rejected",
			"payment_id", current.ID,
			"order_id", current.OrderID,
			"provider_ref", providerRef,
		)
		return nil
	})
}

// paymentFromExternalReference resolves the local payment row from the
// external_reference we planted at preference creation.
func (s *PaymentService) paymentFromExternalReference(ref string) (*models.Payment, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(ref), 10, 64)
	if err != nil || id == 0 {
		return nil, nil
	}
	return s.paymentRepo.GetByID(uint(id))
}

// buyerEmail resolves who gets the confirmation mail: the guest email
// on the order, or the account email for registered buyers.
func (s *PaymentService) buyerEmail(tx *gorm.DB, order *models.Order) string {
	if order.GuestEmail != "" {
		return order.GuestEmail
	}
	if order.UserID == 0 {
		return ""
	}
	user, err := s.userRepo.WithTx(tx).GetByID(order.UserID)
	if err != nil || user == nil {
		logger.Warnw("buyer_email_lookup_failed", "order_id", order.ID, "user_id", order.UserID, "error", err)
		return ""
	}
	return user.Email
}

func (s *PaymentService) alert(provider string, paymentID uint, alertType, message string, detail map[string]interface{}) {
	err := s.queueClient.EnqueuePaymentExceptionAlert(queue.PaymentExceptionAlertPayload{
		Provider:  provider,
		PaymentID: paymentID,
		AlertType: alertType,
		Message:   message,
		Detail:    detail,
	})
	if err != nil {
		logger.Errorw("payment_alert_enqueue_failed", "alert_type", alertType, "error", err)
	}
}
