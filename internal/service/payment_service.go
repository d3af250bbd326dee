package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rifa-next/internal/config"
	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/payment/flow"
	"github.com/rifa-next/internal/payment/mercadopago"
	"github.com/rifa-next/internal/queue"
	"github.com/rifa-next/internal/repository"

	"gorm.io/gorm"
)

// PaymentService drives the checkout and payment reconciliation flows.
// It owns the money-critical transition: a provider-confirmed payment
// turns a pending order into a paid one with tickets assigned, exactly
// once, no matter how many times the provider notifies us.
type PaymentService struct {
	orderRepo     repository.OrderRepository
	paymentRepo   repository.PaymentRepository
	couponRepo    repository.CouponRepository
	raffleRepo    repository.RaffleRepository
	ticketRepo    repository.RaffleTicketRepository
	entryRepo     repository.RaffleEntryRepository
	userRepo      repository.UserRepository
	raffleService *RaffleService
	couponService *CouponService
	queueClient   *queue.Client
	paymentCfg    *config.PaymentConfig
	expireMinutes int
}

// NewPaymentService creates a payment service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	couponRepo repository.CouponRepository,
	raffleRepo repository.RaffleRepository,
	ticketRepo repository.RaffleTicketRepository,
	entryRepo repository.RaffleEntryRepository,
	userRepo repository.UserRepository,
	raffleService *RaffleService,
	couponService *CouponService,
	queueClient *queue.Client,
	paymentCfg *config.PaymentConfig,
	expireMinutes int,
) *PaymentService {
	if expireMinutes <= 0 {
		expireMinutes = 30
	}
	return &PaymentService{
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		couponRepo:    couponRepo,
		raffleRepo:    raffleRepo,
		ticketRepo:    ticketRepo,
		entryRepo:     entryRepo,
		userRepo:      userRepo,
		raffleService: raffleService,
		couponService: couponService,
		queueClient:   queueClient,
		paymentCfg:    paymentCfg,
		expireMinutes: expireMinutes,
	}
}

// CheckoutInput is a ticket purchase request.
type CheckoutInput struct {
	RaffleID   uint
	Quantity   int
	Provider   string // mercadopago or flow
	UserID     uint   // 0 for guest checkout
	GuestEmail string
	CouponCode string
	ClientIP   string
}

// CheckoutResult is what the buyer needs to continue to the provider.
type CheckoutResult struct {
	Order       *models.Order   `json:"order"`
	Payment     *models.Payment `json:"payment"`
	Pricing     PricingResult   `json:"pricing"`
	RedirectURL string          `json:"redirect_url"`
}

// CreateCheckout validates the purchase, persists order, raffle entry
// and payment intent in one transaction, then registers the payment
// with the provider. The provider call happens after commit: a crashed
// provider leaves a pending order that the expiry sweep reclaims, never
// a dangling provider charge with no local order.
func (s *PaymentService) CreateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.Quantity <= 0 {
		return nil, ErrQuantityInvalid
	}
	if input.UserID == 0 {
		if _, err := mail.ParseAddress(strings.TrimSpace(input.GuestEmail)); err != nil {
			return nil, ErrInvalidEmail
		}
	}
	if err := s.ensureProviderEnabled(input.Provider); err != nil {
		return nil, err
	}

	raffle, err := s.raffleRepo.GetByID(input.RaffleID)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	now := time.Now()
	if raffle.Status != constants.RaffleStatusActive {
		return nil, ErrRaffleNotActive
	}
	if raffle.StartsAt != nil && now.Before(*raffle.StartsAt) {
		return nil, ErrRaffleNotActive
	}
	if raffle.EndsAt != nil && now.After(*raffle.EndsAt) {
		return nil, ErrRaffleNotActive
	}

	// Fast-fail on obviously sold-out raffles. The authoritative check
	// is the locked selection at assignment time.
	available, err := s.ticketRepo.CountAvailable(input.RaffleID)
	if err != nil {
		return nil, err
	}
	if available < int64(input.Quantity) {
		return nil, ErrTicketsInsufficient
	}

	pricing, err := ComputeBestPricing(raffle.TicketPriceCLP.Int64(), input.Quantity, tiersFromModels(raffle.PricingTiers))
	if err != nil {
		return nil, err
	}
	subtotal := models.NewMoney(pricing.TotalCLP)

	discount := models.NewMoney(0)
	var coupon *models.Coupon
	if strings.TrimSpace(input.CouponCode) != "" {
		discount, coupon, err = s.couponService.Validate(input.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
	}
	total := models.NewMoneyFromDecimal(subtotal.Decimal.Sub(discount.Decimal))

	expiresAt := now.Add(time.Duration(s.expireMinutes) * time.Minute)
	order := &models.Order{
		OrderNo:        generateOrderNo(),
		UserID:         input.UserID,
		GuestEmail:     strings.TrimSpace(input.GuestEmail),
		Status:         constants.OrderStatusPendingPayment,
		Currency:       constants.CurrencyCLP,
		SubtotalAmount: subtotal,
		DiscountAmount: discount,
		TotalAmount:    total,
		ClientIP:       input.ClientIP,
		ExpiresAt:      &expiresAt,
	}
	if coupon != nil {
		couponID := coupon.ID
		order.CouponID = &couponID
	}

	payment := &models.Payment{
		Provider: input.Provider,
		Amount:   total,
		Currency: constants.CurrencyCLP,
		Status:   constants.PaymentStatusInit,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}
		if coupon != nil && discount.Int64() > 0 {
			if err := s.orderRepo.WithTx(tx).CreateDiscount(&models.OrderDiscount{
				OrderID:    order.ID,
				CouponID:   coupon.ID,
				CouponCode: coupon.Code,
				Amount:     discount,
			}); err != nil {
				return err
			}
		}
		entry := models.RaffleEntry{
			RaffleID: input.RaffleID,
			OrderID:  order.ID,
			UserID:   input.UserID,
			Quantity: input.Quantity,
			Source:   constants.EntrySourcePendingPurchase,
		}
		if err := s.entryRepo.WithTx(tx).Create(&entry); err != nil {
			return err
		}
		order.Entries = append(order.Entries, entry)
		payment.OrderID = order.ID
		return s.paymentRepo.WithTx(tx).Create(payment)
	})
	if err != nil {
		return nil, err
	}

	redirectURL, err := s.registerWithProvider(ctx, raffle, order, payment)
	if err != nil {
		s.failCheckout(order, payment, err)
		return nil, ErrProviderUnavailable
	}

	logger.Infow("checkout_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"raffle_id", input.RaffleID,
		"quantity", input.Quantity,
		"provider", input.Provider,
		"total_clp", total.Int64(),
	)
	return &CheckoutResult{
		Order:       order,
		Payment:     payment,
		Pricing:     pricing,
		RedirectURL: redirectURL,
	}, nil
}

func (s *PaymentService) ensureProviderEnabled(provider string) error {
	if s.paymentCfg == nil {
		return ErrProviderDisabled
	}
	switch provider {
	case constants.PaymentProviderMercadoPago:
		if !s.paymentCfg.MercadoPago.Enabled {
			return ErrProviderDisabled
		}
	case constants.PaymentProviderFlow:
		if !s.paymentCfg.Flow.Enabled {
			return ErrProviderDisabled
		}
	default:
		return ErrProviderDisabled
	}
	return nil
}

// registerWithProvider creates the provider-side payment order and
// stamps the local payment with the provider token and redirect URL.
func (s *PaymentService) registerWithProvider(ctx context.Context, raffle *models.Raffle, order *models.Order, payment *models.Payment) (string, error) {
	switch payment.Provider {
	case constants.PaymentProviderMercadoPago:
		return s.registerMercadoPago(ctx, raffle, order, payment)
	case constants.PaymentProviderFlow:
		return s.registerFlow(ctx, raffle, order, payment)
	default:
		return "", ErrProviderDisabled
	}
}

func (s *PaymentService) registerMercadoPago(ctx context.Context, raffle *models.Raffle, order *models.Order, payment *models.Payment) (string, error) {
	cfg := &mercadopago.Config{
		AccessToken: s.paymentCfg.MercadoPago.AccessToken,
		BaseURL:     s.paymentCfg.MercadoPago.BaseURL,
		TimeoutMS:   s.paymentCfg.MercadoPago.TimeoutMS,
	}
	if err := mercadopago.ValidateConfig(cfg); err != nil {
		return "", err
	}
	result, err := mercadopago.CreatePreference(ctx, cfg, mercadopago.PreferenceInput{
		Title:             fmt.Sprintf("%s x%d", raffle.Title, entryQuantity(order)),
		Quantity:          1,
		UnitPrice:         payment.Amount.Int64(),
		Currency:          payment.Currency,
		ExternalReference: fmt.Sprintf("%d", payment.ID),
		PayerEmail:        order.GuestEmail,
		NotificationURL:   s.webhookURL("mercadopago"),
		SuccessURL:        s.returnURL(order.OrderNo, "success"),
		FailureURL:        s.returnURL(order.OrderNo, "failure"),
		PendingURL:        s.returnURL(order.OrderNo, "pending"),
	})
	if err != nil {
		return "", err
	}
	payment.ProviderToken = result.PreferenceID
	payment.RedirectURL = result.InitPoint
	payment.ProviderPayload = models.JSON(result.Raw)
	if err := s.paymentRepo.Update(payment); err != nil {
		return "", err
	}
	return result.InitPoint, nil
}

func (s *PaymentService) registerFlow(ctx context.Context, raffle *models.Raffle, order *models.Order, payment *models.Payment) (string, error) {
	cfg := &flow.Config{
		APIKey:    s.paymentCfg.Flow.APIKey,
		SecretKey: s.paymentCfg.Flow.SecretKey,
		BaseURL:   s.paymentCfg.Flow.BaseURL,
		TimeoutMS: s.paymentCfg.Flow.TimeoutMS,
	}
	if err := flow.ValidateConfig(cfg); err != nil {
		return "", err
	}
	result, err := flow.CreatePayment(ctx, cfg, flow.CreateInput{
		CommerceOrder: fmt.Sprintf("%d", payment.ID),
		Subject:       raffle.Title,
		Amount:        payment.Amount.Int64(),
		Currency:      payment.Currency,
		PayerEmail:    order.GuestEmail,
		ConfirmURL:    s.webhookURL("flow"),
		ReturnURL:     s.returnURL(order.OrderNo, "return"),
	})
	if err != nil {
		return "", err
	}
	payment.ProviderToken = result.Token
	payment.RedirectURL = result.RedirectURL
	payment.ProviderPayload = models.JSON(result.Raw)
	if err := s.paymentRepo.Update(payment); err != nil {
		return "", err
	}
	return result.RedirectURL, nil
}

// failCheckout marks the order and payment dead after a provider
// registration failure. The buyer was never redirected, so nothing was
// charged.
func (s *PaymentService) failCheckout(order *models.Order, payment *models.Payment, cause error) {
	logger.Errorw("checkout_provider_failed",
		"order_id", order.ID,
		"payment_id", payment.ID,
		"provider", payment.Provider,
		"error", cause,
	)
	payment.Status = constants.PaymentStatusRejected
	if err := s.paymentRepo.Update(payment); err != nil {
		logger.Errorw("checkout_payment_fail_update_failed", "payment_id", payment.ID, "error", err)
	}
	if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusFailed, nil); err != nil {
		logger.Errorw("checkout_order_fail_update_failed", "order_id", order.ID, "error", err)
	}
}

func (s *PaymentService) webhookURL(provider string) string {
	base := strings.TrimRight(s.paymentCfg.WebhookBaseURL, "/")
	return fmt.Sprintf("%s/api/v1/webhooks/%s", base, provider)
}

func (s *PaymentService) returnURL(orderNo, outcome string) string {
	base := strings.TrimRight(s.paymentCfg.ReturnBaseURL, "/")
	return fmt.Sprintf("%s/checkout/result?order_no=%s&outcome=%s", base, orderNo, outcome)
}

func entryQuantity(order *models.Order) int {
	for _, entry := range order.Entries {
		return entry.Quantity
	}
	return 1
}
