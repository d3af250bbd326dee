package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rifa-next/internal/config"
	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/queue"
	"github.com/rifa-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type paymentServiceFixture struct {
	svc        *PaymentService
	raffleSvc  *RaffleService
	db         *gorm.DB
	flowStatus *int // status the mock Flow getStatus reports
	mpStatus   *string
	mpExtRef   *string
}

func setupPaymentServiceTest(t *testing.T) *paymentServiceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Raffle{},
		&models.RafflePricingTier{},
		&models.RaffleTicket{},
		&models.RaffleEntry{},
		&models.Order{},
		&models.OrderDiscount{},
		&models.Payment{},
		&models.Coupon{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	flowStatus := constants.FlowStatusPaid
	mpStatus := constants.MpStatusApproved
	mpExtRef := ""
	mux := http.NewServeMux()
	mux.HandleFunc("/payment/create", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"url":"https://sandbox.flow.test/pay","token":"tok-test","flowOrder":555}`)
	})
	mux.HandleFunc("/payment/getStatus", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"flowOrder":555,"commerceOrder":"1","status":%d,"amount":"4000","currency":"CLP"}`, flowStatus)
	})
	mux.HandleFunc("/checkout/preferences", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"pref-test","init_point":"https://mp.test/init"}`)
	})
	mux.HandleFunc("/v1/payments/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
		fmt.Fprintf(w, `{"id":%s,"status":%q,"external_reference":%q,"transaction_amount":4000}`, id, mpStatus, mpExtRef)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	paymentCfg := &config.PaymentConfig{
		ReturnBaseURL:  "https://shop.test",
		WebhookBaseURL: "https://api.shop.test",
		MercadoPago: config.MercadoPagoConfig{
			Enabled:     true,
			AccessToken: "test-token",
			BaseURL:     server.URL,
			TimeoutMS:   2000,
		},
		Flow: config.FlowConfig{
			Enabled:   true,
			APIKey:    "key",
			SecretKey: "secret",
			BaseURL:   server.URL,
			TimeoutMS: 2000,
		},
	}

	raffleRepo := repository.NewRaffleRepository(db)
	ticketRepo := repository.NewRaffleTicketRepository(db)
	entryRepo := repository.NewRaffleEntryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	userRepo := repository.NewUserRepository(db)

	raffleSvc := NewRaffleService(raffleRepo, ticketRepo, entryRepo, orderRepo)
	couponSvc := NewCouponService(couponRepo)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}

	svc := NewPaymentService(
		orderRepo, paymentRepo, couponRepo, raffleRepo, ticketRepo, entryRepo, userRepo,
		raffleSvc, couponSvc, queueClient, paymentCfg, 30,
	)
	return &paymentServiceFixture{
		svc:        svc,
		raffleSvc:  raffleSvc,
		db:         db,
		flowStatus: &flowStatus,
		mpStatus:   &mpStatus,
		mpExtRef:   &mpExtRef,
	}
}

func (f *paymentServiceFixture) createActiveRaffle(t *testing.T, totalTickets int) *models.Raffle {
	t.Helper()
	raffle, err := f.raffleSvc.CreateRaffle(CreateRaffleInput{
		Title:          "Rifa Moto 2026",
		TicketPriceCLP: 1000,
		TotalTickets:   totalTickets,
		Status:         constants.RaffleStatusActive,
		Tiers:          []CreateTierInput{{Quantity: 5, PriceCLP: 4000}},
	})
	if err != nil {
		t.Fatalf("create raffle failed: %v", err)
	}
	return raffle
}

func TestCreateCheckoutFlow(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle := f.createActiveRaffle(t, 20)

	result, err := f.svc.CreateCheckout(context.Background(), CheckoutInput{
		RaffleID:   raffle.ID,
		Quantity:   5,
		Provider:   constants.PaymentProviderFlow,
		GuestEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("CreateCheckout error: %v", err)
	}

	if result.Order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending_payment, got %s", result.Order.Status)
	}
	if result.Order.TotalAmount.Int64() != 4000 {
		t.Fatalf("tier pricing should apply, got total %d", result.Order.TotalAmount.Int64())
	}
	if result.Payment.ProviderToken != "tok-test" {
		t.Fatalf("expected flow token stored, got %q", result.Payment.ProviderToken)
	}
	if !strings.Contains(result.RedirectURL, "token=tok-test") {
		t.Fatalf("redirect must carry the token: %s", result.RedirectURL)
	}

	var entry models.RaffleEntry
	if err := f.db.Where("order_id = ?", result.Order.ID).First(&entry).Error; err != nil {
		t.Fatalf("entry not created: %v", err)
	}
	if entry.Source != constants.EntrySourcePendingPurchase || entry.Quantity != 5 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	// No tickets move at checkout time.
	var paid int64
	if err := f.db.Model(&models.RaffleTicket{}).
		Where("raffle_id = ? AND status = ?", raffle.ID, constants.TicketStatusPaid).
		Count(&paid).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if paid != 0 {
		t.Fatalf("checkout must not claim tickets, got %d", paid)
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle := f.createActiveRaffle(t, 3)

	cases := []struct {
		name  string
		input CheckoutInput
		want  error
	}{
		{
			name:  "zero quantity",
			input: CheckoutInput{RaffleID: raffle.ID, Quantity: 0, Provider: constants.PaymentProviderFlow, GuestEmail: "a@b.cl"},
			want:  ErrQuantityInvalid,
		},
		{
			name:  "unknown provider",
			input: CheckoutInput{RaffleID: raffle.ID, Quantity: 1, Provider: "webpay", GuestEmail: "a@b.cl"},
			want:  ErrProviderDisabled,
		},
		{
			name:  "missing raffle",
			input: CheckoutInput{RaffleID: 999, Quantity: 1, Provider: constants.PaymentProviderFlow, GuestEmail: "a@b.cl"},
			want:  ErrRaffleNotFound,
		},
		{
			name:  "too many tickets",
			input: CheckoutInput{RaffleID: raffle.ID, Quantity: 4, Provider: constants.PaymentProviderFlow, GuestEmail: "a@b.cl"},
			want:  ErrTicketsInsufficient,
		},
	}
	for _, tc := range cases {
		if _, err := f.svc.CreateCheckout(context.Background(), tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateCheckoutInactiveRaffle(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle, err := f.raffleSvc.CreateRaffle(CreateRaffleInput{
		Title: "Draft", TicketPriceCLP: 1000, TotalTickets: 5,
	})
	if err != nil {
		t.Fatalf("create raffle failed: %v", err)
	}
	_, err = f.svc.CreateCheckout(context.Background(), CheckoutInput{
		RaffleID: raffle.ID, Quantity: 1, Provider: constants.PaymentProviderFlow, GuestEmail: "a@b.cl",
	})
	if !errors.Is(err, ErrRaffleNotActive) {
		t.Fatalf("expected ErrRaffleNotActive, got %v", err)
	}
}

func TestFlowWebhookFinalizesExactlyOnce(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle := f.createActiveRaffle(t, 20)

	coupon := &models.Coupon{
		Code:     "PROMO",
		Type:     constants.CouponTypeAmount,
		Value:    models.NewMoney(500),
		IsActive: true,
		MaxUses:  10,
	}
	if err := f.db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	result, err := f.svc.CreateCheckout(context.Background(), CheckoutInput{
		RaffleID:   raffle.ID,
		Quantity:   5,
		Provider:   constants.PaymentProviderFlow,
		GuestEmail: "buyer@example.com",
		CouponCode: "PROMO",
	})
	if err != nil {
		t.Fatalf("CreateCheckout error: %v", err)
	}
	if result.Order.TotalAmount.Int64() != 3500 {
		t.Fatalf("expected discounted total 3500, got %d", result.Order.TotalAmount.Int64())
	}

	form := url.Values{"token": {"tok-test"}}
	if err := f.svc.HandleFlowWebhook(context.Background(), form); err != nil {
		t.Fatalf("first webhook error: %v", err)
	}
	// Provider retries the confirmation.
	if err := f.svc.HandleFlowWebhook(context.Background(), form); err != nil {
		t.Fatalf("replayed webhook error: %v", err)
	}

	var order models.Order
	if err := f.db.First(&order, result.Order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPaid || order.PaidAt == nil {
		t.Fatalf("order must be paid: %+v", order)
	}

	var tickets int64
	if err := f.db.Model(&models.RaffleTicket{}).
		Where("order_id = ?", order.ID).Count(&tickets).Error; err != nil {
		t.Fatalf("count tickets failed: %v", err)
	}
	if tickets != 5 {
		t.Fatalf("expected exactly 5 tickets after replay, got %d", tickets)
	}

	var reloadedRaffle models.Raffle
	if err := f.db.First(&reloadedRaffle, raffle.ID).Error; err != nil {
		t.Fatalf("reload raffle failed: %v", err)
	}
	if reloadedRaffle.PaidTickets != 5 {
		t.Fatalf("paid counter must not double count, got %d", reloadedRaffle.PaidTickets)
	}

	var reloadedCoupon models.Coupon
	if err := f.db.First(&reloadedCoupon, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if reloadedCoupon.UsedCount != 1 {
		t.Fatalf("coupon must count once, got %d", reloadedCoupon.UsedCount)
	}

	var payment models.Payment
	if err := f.db.First(&payment, result.Payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if payment.Status != constants.PaymentStatusApproved || payment.ProviderRef != "555" {
		t.Fatalf("unexpected payment state: %+v", payment)
	}
}

func TestFlowWebhookRejection(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle := f.createActiveRaffle(t, 10)

	result, err := f.svc.CreateCheckout(context.Background(), CheckoutInput{
		RaffleID:   raffle.ID,
		Quantity:   2,
		Provider:   constants.PaymentProviderFlow,
		GuestEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("CreateCheckout error: %v", err)
	}

	*f.flowStatus = constants.FlowStatusRejected
	if err := f.svc.HandleFlowWebhook(context.Background(), url.Values{"token": {"tok-test"}}); err != nil {
		t.Fatalf("webhook error: %v", err)
	}

	var order models.Order
	if err := f.db.First(&order, result.Order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.Status != constants.OrderStatusFailed {
		t.Fatalf("expected failed order, got %s", order.Status)
	}

	var tickets int64
	if err := f.db.Model(&models.RaffleTicket{}).
		Where("order_id = ?", order.ID).Count(&tickets).Error; err != nil {
		t.Fatalf("count tickets failed: %v", err)
	}
	if tickets != 0 {
		t.Fatalf("rejected payment must assign nothing, got %d", tickets)
	}
}

func TestRejectionAfterApprovalIgnored(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle := f.createActiveRaffle(t, 10)

	result, err := f.svc.CreateCheckout(context.Background(), CheckoutInput{
		RaffleID:   raffle.ID,
		Quantity:   2,
		Provider:   constants.PaymentProviderFlow,
		GuestEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("CreateCheckout error: %v", err)
	}

	if err := f.svc.HandleFlowWebhook(context.Background(), url.Values{"token": {"tok-test"}}); err != nil {
		t.Fatalf("approval webhook error: %v", err)
	}
	*f.flowStatus = constants.FlowStatusRejected
	if err := f.svc.HandleFlowWebhook(context.Background(), url.Values{"token": {"tok-test"}}); err != nil {
		t.Fatalf("late rejection webhook error: %v", err)
	}

	var order models.Order
	if err := f.db.First(&order, result.Order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPaid {
		t.Fatalf("approved order must stay paid, got %s", order.Status)
	}
}

func TestMercadoPagoWebhookFinalizes(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle := f.createActiveRaffle(t, 10)

	result, err := f.svc.CreateCheckout(context.Background(), CheckoutInput{
		RaffleID:   raffle.ID,
		Quantity:   3,
		Provider:   constants.PaymentProviderMercadoPago,
		GuestEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("CreateCheckout error: %v", err)
	}
	if result.Payment.ProviderToken != "pref-test" || result.RedirectURL != "https://mp.test/init" {
		t.Fatalf("unexpected provider registration: %+v", result.Payment)
	}

	*f.mpExtRef = fmt.Sprintf("%d", result.Payment.ID)
	query := url.Values{"topic": {"payment"}, "id": {"987654"}}
	if err := f.svc.HandleMercadoPagoWebhook(context.Background(), query, nil); err != nil {
		t.Fatalf("webhook error: %v", err)
	}

	var order models.Order
	if err := f.db.First(&order, result.Order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", order.Status)
	}

	var tickets int64
	if err := f.db.Model(&models.RaffleTicket{}).
		Where("order_id = ?", order.ID).Count(&tickets).Error; err != nil {
		t.Fatalf("count tickets failed: %v", err)
	}
	if tickets != 3 {
		t.Fatalf("expected 3 tickets, got %d", tickets)
	}
}

func TestMercadoPagoWebhookIgnoresOtherTopics(t *testing.T) {
	f := setupPaymentServiceTest(t)
	query := url.Values{"topic": {"merchant_order"}, "id": {"1"}}
	if err := f.svc.HandleMercadoPagoWebhook(context.Background(), query, nil); err != nil {
		t.Fatalf("non-payment topic must be ignored, got %v", err)
	}
}

func TestCheckFlowStatusSyncsOrder(t *testing.T) {
	f := setupPaymentServiceTest(t)
	raffle := f.createActiveRaffle(t, 10)

	result, err := f.svc.CreateCheckout(context.Background(), CheckoutInput{
		RaffleID:   raffle.ID,
		Quantity:   1,
		Provider:   constants.PaymentProviderFlow,
		GuestEmail: "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("CreateCheckout error: %v", err)
	}

	// The buyer lands on the return page before the webhook arrives.
	order, payment, err := f.svc.CheckFlowStatus(context.Background(), "tok-test")
	if err != nil {
		t.Fatalf("CheckFlowStatus error: %v", err)
	}
	if order.ID != result.Order.ID || order.Status != constants.OrderStatusPaid {
		t.Fatalf("poll must reconcile the order: %+v", order)
	}
	if payment.Status != constants.PaymentStatusApproved {
		t.Fatalf("poll must reconcile the payment: %+v", payment)
	}
}
