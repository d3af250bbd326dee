package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderDiscount{},
		&models.RaffleEntry{},
		&models.Payment{},
		&models.RaffleTicket{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewRaffleTicketRepository(db),
	)
	return svc, db
}

func seedOrder(t *testing.T, db *gorm.DB, status string, expiresAt *time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:        generateOrderNo(),
		Status:         status,
		Currency:       constants.CurrencyCLP,
		GuestEmail:     "guest@example.com",
		SubtotalAmount: models.NewMoney(3000),
		TotalAmount:    models.NewMoney(3000),
		ExpiresAt:      expiresAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
	return order
}

func TestGetByOrderNoGuestEmailGate(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order := seedOrder(t, db, constants.OrderStatusPendingPayment, nil)

	if _, err := svc.GetByOrderNo(order.OrderNo, "wrong@example.com"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("wrong guest email must look like a missing order, got %v", err)
	}

	detail, err := svc.GetByOrderNo(order.OrderNo, "Guest@Example.com")
	if err != nil {
		t.Fatalf("GetByOrderNo error: %v", err)
	}
	if detail.Order.ID != order.ID {
		t.Fatalf("unexpected order: %+v", detail.Order)
	}
}

func TestCancelOnlyPendingOrders(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	pending := seedOrder(t, db, constants.OrderStatusPendingPayment, nil)
	paid := seedOrder(t, db, constants.OrderStatusPaid, nil)

	if err := svc.Cancel(pending.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	var reloaded models.Order
	if err := db.First(&reloaded, pending.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCanceled || reloaded.CanceledAt == nil {
		t.Fatalf("unexpected state after cancel: %+v", reloaded)
	}

	if err := svc.Cancel(paid.ID); !errors.Is(err, ErrOrderNotCancelable) {
		t.Fatalf("paid order must not cancel, got %v", err)
	}
	if err := svc.Cancel(999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	expired := seedOrder(t, db, constants.OrderStatusPendingPayment, &past)
	alive := seedOrder(t, db, constants.OrderStatusPendingPayment, &future)
	alreadyPaid := seedOrder(t, db, constants.OrderStatusPaid, &past)

	swept, err := svc.SweepExpired(50)
	if err != nil {
		t.Fatalf("SweepExpired error: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept order, got %d", swept)
	}

	check := func(id uint, want string) {
		t.Helper()
		var order models.Order
		if err := db.First(&order, id).Error; err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if order.Status != want {
			t.Fatalf("order %d: expected %s, got %s", id, want, order.Status)
		}
	}
	check(expired.ID, constants.OrderStatusFailed)
	check(alive.ID, constants.OrderStatusPendingPayment)
	check(alreadyPaid.ID, constants.OrderStatusPaid)
}

func TestGenerateOrderNoShape(t *testing.T) {
	first := generateOrderNo()
	second := generateOrderNo()
	if len(first) != 22 || first[:2] != "RF" {
		t.Fatalf("unexpected order number shape: %s", first)
	}
	if first == second {
		t.Fatalf("order numbers should not repeat: %s", first)
	}
}
