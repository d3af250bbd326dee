package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"
)

// OrderService reads and manages order lifecycle outside of payment
// reconciliation: buyer lookups, cancellation and the expiry sweep.
type OrderService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	ticketRepo  repository.RaffleTicketRepository
}

// NewOrderService creates an order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	ticketRepo repository.RaffleTicketRepository,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		ticketRepo:  ticketRepo,
	}
}

// OrderDetail is an order plus its payments and assigned tickets.
type OrderDetail struct {
	Order    *models.Order         `json:"order"`
	Payments []models.Payment      `json:"payments"`
	Tickets  []models.RaffleTicket `json:"tickets"`
}

// GetByOrderNo fetches an order by number. Guest orders additionally
// require the matching contact email, so an order number alone leaks
// nothing.
func (s *OrderService) GetByOrderNo(orderNo, guestEmail string) (*OrderDetail, error) {
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.UserID == 0 {
		if !strings.EqualFold(strings.TrimSpace(guestEmail), order.GuestEmail) {
			return nil, ErrOrderNotFound
		}
	}
	return s.buildDetail(order)
}

// GetForUser fetches an order scoped to its owner.
func (s *OrderService) GetForUser(id, userID uint) (*OrderDetail, error) {
	order, err := s.orderRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.buildDetail(order)
}

// GetAdmin fetches any order for the back office.
func (s *OrderService) GetAdmin(id uint) (*OrderDetail, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.buildDetail(order)
}

func (s *OrderService) buildDetail(order *models.Order) (*OrderDetail, error) {
	payments, err := s.paymentRepo.ListByOrderID(order.ID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.ticketRepo.ListByOrder(order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Payments: payments, Tickets: tickets}, nil
}

// ListForUser lists a user's orders.
func (s *OrderService) ListForUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

// ListAdmin lists orders for the back office.
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// Cancel cancels a pending order. Only pending_payment orders cancel;
// paid orders are final and tickets never return to the pool.
func (s *OrderService) Cancel(id uint) error {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return ErrOrderNotCancelable
	}
	now := time.Now()
	if err := s.orderRepo.UpdateStatus(id, constants.OrderStatusCanceled, map[string]interface{}{
		"canceled_at": now,
	}); err != nil {
		return err
	}
	logger.Infow("order_canceled", "order_id", id, "order_no", order.OrderNo)
	return nil
}

// SweepExpired marks pending orders whose payment window has closed as
// failed, the same terminal state a provider rejection produces. No
// tickets were held for them, so the sweep is a pure status flip.
// Returns how many orders were swept.
func (s *OrderService) SweepExpired(batchSize int) (int, error) {
	orders, err := s.orderRepo.ListExpiredPending(time.Now(), batchSize)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, order := range orders {
		if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusFailed, nil); err != nil {
			logger.Errorw("order_expiry_sweep_failed", "order_id", order.ID, "error", err)
			continue
		}
		swept++
	}
	if swept > 0 {
		logger.Infow("order_expiry_sweep", "swept", swept)
	}
	return swept, nil
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("RF%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
