package repository

import (
	"errors"
	"time"

	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/models"

	"gorm.io/gorm"
)

// RaffleTicketRepository is the ticket pool data access interface.
type RaffleTicketRepository interface {
	CreateBatch(tickets []models.RaffleTicket) error
	SelectAvailableLocked(raffleID uint, limit int) ([]models.RaffleTicket, error)
	MarkPaid(ids []uint, userID, orderID uint, paidAt time.Time) (int64, error)
	CountAvailable(raffleID uint) (int64, error)
	CountByOrder(orderID uint) (int64, error)
	ListByOrder(orderID uint) ([]models.RaffleTicket, error)
	ListByUser(userID uint, raffleID uint) ([]models.RaffleTicket, error)
	WithTx(tx *gorm.DB) *GormRaffleTicketRepository
}

// GormRaffleTicketRepository is the GORM implementation.
type GormRaffleTicketRepository struct {
	db *gorm.DB
}

// NewRaffleTicketRepository creates a ticket repository.
func NewRaffleTicketRepository(db *gorm.DB) *GormRaffleTicketRepository {
	return &GormRaffleTicketRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormRaffleTicketRepository) WithTx(tx *gorm.DB) *GormRaffleTicketRepository {
	if tx == nil {
		return r
	}
	return &GormRaffleTicketRepository{db: tx}
}

// CreateBatch inserts tickets in chunks. Used when a raffle
// pre-materializes its pool.
func (r *GormRaffleTicketRepository) CreateBatch(tickets []models.RaffleTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&tickets, 500).Error
}

// SelectAvailableLocked picks the lowest-numbered available tickets of a
// raffle, locking the selected rows for the enclosing transaction. On
// postgres the rows are taken FOR UPDATE SKIP LOCKED, so a concurrent
// allocator passes over rows claimed by another transaction and claims
// the next ones instead of blocking. Must run inside a transaction.
func (r *GormRaffleTicketRepository) SelectAvailableLocked(raffleID uint, limit int) ([]models.RaffleTicket, error) {
	if raffleID == 0 {
		return nil, errors.New("invalid raffle id")
	}
	if limit <= 0 {
		return []models.RaffleTicket{}, nil
	}
	var tickets []models.RaffleTicket
	sql := "SELECT id, number FROM raffle_tickets WHERE raffle_id = ? AND status = ? ORDER BY number ASC LIMIT ?" +
		skipLockedSuffix(r.db)
	if err := r.db.Raw(sql, raffleID, constants.TicketStatusAvailable, limit).
		Scan(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// MarkPaid flips the given tickets to paid and stamps the buyer. The
// status guard means rows grabbed by someone else in the meantime are
// not touched, so the caller must compare RowsAffected with the batch
// size.
func (r *GormRaffleTicketRepository) MarkPaid(ids []uint, userID, orderID uint, paidAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	updates := map[string]interface{}{
		"status":                 constants.TicketStatusPaid,
		"order_id":               orderID,
		"paid_at":                paidAt,
		"reservation_expires_at": nil,
		"updated_at":             paidAt,
	}
	if userID > 0 {
		updates["user_id"] = userID
	}
	result := r.db.Model(&models.RaffleTicket{}).
		Where("id IN ?", ids).
		Where("status = ?", constants.TicketStatusAvailable).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// CountAvailable counts unclaimed tickets in a raffle pool.
func (r *GormRaffleTicketRepository) CountAvailable(raffleID uint) (int64, error) {
	if raffleID == 0 {
		return 0, errors.New("invalid raffle id")
	}
	var count int64
	if err := r.db.Model(&models.RaffleTicket{}).
		Where("raffle_id = ? AND status = ?", raffleID, constants.TicketStatusAvailable).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByOrder counts tickets already linked to an order. Zero means the
// order has not been fulfilled yet; the allocator uses this as its
// idempotency guard.
func (r *GormRaffleTicketRepository) CountByOrder(orderID uint) (int64, error) {
	if orderID == 0 {
		return 0, errors.New("invalid order id")
	}
	var count int64
	if err := r.db.Model(&models.RaffleTicket{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByOrder lists an order's tickets in number order.
func (r *GormRaffleTicketRepository) ListByOrder(orderID uint) ([]models.RaffleTicket, error) {
	if orderID == 0 {
		return nil, errors.New("invalid order id")
	}
	var tickets []models.RaffleTicket
	if err := r.db.Where("order_id = ?", orderID).
		Order("number asc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListByUser lists a user's tickets, optionally scoped to one raffle.
func (r *GormRaffleTicketRepository) ListByUser(userID uint, raffleID uint) ([]models.RaffleTicket, error) {
	if userID == 0 {
		return nil, errors.New("invalid user id")
	}
	query := r.db.Where("user_id = ?", userID)
	if raffleID > 0 {
		query = query.Where("raffle_id = ?", raffleID)
	}
	var tickets []models.RaffleTicket
	if err := query.Order("raffle_id asc, number asc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
