package repository

import (
	"errors"

	"github.com/rifa-next/internal/models"

	"gorm.io/gorm"
)

// RaffleEntryRepository is the raffle entry data access interface.
type RaffleEntryRepository interface {
	Create(entry *models.RaffleEntry) error
	GetByOrderID(orderID uint) (*models.RaffleEntry, error)
	ListByUser(userID uint) ([]models.RaffleEntry, error)
	WithTx(tx *gorm.DB) *GormRaffleEntryRepository
}

// GormRaffleEntryRepository is the GORM implementation.
type GormRaffleEntryRepository struct {
	db *gorm.DB
}

// NewRaffleEntryRepository creates a raffle entry repository.
func NewRaffleEntryRepository(db *gorm.DB) *GormRaffleEntryRepository {
	return &GormRaffleEntryRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormRaffleEntryRepository) WithTx(tx *gorm.DB) *GormRaffleEntryRepository {
	if tx == nil {
		return r
	}
	return &GormRaffleEntryRepository{db: tx}
}

// Create creates an entry.
func (r *GormRaffleEntryRepository) Create(entry *models.RaffleEntry) error {
	return r.db.Create(entry).Error
}

// GetByOrderID fetches the entry belonging to an order.
func (r *GormRaffleEntryRepository) GetByOrderID(orderID uint) (*models.RaffleEntry, error) {
	if orderID == 0 {
		return nil, errors.New("invalid order id")
	}
	var entry models.RaffleEntry
	result := r.db.Where("order_id = ?", orderID).Limit(1).Find(&entry)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &entry, nil
}

// ListByUser lists a user's entries, newest first.
func (r *GormRaffleEntryRepository) ListByUser(userID uint) ([]models.RaffleEntry, error) {
	if userID == 0 {
		return nil, errors.New("invalid user id")
	}
	var entries []models.RaffleEntry
	if err := r.db.Where("user_id = ?", userID).Order("id desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
