package repository

import (
	"errors"

	"github.com/rifa-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RaffleRepository is the raffle data access interface.
type RaffleRepository interface {
	Create(raffle *models.Raffle) error
	Update(raffle *models.Raffle) error
	Delete(id uint) error
	GetByID(id uint) (*models.Raffle, error)
	GetByIDForUpdate(id uint) (*models.Raffle, error)
	List(filter RaffleListFilter) ([]models.Raffle, int64, error)
	ListActiveTiers(raffleID uint) ([]models.RafflePricingTier, error)
	CreateTier(tier *models.RafflePricingTier) error
	DeleteTier(id uint) error
	IncrementPaidTickets(id uint, delta int) error
	WithTx(tx *gorm.DB) *GormRaffleRepository
}

// GormRaffleRepository is the GORM implementation.
type GormRaffleRepository struct {
	db *gorm.DB
}

// NewRaffleRepository creates a raffle repository.
func NewRaffleRepository(db *gorm.DB) *GormRaffleRepository {
	return &GormRaffleRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormRaffleRepository) WithTx(tx *gorm.DB) *GormRaffleRepository {
	if tx == nil {
		return r
	}
	return &GormRaffleRepository{db: tx}
}

// Create creates a raffle.
func (r *GormRaffleRepository) Create(raffle *models.Raffle) error {
	return r.db.Create(raffle).Error
}

// Update saves a raffle.
func (r *GormRaffleRepository) Update(raffle *models.Raffle) error {
	return r.db.Save(raffle).Error
}

// Delete soft-deletes a raffle.
func (r *GormRaffleRepository) Delete(id uint) error {
	return r.db.Delete(&models.Raffle{}, id).Error
}

// GetByID fetches a raffle with its pricing tiers.
func (r *GormRaffleRepository) GetByID(id uint) (*models.Raffle, error) {
	var raffle models.Raffle
	if err := r.db.Preload("PricingTiers").First(&raffle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &raffle, nil
}

// GetByIDForUpdate fetches a raffle with a row lock. Call inside a
// transaction only.
func (r *GormRaffleRepository) GetByIDForUpdate(id uint) (*models.Raffle, error) {
	var raffle models.Raffle
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&raffle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &raffle, nil
}

// List lists raffles.
func (r *GormRaffleRepository) List(filter RaffleListFilter) ([]models.Raffle, int64, error) {
	query := r.db.Model(&models.Raffle{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OnlyActive {
		query = query.Where("status = ?", "active")
	}
	if filter.Search != "" {
		query = query.Where("title "+likeOperator(r.db)+" ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var raffles []models.Raffle
	if err := query.Preload("PricingTiers").Order("id desc").Find(&raffles).Error; err != nil {
		return nil, 0, err
	}
	return raffles, total, nil
}

// ListActiveTiers lists the active pricing tiers of a raffle.
func (r *GormRaffleRepository) ListActiveTiers(raffleID uint) ([]models.RafflePricingTier, error) {
	var tiers []models.RafflePricingTier
	if err := r.db.Where("raffle_id = ? AND is_active = ?", raffleID, true).
		Order("quantity asc").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// CreateTier creates a pricing tier.
func (r *GormRaffleRepository) CreateTier(tier *models.RafflePricingTier) error {
	return r.db.Create(tier).Error
}

// DeleteTier removes a pricing tier.
func (r *GormRaffleRepository) DeleteTier(id uint) error {
	return r.db.Delete(&models.RafflePricingTier{}, id).Error
}

// IncrementPaidTickets bumps paid_tickets, guarded so the counter can
// never pass total_tickets.
func (r *GormRaffleRepository) IncrementPaidTickets(id uint, delta int) error {
	if delta <= 0 {
		return nil
	}
	result := r.db.Model(&models.Raffle{}).
		Where("id = ?", id).
		Where("paid_tickets + ? <= total_tickets", delta).
		UpdateColumn("paid_tickets", gorm.Expr("paid_tickets + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("paid tickets counter would exceed total")
	}
	return nil
}
