package repository

import (
	"errors"

	"github.com/rifa-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository is the stock level data access interface.
type InventoryRepository interface {
	GetLevel(variantID, sourceID uint) (*models.InventoryLevel, error)
	GetLevelForUpdate(variantID, sourceID uint) (*models.InventoryLevel, error)
	ListLevels(variantID uint) ([]models.InventoryLevel, error)
	ListLevelsForUpdate(variantID uint) ([]models.InventoryLevel, error)
	Create(level *models.InventoryLevel) error
	Update(level *models.InventoryLevel) error
	WithTx(tx *gorm.DB) *GormInventoryRepository
}

// GormInventoryRepository is the GORM implementation.
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates an inventory repository.
func NewInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *GormInventoryRepository) WithTx(tx *gorm.DB) *GormInventoryRepository {
	if tx == nil {
		return r
	}
	return &GormInventoryRepository{db: tx}
}

// GetLevel fetches one stock level.
func (r *GormInventoryRepository) GetLevel(variantID, sourceID uint) (*models.InventoryLevel, error) {
	var level models.InventoryLevel
	result := r.db.Where("variant_id = ? AND source_id = ?", variantID, sourceID).Limit(1).Find(&level)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &level, nil
}

// GetLevelForUpdate fetches one stock level with a row lock. Call inside
// a transaction only.
func (r *GormInventoryRepository) GetLevelForUpdate(variantID, sourceID uint) (*models.InventoryLevel, error) {
	var level models.InventoryLevel
	result := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id = ? AND source_id = ?", variantID, sourceID).Limit(1).Find(&level)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &level, nil
}

// ListLevels lists a variant's stock levels without locking.
func (r *GormInventoryRepository) ListLevels(variantID uint) ([]models.InventoryLevel, error) {
	if variantID == 0 {
		return nil, errors.New("invalid variant id")
	}
	var levels []models.InventoryLevel
	if err := r.db.Where("variant_id = ?", variantID).
		Order("source_id asc").Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// ListLevelsForUpdate locks every level of a variant, in stable source
// order, so multi-source distribution walks the same sequence on every
// call site.
func (r *GormInventoryRepository) ListLevelsForUpdate(variantID uint) ([]models.InventoryLevel, error) {
	if variantID == 0 {
		return nil, errors.New("invalid variant id")
	}
	var levels []models.InventoryLevel
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("variant_id = ?", variantID).
		Order("source_id asc").Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// Create creates a stock level.
func (r *GormInventoryRepository) Create(level *models.InventoryLevel) error {
	return r.db.Create(level).Error
}

// Update saves a stock level.
func (r *GormInventoryRepository) Update(level *models.InventoryLevel) error {
	return r.db.Save(level).Error
}
