package service

import (
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"

	"gorm.io/gorm"
)

// InventoryService keeps the stock ledger for merchandise variants.
// Every mutation locks the affected levels and runs in one transaction,
// so the Reserved <= Stock invariant holds under concurrent checkouts.
type InventoryService struct {
	inventoryRepo repository.InventoryRepository
}

// NewInventoryService creates an inventory service.
func NewInventoryService(inventoryRepo repository.InventoryRepository) *InventoryService {
	return &InventoryService{inventoryRepo: inventoryRepo}
}

// Reserve holds quantity units of a variant against a future sale. The
// hold is spread across the variant's stock sources in source order,
// each source contributing what it has available. Fails with
// ErrStockInsufficient when the sources together cannot cover it.
func (s *InventoryService) Reserve(variantID uint, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}
	return models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.inventoryRepo.WithTx(tx)
		levels, err := repo.ListLevelsForUpdate(variantID)
		if err != nil {
			return err
		}

		available := 0
		for _, level := range levels {
			available += level.Available()
		}
		if available < quantity {
			return ErrStockInsufficient
		}

		remaining := quantity
		for i := range levels {
			if remaining == 0 {
				break
			}
			take := levels[i].Available()
			if take > remaining {
				take = remaining
			}
			if take == 0 {
				continue
			}
			levels[i].Reserved += take
			remaining -= take
			if err := repo.Update(&levels[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Release gives back quantity reserved units, walking the sources in
// the same order Reserve used. The amount released is clamped to what
// is actually reserved, so a double release is a no-op rather than a
// failure.
func (s *InventoryService) Release(variantID uint, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}
	return models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.inventoryRepo.WithTx(tx)
		levels, err := repo.ListLevelsForUpdate(variantID)
		if err != nil {
			return err
		}

		reserved := 0
		for _, level := range levels {
			reserved += level.Reserved
		}
		remaining := quantity
		if remaining > reserved {
			remaining = reserved
		}
		for i := range levels {
			if remaining == 0 {
				break
			}
			give := levels[i].Reserved
			if give > remaining {
				give = remaining
			}
			if give == 0 {
				continue
			}
			levels[i].Reserved -= give
			remaining -= give
			if err := repo.Update(&levels[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Consume turns quantity reserved units into shipped stock: both
// Stock and Reserved drop together, keeping the invariant intact.
// Consuming more than is reserved fails with ErrConsumeExceeds.
func (s *InventoryService) Consume(variantID uint, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}
	return models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.inventoryRepo.WithTx(tx)
		levels, err := repo.ListLevelsForUpdate(variantID)
		if err != nil {
			return err
		}

		reserved := 0
		for _, level := range levels {
			reserved += level.Reserved
		}
		if reserved < quantity {
			return ErrConsumeExceeds
		}

		remaining := quantity
		for i := range levels {
			if remaining == 0 {
				break
			}
			take := levels[i].Reserved
			if take > remaining {
				take = remaining
			}
			if take == 0 {
				continue
			}
			levels[i].Reserved -= take
			levels[i].Stock -= take
			remaining -= take
			if err := repo.Update(&levels[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetStock sets the absolute stock of one (variant, source) level,
// creating the level on first use. The new stock may not undercut
// units already reserved.
func (s *InventoryService) SetStock(variantID, sourceID uint, stock int) (*models.InventoryLevel, error) {
	if stock < 0 {
		return nil, ErrQuantityInvalid
	}
	var out *models.InventoryLevel
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.inventoryRepo.WithTx(tx)
		level, err := repo.GetLevelForUpdate(variantID, sourceID)
		if err != nil {
			return err
		}
		if level == nil {
			level = &models.InventoryLevel{
				VariantID: variantID,
				SourceID:  sourceID,
				Stock:     stock,
			}
			if err := repo.Create(level); err != nil {
				return err
			}
			out = level
			return nil
		}
		if stock < level.Reserved {
			return ErrStockInsufficient
		}
		level.Stock = stock
		if err := repo.Update(level); err != nil {
			return err
		}
		out = level
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Availability sums the free units of a variant across all sources.
func (s *InventoryService) Availability(variantID uint) (int, error) {
	levels, err := s.inventoryRepo.ListLevels(variantID)
	if err != nil {
		return 0, err
	}
	available := 0
	for _, level := range levels {
		available += level.Available()
	}
	return available, nil
}
