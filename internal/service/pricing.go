package service

import (
	"sort"

	"github.com/rifa-next/internal/models"
)

// Breakdown segment kinds.
const (
	PricingKindTier = "tier"
	PricingKindBase = "base"
)

// PricingTier is one bulk-discount rule: Quantity tickets for PriceCLP.
type PricingTier struct {
	TierID   uint
	Quantity int
	PriceCLP int64
}

// PricingSegment is one line of the charge breakdown.
type PricingSegment struct {
	Kind      string `json:"kind"` // tier or base
	Quantity  int    `json:"quantity"`
	Packs     int    `json:"packs,omitempty"`
	UnitPrice int64  `json:"unit_price,omitempty"`
	PackPrice int64  `json:"pack_price,omitempty"`
	Subtotal  int64  `json:"subtotal"`
}

// PricingResult is the computed charge for a ticket quantity.
type PricingResult struct {
	TotalCLP  int64            `json:"total_clp"`
	Breakdown []PricingSegment `json:"breakdown"`
}

// ComputeBestPricing computes the cheapest charge for quantity tickets
// given the base unit price and the active discount tiers.
//
// Tiers are applied best value first: sorted by effective unit price
// (pack price / pack size) ascending, each tier contributes as many
// whole packs as fit into the remaining quantity. Whatever is left is
// charged at the base unit price. Pure function, no side effects.
func ComputeBestPricing(basePrice int64, quantity int, tiers []PricingTier) (PricingResult, error) {
	if quantity <= 0 || basePrice <= 0 {
		return PricingResult{}, ErrQuantityInvalid
	}

	usable := make([]PricingTier, 0, len(tiers))
	for _, tier := range tiers {
		if tier.Quantity <= 0 || tier.PriceCLP <= 0 {
			continue
		}
		usable = append(usable, tier)
	}
	// Effective unit price ascending; compare cross-multiplied to stay
	// in integers. Ties break on bigger pack first.
	sort.SliceStable(usable, func(i, j int) bool {
		left := usable[i].PriceCLP * int64(usable[j].Quantity)
		right := usable[j].PriceCLP * int64(usable[i].Quantity)
		if left != right {
			return left < right
		}
		return usable[i].Quantity > usable[j].Quantity
	})

	result := PricingResult{Breakdown: []PricingSegment{}}
	remaining := quantity
	for _, tier := range usable {
		if remaining < tier.Quantity {
			continue
		}
		packs := remaining / tier.Quantity
		consumed := packs * tier.Quantity
		subtotal := int64(packs) * tier.PriceCLP
		result.Breakdown = append(result.Breakdown, PricingSegment{
			Kind:      PricingKindTier,
			Quantity:  consumed,
			Packs:     packs,
			PackPrice: tier.PriceCLP,
			Subtotal:  subtotal,
		})
		result.TotalCLP += subtotal
		remaining -= consumed
	}

	if remaining > 0 {
		subtotal := int64(remaining) * basePrice
		result.Breakdown = append(result.Breakdown, PricingSegment{
			Kind:      PricingKindBase,
			Quantity:  remaining,
			UnitPrice: basePrice,
			Subtotal:  subtotal,
		})
		result.TotalCLP += subtotal
	}

	return result, nil
}

// tiersFromModels converts raffle pricing tier rows, keeping active ones.
func tiersFromModels(rows []models.RafflePricingTier) []PricingTier {
	tiers := make([]PricingTier, 0, len(rows))
	for _, row := range rows {
		if !row.IsActive {
			continue
		}
		tiers = append(tiers, PricingTier{
			TierID:   row.ID,
			Quantity: row.Quantity,
			PriceCLP: row.PriceCLP.Int64(),
		})
	}
	return tiers
}
