package service

import "testing"

func TestComputeBestPricingExactTier(t *testing.T) {
	result, err := ComputeBestPricing(1000, 5, []PricingTier{{Quantity: 5, PriceCLP: 4000}})
	if err != nil {
		t.Fatalf("ComputeBestPricing error: %v", err)
	}
	if result.TotalCLP != 4000 {
		t.Fatalf("expected total 4000, got %d", result.TotalCLP)
	}
	if len(result.Breakdown) != 1 {
		t.Fatalf("expected single breakdown segment, got %d", len(result.Breakdown))
	}
	segment := result.Breakdown[0]
	if segment.Kind != PricingKindTier || segment.Quantity != 5 || segment.Subtotal != 4000 {
		t.Fatalf("unexpected segment: %+v", segment)
	}
}

func TestComputeBestPricingTierPlusRemainder(t *testing.T) {
	result, err := ComputeBestPricing(1000, 7, []PricingTier{{Quantity: 5, PriceCLP: 4000}})
	if err != nil {
		t.Fatalf("ComputeBestPricing error: %v", err)
	}
	if result.TotalCLP != 6000 {
		t.Fatalf("expected total 6000, got %d", result.TotalCLP)
	}
	if len(result.Breakdown) != 2 {
		t.Fatalf("expected tier plus base segments, got %d", len(result.Breakdown))
	}
	if result.Breakdown[0].Kind != PricingKindTier || result.Breakdown[0].Quantity != 5 {
		t.Fatalf("unexpected tier segment: %+v", result.Breakdown[0])
	}
	if result.Breakdown[1].Kind != PricingKindBase || result.Breakdown[1].Quantity != 2 || result.Breakdown[1].Subtotal != 2000 {
		t.Fatalf("unexpected base segment: %+v", result.Breakdown[1])
	}
}

func TestComputeBestPricingPicksBestValueTierFirst(t *testing.T) {
	tiers := []PricingTier{
		{Quantity: 3, PriceCLP: 2700}, // 900 per ticket
		{Quantity: 5, PriceCLP: 4000}, // 800 per ticket
	}
	result, err := ComputeBestPricing(1000, 8, tiers)
	if err != nil {
		t.Fatalf("ComputeBestPricing error: %v", err)
	}
	// One pack of 5 at 4000, one pack of 3 at 2700.
	if result.TotalCLP != 6700 {
		t.Fatalf("expected total 6700, got %d", result.TotalCLP)
	}
	if result.Breakdown[0].PackPrice != 4000 {
		t.Fatalf("best value tier should apply first, got %+v", result.Breakdown[0])
	}
}

func TestComputeBestPricingMultiplePacksOfSameTier(t *testing.T) {
	result, err := ComputeBestPricing(1000, 12, []PricingTier{{Quantity: 5, PriceCLP: 4000}})
	if err != nil {
		t.Fatalf("ComputeBestPricing error: %v", err)
	}
	// 2 packs of 5 plus 2 at base price.
	if result.TotalCLP != 10000 {
		t.Fatalf("expected total 10000, got %d", result.TotalCLP)
	}
	if result.Breakdown[0].Packs != 2 || result.Breakdown[0].Quantity != 10 {
		t.Fatalf("unexpected tier segment: %+v", result.Breakdown[0])
	}
}

func TestComputeBestPricingNoTiers(t *testing.T) {
	result, err := ComputeBestPricing(1500, 3, nil)
	if err != nil {
		t.Fatalf("ComputeBestPricing error: %v", err)
	}
	if result.TotalCLP != 4500 {
		t.Fatalf("expected total 4500, got %d", result.TotalCLP)
	}
	if len(result.Breakdown) != 1 || result.Breakdown[0].Kind != PricingKindBase {
		t.Fatalf("expected single base segment, got %+v", result.Breakdown)
	}
}

func TestComputeBestPricingIgnoresDegenerateTiers(t *testing.T) {
	tiers := []PricingTier{
		{Quantity: 0, PriceCLP: 100},
		{Quantity: 2, PriceCLP: 0},
		{Quantity: 2, PriceCLP: 1800},
	}
	result, err := ComputeBestPricing(1000, 2, tiers)
	if err != nil {
		t.Fatalf("ComputeBestPricing error: %v", err)
	}
	if result.TotalCLP != 1800 {
		t.Fatalf("expected total 1800, got %d", result.TotalCLP)
	}
}

func TestComputeBestPricingRejectsBadInput(t *testing.T) {
	if _, err := ComputeBestPricing(1000, 0, nil); err == nil {
		t.Fatalf("zero quantity should be rejected")
	}
	if _, err := ComputeBestPricing(0, 5, nil); err == nil {
		t.Fatalf("zero base price should be rejected")
	}
}
