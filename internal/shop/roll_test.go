package shop

import (
	"math/rand"
	"testing"

	"github.com/grindcity/economy-engine/pkg/models"
)

func TestOfferPriceBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const base = 10000
	for i := 0; i < 1000; i++ {
		p := offerPrice(rng, base)
		if p < 9000 || p > 11000 {
			t.Fatalf("offerPrice(%d) = %d, outside ±10%%", base, p)
		}
	}
}

func TestOfferPriceFloorsAtOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	if p := offerPrice(rng, 0); p != 1 {
		t.Errorf("offerPrice(0) = %d, want 1", p)
	}
	for i := 0; i < 100; i++ {
		if p := offerPrice(rng, 3); p < 1 {
			t.Fatalf("offerPrice(3) = %d, want >= 1", p)
		}
	}
}

func TestRollTierFavorsCommon(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	counts := map[models.ItemTier]int{}
	for i := 0; i < 20000; i++ {
		counts[rollTier(rng)]++
	}
	if counts[models.ItemCommon] <= counts[models.ItemUncommon] ||
		counts[models.ItemUncommon] <= counts[models.ItemRare] ||
		counts[models.ItemRare] <= counts[models.ItemLegendary] {
		t.Errorf("tier frequencies not descending: %v", counts)
	}
	if counts[models.ItemLegendary] == 0 {
		t.Error("legendary never rolled in 20000 draws")
	}
}
