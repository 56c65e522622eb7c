package business

import (
	"math/rand"
	"testing"

	"github.com/grindcity/economy-engine/pkg/models"
)

func TestAccrue(t *testing.T) {
	def := &models.ItemDefinition{DailyRevenue: 8000, OperatingCost: 1600}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		gross, cost, net := Accrue(rng, def, 8, 0.20)
		// base 1000, variance within ±200, cost flat 200.
		if gross < 800 || gross > 1200 {
			t.Fatalf("gross %d outside [800, 1200]", gross)
		}
		if cost != 200 {
			t.Fatalf("cost = %d, want 200", cost)
		}
		if want := gross - cost; net != want {
			t.Fatalf("net = %d, want %d", net, want)
		}
	}
}

func TestAccrueNetNeverNegative(t *testing.T) {
	// Costs dwarf revenue: net clamps at zero instead of charging the owner.
	def := &models.ItemDefinition{DailyRevenue: 800, OperatingCost: 8000}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		gross, cost, net := Accrue(rng, def, 8, 0.20)
		if net != 0 {
			t.Fatalf("net = %d (gross %d, cost %d), want 0", net, gross, cost)
		}
	}
}

func TestAccrueZeroVariance(t *testing.T) {
	def := &models.ItemDefinition{DailyRevenue: 4000, OperatingCost: 800}
	rng := rand.New(rand.NewSource(9))

	gross, cost, net := Accrue(rng, def, 8, 0)
	if gross != 500 || cost != 100 || net != 400 {
		t.Fatalf("got (%d, %d, %d), want (500, 100, 400)", gross, cost, net)
	}
}
