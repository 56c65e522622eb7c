package buffs

import (
	"testing"
	"time"

	"github.com/grindcity/economy-engine/pkg/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func live(mult float64, expiresIn time.Duration, source models.BuffSource) *models.ActiveBuff {
	exp := t0.Add(expiresIn)
	return &models.ActiveBuff{Multiplier: mult, ExpiresAt: &exp, IsActive: true, Source: source}
}

func TestDecideNew(t *testing.T) {
	d := Decide(nil, 1.25, 2*time.Hour, t0)
	if d.Outcome != models.ApplyNew {
		t.Fatalf("outcome = %s, want new", d.Outcome)
	}
	if d.Multiplier != 1.25 {
		t.Errorf("multiplier = %v, want 1.25", d.Multiplier)
	}
	if d.ExpiresAt == nil || !d.ExpiresAt.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("expiresAt = %v, want %v", d.ExpiresAt, t0.Add(2*time.Hour))
	}
}

func TestDecideExpiredRowIsNew(t *testing.T) {
	dead := live(1.5, -time.Minute, models.SourceConsumable)
	d := Decide(dead, 1.25, time.Hour, t0)
	if d.Outcome != models.ApplyNew {
		t.Fatalf("outcome = %s, want new (existing row expired)", d.Outcome)
	}
	if d.Multiplier != 1.25 {
		t.Errorf("multiplier = %v, want 1.25", d.Multiplier)
	}
}

func TestDecideUpgrade(t *testing.T) {
	existing := live(1.25, 90*time.Minute, models.SourceConsumable)
	d := Decide(existing, 1.5, 2*time.Hour, t0)
	if d.Outcome != models.ApplyUpgrade {
		t.Fatalf("outcome = %s, want upgrade", d.Outcome)
	}
	if d.Multiplier != 1.5 {
		t.Errorf("multiplier = %v, want 1.5", d.Multiplier)
	}
	if d.ExpiresAt == nil || !d.ExpiresAt.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("expiresAt = %v, want now+2h", d.ExpiresAt)
	}
	if d.PreviousRemaining != 90*time.Minute {
		t.Errorf("previousRemaining = %v, want 90m", d.PreviousRemaining)
	}
}

func TestDecideExtension(t *testing.T) {
	existing := live(1.25, 30*time.Minute, models.SourceConsumable)
	d := Decide(existing, 1.25, 2*time.Hour, t0)
	if d.Outcome != models.ApplyExtension {
		t.Fatalf("outcome = %s, want extension", d.Outcome)
	}
	want := t0.Add(30 * time.Minute).Add(2 * time.Hour)
	if d.ExpiresAt == nil || !d.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want old expiry + 2h = %v", d.ExpiresAt, want)
	}
}

func TestDecideExtensionPermanentUnchanged(t *testing.T) {
	existing := &models.ActiveBuff{Multiplier: 1.25, IsActive: true}
	d := Decide(existing, 1.25, 2*time.Hour, t0)
	if d.Outcome != models.ApplyExtension {
		t.Fatalf("outcome = %s, want extension", d.Outcome)
	}
	if d.ExpiresAt != nil {
		t.Errorf("expiresAt = %v, want nil (permanent stays permanent)", d.ExpiresAt)
	}
}

func TestDecideDowngradeRefused(t *testing.T) {
	existing := live(1.5, time.Hour, models.SourceConsumable)
	d := Decide(existing, 1.25, 8*time.Hour, t0)
	if d.Outcome != models.ApplyNoOp {
		t.Fatalf("outcome = %s, want noop", d.Outcome)
	}
	if d.Multiplier != 1.5 {
		t.Errorf("multiplier = %v, existing row must be untouched", d.Multiplier)
	}
	if d.ExpiresAt == nil || !d.ExpiresAt.Equal(*existing.ExpiresAt) {
		t.Errorf("expiresAt changed on refused downgrade")
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil, t0); got != 1.0 {
		t.Errorf("Aggregate(nil) = %v, want 1.0", got)
	}
}

func TestAggregateSources(t *testing.T) {
	tests := []struct {
		name string
		rows []models.ActiveBuff
		want float64
	}{
		{
			name: "consumables compete",
			rows: []models.ActiveBuff{
				*live(1.25, time.Hour, models.SourceConsumable),
				*live(1.5, time.Hour, models.SourceConsumable),
			},
			want: 1.5,
		},
		{
			name: "territory multiplies with consumable",
			rows: []models.ActiveBuff{
				*live(1.5, time.Hour, models.SourceConsumable),
				*live(1.2, time.Hour, models.SourceTerritory),
			},
			want: 1.8,
		},
		{
			name: "full stack C*T*J",
			rows: []models.ActiveBuff{
				*live(1.5, time.Hour, models.SourceConsumable),
				*live(1.2, time.Hour, models.SourceTerritory),
				*live(2.0, time.Hour, models.SourceJuicernaut),
			},
			want: 3.6,
		},
		{
			name: "unknown source counts as consumable",
			rows: []models.ActiveBuff{
				*live(1.5, time.Hour, models.SourceConsumable),
				*live(1.75, time.Hour, models.SourceSystem),
			},
			want: 1.75,
		},
		{
			name: "expired rows ignored",
			rows: []models.ActiveBuff{
				*live(2.0, -time.Minute, models.SourceJuicernaut),
				*live(1.25, time.Hour, models.SourceConsumable),
			},
			want: 1.25,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.rows, t0)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Aggregate() = %v, want %v", got, tt.want)
			}
		})
	}
}
