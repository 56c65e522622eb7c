package inventory

import (
	"testing"

	"github.com/grindcity/economy-engine/pkg/econerr"
)

func TestDecidePlacement(t *testing.T) {
	tests := []struct {
		name        string
		stored      int
		escrowed    int
		forceEscrow bool
		want        Placement
		wantErr     bool
	}{
		{"empty inventory", 0, 0, false, PlaceInventory, false},
		{"room in main", 9, 3, false, PlaceInventory, false},
		{"main full goes to escrow", 10, 0, false, PlaceEscrow, false},
		{"main full escrow has room", 10, 2, false, PlaceEscrow, false},
		{"forced escrow with main empty", 0, 0, true, PlaceEscrow, false},
		{"forced escrow full falls back to main", 3, 3, true, PlaceInventory, false},
		{"both full", 10, 3, false, "", true},
		{"forced both full", 10, 3, true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecidePlacement(tt.stored, tt.escrowed, 10, 3, tt.forceEscrow)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected BothFull error, got nil")
				}
				if econerr.CodeOf(err) != econerr.CodeBothFull {
					t.Errorf("code = %s, want %s", econerr.CodeOf(err), econerr.CodeBothFull)
				}
				if !econerr.IsKind(err, econerr.Insufficient) {
					t.Errorf("kind = %s, want insufficient", econerr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("placement = %s, want %s", got, tt.want)
			}
		})
	}
}
