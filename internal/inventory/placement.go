package inventory

import "github.com/grindcity/economy-engine/pkg/econerr"

// Placement says where AddItem stored the row.
type Placement string

const (
	PlaceInventory Placement = "inventory"
	PlaceEscrow    Placement = "escrow"
)

// DecidePlacement applies the overflow policy to current row counts. An
// item goes to the main inventory unless forced to escrow or the main
// inventory is full; a full escrow falls back to the main inventory when
// space remains there, and only when both sides are at cap does the add
// fail. Counts must be read inside the inserting transaction.
func DecidePlacement(stored, escrowed, maxStored, maxEscrow int, forceEscrow bool) (Placement, error) {
	wantEscrow := forceEscrow || stored >= maxStored
	if !wantEscrow {
		return PlaceInventory, nil
	}
	if escrowed < maxEscrow {
		return PlaceEscrow, nil
	}
	if stored < maxStored {
		return PlaceInventory, nil
	}
	return "", econerr.New(econerr.Insufficient, econerr.CodeBothFull,
		"inventory and escrow are both full")
}
