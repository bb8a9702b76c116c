package games

import (
	"fmt"
	"math"

	"github.com/jakefrenzel/CrownWynn/internal/engine"
)

// Mines grid parameters. The board is a 5x5 grid of 25 tiles.
const (
	MinesTotalTiles = 25
	MinesMinCount   = 1
	MinesMaxCount   = 24
)

// DefaultHouseEdge is the house edge applied to the Mines multiplier when
// no override is configured.
const DefaultHouseEdge = 0.01

// MinePositions derives the full mine layout (ascending tile indexes 0-24)
// for a round. The layout is drawn once at round start and committed; it is
// never regenerated per reveal.
func MinePositions(serverSeed, clientSeed string, nonce uint64, minesCount int) ([]int, error) {
	if minesCount < MinesMinCount || minesCount > MinesMaxCount {
		return nil, fmt.Errorf("mines count must be between %d and %d, got %d", MinesMinCount, MinesMaxCount, minesCount)
	}
	return engine.Draw(serverSeed, clientSeed, nonce, minesCount, MinesTotalTiles, 0)
}

// MinesMultiplier returns the payout multiplier after revealed safe tiles
// with minesCount mines on the board: (1 - houseEdge) divided by the
// hypergeometric probability of surviving that many reveals, rounded
// half-away-from-zero to two decimals. Zero reveals pay exactly 1.00, and
// each additional safe reveal strictly increases the multiplier.
func MinesMultiplier(revealed, minesCount int, houseEdge float64) float64 {
	if revealed <= 0 {
		return 1.00
	}

	p := 1.0
	for i := 0; i < revealed; i++ {
		p *= float64(MinesTotalTiles-minesCount-i) / float64(MinesTotalTiles-i)
	}

	m := (1 - houseEdge) / p
	return math.Round(m*100) / 100
}

// VerifyMines recomputes the mine layout from disclosed inputs and compares
// it to the claimed outcome (ascending, as outcomes are stored).
func VerifyMines(serverSeed, clientSeed string, nonce uint64, minesCount int, claimed []int) bool {
	positions, err := MinePositions(serverSeed, clientSeed, nonce, minesCount)
	if err != nil {
		return false
	}
	return equalInts(positions, claimed)
}
