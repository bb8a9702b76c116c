package games

import (
	"github.com/jakefrenzel/CrownWynn/internal/engine"
)

// Keno board and draw parameters.
const (
	KenoMinNumber = 1
	KenoMaxNumber = 40
	KenoPoolSize  = 40
	KenoDrawCount = 10
	KenoMinPicks  = 1
	KenoMaxPicks  = 10
)

// KenoDraw derives the ten drawn numbers (1-40, ascending) for a round.
func KenoDraw(serverSeed, clientSeed string, nonce uint64) ([]int, error) {
	return engine.Draw(serverSeed, clientSeed, nonce, KenoDrawCount, KenoPoolSize, KenoMinNumber)
}

// CountMatches returns how many of the player's selections appear in the
// drawn numbers.
func CountMatches(selected, drawn []int) int {
	drawSet := make(map[int]bool, len(drawn))
	for _, d := range drawn {
		drawSet[d] = true
	}

	matches := 0
	for _, n := range selected {
		if drawSet[n] {
			matches++
		}
	}
	return matches
}

// VerifyKeno recomputes the draw from disclosed inputs and compares it to
// the claimed outcome (ascending, as outcomes are stored).
func VerifyKeno(serverSeed, clientSeed string, nonce uint64, claimed []int) bool {
	drawn, err := KenoDraw(serverSeed, clientSeed, nonce)
	if err != nil {
		return false
	}
	return equalInts(drawn, claimed)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
