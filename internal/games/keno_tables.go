package games

// KenoPayouts maps picks count -> hits count -> multiplier.
// A multiplier of 0 is a total loss of the stake. Note that one and two
// picks pay a consolation multiplier on fewer hits, while three picks and
// up pay nothing below the table's floor.
var KenoPayouts = map[int]map[int]float64{
	1:  {0: 0.40, 1: 2.75},
	2:  {0: 0, 1: 1.80, 2: 5.10},
	3:  {0: 0, 1: 0, 2: 2.80, 3: 50.00},
	4:  {0: 0, 1: 0, 2: 1.70, 3: 10.00, 4: 100.00},
	5:  {0: 0, 1: 0, 2: 1.40, 3: 4.00, 4: 14.00, 5: 390.00},
	6:  {0: 0, 1: 0, 2: 0, 3: 3.00, 4: 9.00, 5: 180.00, 6: 710.00},
	7:  {0: 0, 1: 0, 2: 0, 3: 2.00, 4: 7.00, 5: 30.00, 6: 400.00, 7: 800.00},
	8:  {0: 0, 1: 0, 2: 0, 3: 2.00, 4: 4.00, 5: 11.00, 6: 67.00, 7: 400.00, 8: 900.00},
	9:  {0: 0, 1: 0, 2: 0, 3: 2.00, 4: 2.50, 5: 5.00, 6: 15.00, 7: 100.00, 8: 500.00, 9: 1000.00},
	10: {0: 0, 1: 0, 2: 0, 3: 1.60, 4: 2.00, 5: 4.00, 6: 7.00, 7: 26.00, 8: 100.00, 9: 500.00, 10: 1000.00},
}

// KenoMultiplier returns the payout multiplier for a picks count and hit
// count, or 0 when the combination is outside the table.
func KenoMultiplier(picks, hits int) float64 {
	if picksTable, ok := KenoPayouts[picks]; ok {
		if multiplier, ok := picksTable[hits]; ok {
			return multiplier
		}
	}
	return 0
}
