package scheduling

// byeIndex marks the synthetic slot added for an odd roster. Pairings
// touching it are dropped, so the team opposite the bye simply rests.
const byeIndex = -1

// RoundRobin generates totalRounds of circle-method pairings for n teams.
//
// Index 0 stays fixed; every other slot rotates clockwise one position per
// round. A full cycle of len-1 rounds makes every team meet every other
// exactly once. When totalRounds runs past a full cycle the pairings repeat
// with home and away swapped, so a double round-robin reverses venues
// instead of duplicating fixtures.
func RoundRobin(n, totalRounds int) ([][]Pairing, error) {
	if n < 2 {
		return nil, ErrTooFewTeams
	}
	if totalRounds < 1 {
		return nil, ErrInvalidRoundCount
	}

	arena := make([]int, 0, n+1)
	for i := 0; i < n; i++ {
		arena = append(arena, i)
	}
	if n%2 != 0 {
		arena = append(arena, byeIndex)
	}

	size := len(arena)
	cycle := size - 1

	rounds := make([][]Pairing, 0, totalRounds)
	for r := 0; r < totalRounds; r++ {
		swapVenues := (r/cycle)%2 == 1

		pairings := make([]Pairing, 0, size/2)
		for i := 0; i < size/2; i++ {
			home, away := arena[i], arena[size-1-i]
			if home == byeIndex || away == byeIndex {
				continue
			}
			if swapVenues {
				home, away = away, home
			}
			pairings = append(pairings, Pairing{Round: r + 1, Home: home, Away: away})
		}
		rounds = append(rounds, pairings)

		rotate(arena)
	}
	return rounds, nil
}

// rotate moves the last slot into position 1, shifting everything else
// right. Slot 0 is the fixed pivot of the circle method.
func rotate(a []int) {
	if len(a) < 3 {
		return
	}
	last := a[len(a)-1]
	copy(a[2:], a[1:len(a)-1])
	a[1] = last
}

// FullCycleRounds returns the number of rounds in which every team plays
// every other exactly once.
func FullCycleRounds(n int) int {
	if n%2 == 0 {
		return n - 1
	}
	return n
}
