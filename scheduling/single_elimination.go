package scheduling

import "fmt"

// SingleElimination pairs the opening round of a knockout bracket:
// slot 2i meets slot 2i+1. Later rounds depend on results and are paired
// lazily by the progress tracker once a round's winners are known, using
// the same adjacent pairing over the surviving roster.
//
// The bracket size must be a power of two. Byes are an organizer decision,
// not something the engine inserts silently.
func SingleElimination(n int) ([]Pairing, error) {
	if n < 2 {
		return nil, ErrTooFewTeams
	}
	if !IsPowerOfTwo(n) {
		return nil, ErrInvalidBracketSize
	}

	pairings := make([]Pairing, 0, n/2)
	for i := 0; i < n/2; i++ {
		pairings = append(pairings, Pairing{Round: 1, Home: 2 * i, Away: 2*i + 1})
	}
	return pairings, nil
}

// BracketRounds returns log2(n): the number of rounds a full bracket runs.
func BracketRounds(n int) int {
	rounds := 0
	for n > 1 {
		n >>= 1
		rounds++
	}
	return rounds
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// RoundLabel names a knockout round by how many teams are still alive when
// it starts.
func RoundLabel(teamsAlive int) string {
	switch teamsAlive {
	case 2:
		return "final"
	case 4:
		return "semifinal"
	case 8:
		return "quarterfinal"
	default:
		return fmt.Sprintf("round_of_%d", teamsAlive)
	}
}
