package scheduling

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func pairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

func TestRoundRobinFullCycleEven(t *testing.T) {
	for _, n := range []int{2, 4, 6, 8, 12} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			rounds, err := RoundRobin(n, n-1)
			require.NoError(t, err)
			require.Len(t, rounds, n-1)

			seen := make(map[string]int)
			for i, round := range rounds {
				require.Len(t, round, n/2, "round %d", i+1)
				for _, p := range round {
					require.Equal(t, i+1, p.Round)
					require.NotEqual(t, p.Home, p.Away)
					seen[pairKey(p.Home, p.Away)]++
				}
			}

			require.Len(t, seen, n*(n-1)/2, "every unordered pair appears")
			for key, count := range seen {
				require.Equal(t, 1, count, "pair %s plays exactly once", key)
			}
		})
	}
}

func TestRoundRobinOddCountUsesBye(t *testing.T) {
	n := 5
	rounds, err := RoundRobin(n, n)
	require.NoError(t, err)
	require.Len(t, rounds, n)

	seen := make(map[string]int)
	for _, round := range rounds {
		// One team rests each round.
		require.Len(t, round, n/2)
		for _, p := range round {
			require.GreaterOrEqual(t, p.Home, 0)
			require.GreaterOrEqual(t, p.Away, 0)
			require.Less(t, p.Home, n)
			require.Less(t, p.Away, n)
			seen[pairKey(p.Home, p.Away)]++
		}
	}
	require.Len(t, seen, n*(n-1)/2)
	for _, count := range seen {
		require.Equal(t, 1, count)
	}
}

func TestRoundRobinFourTeamScenario(t *testing.T) {
	// Roster order A=0, B=1, C=2, D=3.
	rounds, err := RoundRobin(4, 3)
	require.NoError(t, err)
	require.Equal(t, [][]Pairing{
		{{Round: 1, Home: 0, Away: 3}, {Round: 1, Home: 1, Away: 2}},
		{{Round: 2, Home: 0, Away: 2}, {Round: 2, Home: 3, Away: 1}},
		{{Round: 3, Home: 0, Away: 1}, {Round: 3, Home: 2, Away: 3}},
	}, rounds)
}

func TestRoundRobinSecondCycleSwapsVenues(t *testing.T) {
	n := 4
	rounds, err := RoundRobin(n, 2*(n-1))
	require.NoError(t, err)
	require.Len(t, rounds, 2*(n-1))

	for r := 0; r < n-1; r++ {
		first, second := rounds[r], rounds[r+n-1]
		require.Len(t, second, len(first))
		for i := range first {
			require.Equal(t, first[i].Home, second[i].Away, "round %d fixture %d", r+1, i)
			require.Equal(t, first[i].Away, second[i].Home, "round %d fixture %d", r+1, i)
		}
	}
}

func TestRoundRobinRejectsBadInput(t *testing.T) {
	tests := []struct {
		name        string
		teams       int
		totalRounds int
		wantErr     error
	}{
		{"zero teams", 0, 1, ErrTooFewTeams},
		{"one team", 1, 1, ErrTooFewTeams},
		{"zero rounds", 4, 0, ErrInvalidRoundCount},
		{"negative rounds", 4, -1, ErrInvalidRoundCount},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RoundRobin(tc.teams, tc.totalRounds)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFullCycleRounds(t *testing.T) {
	require.Equal(t, 3, FullCycleRounds(4))
	require.Equal(t, 5, FullCycleRounds(5))
	require.Equal(t, 1, FullCycleRounds(2))
}
