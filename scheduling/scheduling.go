// Package scheduling contains the pure fixture-generation algorithms for
// both competition kinds. Schedulers work over roster indexes, never over
// persisted entities, so the services layer decides how pairings become
// match records.
package scheduling

import "errors"

var (
	ErrTooFewTeams        = errors.New("scheduling: at least two teams required")
	ErrInvalidRoundCount  = errors.New("scheduling: total rounds must be positive")
	ErrInvalidBracketSize = errors.New("scheduling: bracket size must be a power of two")
)

// Pairing is one fixture slot. Home and Away are indexes into the roster
// given to the scheduler, in enrollment order.
type Pairing struct {
	Round int
	Home  int
	Away  int
}
