package models

import "time"

// Team is the scheduling unit of a competition. A club joins with a team
// directly; an individual participant is wrapped into a singleton team at
// enrollment time. Membership is immutable while a schedule exists.
type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ClubID    *int      `json:"club_id,omitempty" db:"club_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	MemberIDs []int64 `json:"member_ids,omitempty" db:"-"`
}
