package models

// WinningMethod describes how a decisive result is produced for a match:
// points to reach, number of sets, and whether a drawn final score is an
// acceptable outcome. A knockout competition must use a method with
// AllowsDraw=false; the completion path enforces this.
type WinningMethod struct {
	ID              int     `json:"id" db:"id"`
	Name            string  `json:"name" db:"name"`
	PointsNeeded    int     `json:"points_needed" db:"points_needed"`
	Sets            int     `json:"sets" db:"sets"`
	AllowsDraw      bool    `json:"allows_draw" db:"allows_draw"`
	AdditionalRules *string `json:"additional_rules,omitempty" db:"additional_rules"`
}
