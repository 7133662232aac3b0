package models

import "time"

type Court struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	Label        string `json:"label" db:"label"`
	Active       bool   `json:"active" db:"active"`

	// DivisionID restricts the court to matches of one division when set.
	DivisionID *int `json:"division_id,omitempty" db:"division_id"`

	// CurrentMatchID is nil for a free court. When set it refers to
	// exactly one match whose CourtID points back at this court.
	CurrentMatchID *int `json:"current_match_id,omitempty" db:"current_match_id"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Free reports whether the court can receive a match right now.
func (c *Court) Free() bool {
	return c.Active && c.CurrentMatchID == nil
}
