package models

import "time"

// MatchStatus mirrors the matches.status ENUM in the database.
type MatchStatus string

const (
	// MatchStatusPending marks a match whose teams are not yet determined
	// (e.g. a semifinal waiting on quarterfinal winners). Not queueable.
	MatchStatusPending MatchStatus = "pending"

	MatchStatusQueued    MatchStatus = "queued"
	MatchStatusAssigned  MatchStatus = "assigned"
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusRetired   MatchStatus = "retired"
)

// OnCourt reports whether the status requires a court reference.
// Invariant: CourtID != nil <=> status is assigned or active.
func (s MatchStatus) OnCourt() bool {
	return s == MatchStatusAssigned || s == MatchStatusActive
}

// Terminal reports whether no further transitions are allowed,
// except the explicit retired -> queued requeue.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusRetired
}

type Match struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	DivisionID   int    `json:"division_id" db:"division_id"`
	BracketID    int    `json:"bracket_id" db:"bracket_id"`
	BracketSlot  string `json:"bracket_slot" db:"bracket_slot"`
	Team1ID      *int   `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID      *int   `json:"team2_id,omitempty" db:"team2_id"`

	Status MatchStatus `json:"status" db:"status"`

	// QueuePosition is meaningful only while Status == queued. Positions
	// form a tournament-wide total order; gaps are fine, so removal never
	// renumbers the rest of the queue.
	QueuePosition *int `json:"queue_position,omitempty" db:"queue_position"`

	// CourtID is set only while Status is assigned or active.
	CourtID *int `json:"court_id,omitempty" db:"court_id"`

	Score *string `json:"score,omitempty" db:"score"`

	// Version increments on every transition and backs optimistic
	// concurrency control: mutating calls must present the version they
	// last observed.
	Version int `json:"version" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Team1 *Team `json:"team1,omitempty" db:"-"`
	Team2 *Team `json:"team2,omitempty" db:"-"`
}

// Queueable reports whether both team slots are determined, i.e. the
// match may leave pending and enter the queue.
func (m *Match) Queueable() bool {
	return m.Team1ID != nil && m.Team2ID != nil
}
