package models

import "time"

// TournamentStatus mirrors the tournaments.status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusSetup     TournamentStatus = "setup"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
)

type Tournament struct {
	ID         int              `json:"id" db:"id"`
	Name       string           `json:"name" db:"name"`
	Slug       string           `json:"slug" db:"slug"`
	Status     TournamentStatus `json:"status" db:"status"`
	CourtCount int              `json:"court_count" db:"court_count"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	LogoKey    *string          `json:"-" db:"logo_key"`
	LogoURL    *string          `json:"logo_url,omitempty" db:"-"`

	Divisions []*Division `json:"divisions,omitempty" db:"-"`
	Courts    []*Court    `json:"courts,omitempty" db:"-"`
}

type Division struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	Name         string `json:"name" db:"name"`

	Brackets []Bracket `json:"brackets,omitempty" db:"-"`
}

type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
	BracketRoundRobin        BracketType = "round_robin"
)

// Bracket is a structured set of matches within a division. Once Locked,
// its match set (teams, slots) is frozen; only lifecycle state may change.
type Bracket struct {
	ID         int         `json:"id" db:"id"`
	DivisionID int         `json:"division_id" db:"division_id"`
	Type       BracketType `json:"type" db:"type"`
	Locked     bool        `json:"locked" db:"locked"`
}
