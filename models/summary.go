package models

// Summary is the dashboard/kiosk counter block. It is derived from
// current match/court state on demand and cached until the next
// successful scheduling mutation.
type Summary struct {
	TournamentID   int `json:"tournament_id"`
	TotalDivisions int `json:"total_divisions"`
	TotalBrackets  int `json:"total_brackets"`
	TotalCourts    int `json:"total_courts"`
	ActiveCourts   int `json:"active_courts"`
	ActiveMatches  int `json:"active_matches"`
	QueuedMatches  int `json:"queued_matches"`

	Divisions []DivisionSummary `json:"divisions"`
}

type DivisionSummary struct {
	DivisionID      int    `json:"division_id"`
	Name            string `json:"name"`
	Brackets        int    `json:"brackets"`
	LockedBrackets  int    `json:"locked_brackets"`
	PendingMatches  int    `json:"pending_matches"`
	QueuedMatches   int    `json:"queued_matches"`
	FinishedMatches int    `json:"finished_matches"`
}
