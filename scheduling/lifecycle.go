package scheduling

import (
	"fmt"

	"github.com/Dosada05/courtside/models"
)

// allowedTransitions is the match state machine. Completed is terminal;
// retired is terminal except for the explicit requeue edge back to queued.
var allowedTransitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchStatusPending:   {models.MatchStatusQueued},
	models.MatchStatusQueued:    {models.MatchStatusAssigned, models.MatchStatusRetired},
	models.MatchStatusAssigned:  {models.MatchStatusActive, models.MatchStatusQueued, models.MatchStatusRetired},
	models.MatchStatusActive:    {models.MatchStatusCompleted, models.MatchStatusRetired},
	models.MatchStatusCompleted: {},
	models.MatchStatusRetired:   {models.MatchStatusQueued},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to models.MatchStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition validates from -> to and returns ErrInvalidTransition
// naming both states when the edge is not in the table.
func CheckTransition(from, to models.MatchStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
