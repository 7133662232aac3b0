package scheduling

import (
	"context"
	"errors"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
)

// CourtAllocator owns the court-to-match mapping and enforces the
// one-match-per-court invariant.
type CourtAllocator struct {
	courts repositories.CourtRepository
}

func NewCourtAllocator(courts repositories.CourtRepository) *CourtAllocator {
	return &CourtAllocator{courts: courts}
}

// Occupy places the match on the court. The court's current_match_id
// and the match's court_id change together or not at all; the guarded
// store update also means that of two concurrent Occupy calls for the
// same court exactly one wins.
func (a *CourtAllocator) Occupy(ctx context.Context, court *models.Court, match *models.Match) (*models.Court, *models.Match, error) {
	if match.CourtID != nil {
		return nil, nil, ErrMatchAlreadyAssigned
	}
	if !court.Active || court.CurrentMatchID != nil {
		return nil, nil, ErrCourtUnavailable
	}

	updatedCourt, updatedMatch, err := a.courts.Occupy(ctx, court.ID, match.ID, match.Version)
	if err != nil {
		// A racing occupy can slip in between our read and the store
		// update; it surfaces here as the court no longer being free.
		if errors.Is(err, repositories.ErrCourtNotFree) {
			return nil, nil, ErrCourtUnavailable
		}
		return nil, nil, mapStoreError(err)
	}
	return updatedCourt, updatedMatch, nil
}

// Release frees the court. Releasing an already empty court is a no-op
// success so retire/complete paths stay idempotent.
func (a *CourtAllocator) Release(ctx context.Context, courtID int) (*models.Court, error) {
	court, err := a.courts.Release(ctx, courtID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return court, nil
}

// SetActive toggles operator availability of a court. A court holding a
// match must be released before it can be deactivated.
func (a *CourtAllocator) SetActive(ctx context.Context, courtID int, active bool) (*models.Court, error) {
	court, err := a.courts.SetActive(ctx, courtID, active)
	if err != nil {
		if errors.Is(err, repositories.ErrCourtNotFree) {
			return nil, ErrCourtOccupied
		}
		return nil, mapStoreError(err)
	}
	return court, nil
}
