package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
)

// QueueManager orders matches awaiting a court. Queue positions are a
// tournament-wide monotonic counter: a division-scoped view is a filter
// over the same total order, so relative order agrees in both scopes
// and removal never renumbers anything.
type QueueManager struct {
	matches repositories.MatchRepository
}

func NewQueueManager(matches repositories.MatchRepository) *QueueManager {
	return &QueueManager{matches: matches}
}

// Enqueue appends the match at the tail of its tournament's queue.
// Matches enqueued one after another keep their emission order; the
// manager never reorders by seed or priority on its own.
func (q *QueueManager) Enqueue(ctx context.Context, match *models.Match) (*models.Match, error) {
	if match.Status == models.MatchStatusQueued {
		return nil, ErrAlreadyQueued
	}
	if !match.Queueable() {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotQueueable, match.ID)
	}
	if err := CheckTransition(match.Status, models.MatchStatusQueued); err != nil {
		return nil, err
	}

	position, err := q.matches.NextQueuePosition(ctx, match.TournamentID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	updated, err := q.matches.UpdateLifecycle(ctx, match.ID, match.Version, repositories.MatchLifecycleUpdate{
		Status:        models.MatchStatusQueued,
		QueuePosition: &position,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return updated, nil
}

// PeekNext returns the queued match with the lowest position that the
// given court may host (a court can be restricted to one division).
// It never mutates state.
func (q *QueueManager) PeekNext(ctx context.Context, tournamentID int, court *models.Court) (*models.Match, error) {
	var divisionID *int
	if court != nil {
		divisionID = court.DivisionID
	}
	match, err := q.matches.FirstQueued(ctx, tournamentID, divisionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoQueuedMatches) {
			return nil, ErrNoEligibleMatch
		}
		return nil, mapStoreError(err)
	}
	return match, nil
}

// Remove takes a queued match out of queue bookkeeping as part of the
// transition to the given status (retire-before-play). Remaining
// positions are left as they are.
func (q *QueueManager) Remove(ctx context.Context, match *models.Match, to models.MatchStatus) (*models.Match, error) {
	if match.Status != models.MatchStatusQueued {
		return nil, ErrMatchNotQueued
	}
	if err := CheckTransition(match.Status, to); err != nil {
		return nil, err
	}
	updated, err := q.matches.UpdateLifecycle(ctx, match.ID, match.Version, repositories.MatchLifecycleUpdate{
		Status: to,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return updated, nil
}

// mapStoreError translates repository results into the scheduling
// taxonomy. Not-found sentinels pass through untouched; anything
// unrecognized is a storage failure the caller should not retry here.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchVersionMismatch):
		return ErrConcurrentModification
	case errors.Is(err, repositories.ErrMatchNotFound),
		errors.Is(err, repositories.ErrCourtNotFound),
		errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrBracketNotFound),
		errors.Is(err, repositories.ErrNoQueuedMatches):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}
