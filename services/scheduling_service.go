package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
	"github.com/Dosada05/courtside/scheduling"
)

// AdvanceResult is the non-error outcome of Advance. Advanced == false
// with a nil error means the queue had nothing eligible, which is the
// expected steady state near the end of a division.
type AdvanceResult struct {
	Advanced bool          `json:"advanced"`
	Court    *models.Court `json:"court,omitempty"`
	Match    *models.Match `json:"match,omitempty"`
}

// SchedulingService is the façade over the queue manager, the court
// allocator and the lifecycle rules, and the only component allowed to
// run cross-entity transitions. All mutation is serialized per
// tournament; the repositories' version compare-and-swap is the second
// line of defense against writers outside this process.
type SchedulingService interface {
	Assign(ctx context.Context, matchID, courtID, expectedVersion int) (*models.Match, error)
	Start(ctx context.Context, matchID, expectedVersion int) (*models.Match, error)
	Unassign(ctx context.Context, matchID, expectedVersion int) (*models.Match, error)
	Complete(ctx context.Context, matchID, expectedVersion int, score *string) (*models.Match, error)
	Retire(ctx context.Context, matchID, expectedVersion int) (*models.Match, error)
	Requeue(ctx context.Context, matchID, expectedVersion int) (*models.Match, error)
	Enqueue(ctx context.Context, matchID, expectedVersion int) (*models.Match, error)
	SetMatchTeams(ctx context.Context, matchID, expectedVersion int, team1ID, team2ID *int) (*models.Match, error)

	Advance(ctx context.Context, courtID int) (*AdvanceResult, error)
	AdvanceAll(ctx context.Context, tournamentID int) ([]AdvanceResult, error)
	SeedQueue(ctx context.Context, tournamentID int) ([]*models.Match, error)

	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	GetCourt(ctx context.Context, courtID int) (*models.Court, error)
	ListQueue(ctx context.Context, tournamentID int, divisionID *int) ([]*models.Match, error)
}

type schedulingService struct {
	matchRepo      repositories.MatchRepository
	courtRepo      repositories.CourtRepository
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository

	queue     *scheduling.QueueManager
	allocator *scheduling.CourtAllocator

	summary SummaryService
	hub     *scheduling.Hub
	logger  *slog.Logger

	// One mutex per tournament: the critical section is memory-speed
	// state checks plus one CAS write, never I/O held across requests.
	locks sync.Map
}

func NewSchedulingService(
	matchRepo repositories.MatchRepository,
	courtRepo repositories.CourtRepository,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	summary SummaryService,
	hub *scheduling.Hub,
	logger *slog.Logger,
) SchedulingService {
	return &schedulingService{
		matchRepo:      matchRepo,
		courtRepo:      courtRepo,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		queue:          scheduling.NewQueueManager(matchRepo),
		allocator:      scheduling.NewCourtAllocator(courtRepo),
		summary:        summary,
		hub:            hub,
		logger:         logger,
	}
}

// lockTournament serializes writers for one tournament. Readers
// (Summary, queue listings) never take this lock.
func (s *schedulingService) lockTournament(tournamentID int) func() {
	v, _ := s.locks.LoadOrStore(tournamentID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *schedulingService) Assign(ctx context.Context, matchID, courtID, expectedVersion int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTournament(match.TournamentID)
	defer unlock()

	// Re-read under the lock: the pre-lock snapshot may be stale.
	match, err = s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Version != expectedVersion {
		return nil, scheduling.ErrConcurrentModification
	}
	if match.Status != models.MatchStatusQueued {
		return nil, scheduling.ErrMatchNotQueued
	}

	court, err := s.courtRepo.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if court.TournamentID != match.TournamentID {
		return nil, ErrCourtTournamentMismatch
	}
	if court.DivisionID != nil && *court.DivisionID != match.DivisionID {
		return nil, fmt.Errorf("%w: division %d", ErrCourtDivisionRestricted, *court.DivisionID)
	}
	if err := scheduling.CheckTransition(match.Status, models.MatchStatusAssigned); err != nil {
		return nil, err
	}

	updatedCourt, updatedMatch, err := s.allocator.Occupy(ctx, court, match)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, match.TournamentID,
		scheduling.Event{Type: scheduling.EventMatchUpdated, Payload: updatedMatch},
		scheduling.Event{Type: scheduling.EventCourtUpdated, Payload: updatedCourt},
	)
	return updatedMatch, nil
}

func (s *schedulingService) Start(ctx context.Context, matchID, expectedVersion int) (*models.Match, error) {
	return s.transition(ctx, matchID, expectedVersion, models.MatchStatusActive, nil)
}

func (s *schedulingService) Unassign(ctx context.Context, matchID, expectedVersion int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTournament(match.TournamentID)
	defer unlock()

	match, err = s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Version != expectedVersion {
		return nil, scheduling.ErrConcurrentModification
	}
	if err := scheduling.CheckTransition(match.Status, models.MatchStatusQueued); err != nil {
		return nil, err
	}
	courtID := match.CourtID

	// Back to the tail of the queue; the abandoned slot is not restored.
	updated, err := s.queue.Enqueue(ctx, match)
	if err != nil {
		return nil, err
	}
	if courtID != nil {
		if _, err := s.allocator.Release(ctx, *courtID); err != nil {
			return nil, err
		}
	}

	s.afterMutation(ctx, match.TournamentID,
		scheduling.Event{Type: scheduling.EventMatchUpdated, Payload: updated},
		scheduling.Event{Type: scheduling.EventQueueUpdated, Payload: updated},
	)
	return updated, nil
}

func (s *schedulingService) Complete(ctx context.Context, matchID, expectedVersion int, score *string) (*models.Match, error) {
	return s.transition(ctx, matchID, expectedVersion, models.MatchStatusCompleted, score)
}

func (s *schedulingService) Retire(ctx context.Context, matchID, expectedVersion int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTournament(match.TournamentID)
	defer unlock()

	match, err = s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	// Retiring an already retired match is a no-op success so the
	// operator shortcut can be re-triggered safely.
	if match.Status == models.MatchStatusRetired {
		return match, nil
	}
	if match.Version != expectedVersion {
		return nil, scheduling.ErrConcurrentModification
	}

	var updated *models.Match
	if match.Status == models.MatchStatusQueued {
		updated, err = s.queue.Remove(ctx, match, models.MatchStatusRetired)
	} else {
		updated, err = s.applyTransition(ctx, match, models.MatchStatusRetired, nil)
	}
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, match.TournamentID,
		scheduling.Event{Type: scheduling.EventMatchUpdated, Payload: updated},
	)
	return updated, nil
}

func (s *schedulingService) Requeue(ctx context.Context, matchID, expectedVersion int) (*models.Match, error) {
	return s.enqueueExisting(ctx, matchID, expectedVersion)
}

func (s *schedulingService) Enqueue(ctx context.Context, matchID, expectedVersion int) (*models.Match, error) {
	return s.enqueueExisting(ctx, matchID, expectedVersion)
}

func (s *schedulingService) enqueueExisting(ctx context.Context, matchID, expectedVersion int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTournament(match.TournamentID)
	defer unlock()

	match, err = s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Version != expectedVersion {
		return nil, scheduling.ErrConcurrentModification
	}

	updated, err := s.queue.Enqueue(ctx, match)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, match.TournamentID,
		scheduling.Event{Type: scheduling.EventQueueUpdated, Payload: updated},
	)
	return updated, nil
}

func (s *schedulingService) SetMatchTeams(ctx context.Context, matchID, expectedVersion int, team1ID, team2ID *int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTournament(match.TournamentID)
	defer unlock()

	match, err = s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Version != expectedVersion {
		return nil, scheduling.ErrConcurrentModification
	}

	bracket, err := s.tournamentRepo.GetBracket(ctx, match.BracketID)
	if err != nil {
		return nil, err
	}
	if bracket.Locked {
		return nil, scheduling.ErrBracketLocked
	}
	// A queued (or later) match must keep both teams determined; a slot
	// can only be cleared while the match is still pending.
	if match.Status != models.MatchStatusPending && (team1ID == nil || team2ID == nil) {
		return nil, fmt.Errorf("%w: match %d", scheduling.ErrMatchNotQueueable, matchID)
	}

	updated, err := s.matchRepo.SetTeams(ctx, matchID, match.Version, team1ID, team2ID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchVersionMismatch) {
			return nil, scheduling.ErrConcurrentModification
		}
		return nil, err
	}

	// A pending match whose last team slot was just filled enters the
	// queue immediately.
	if updated.Status == models.MatchStatusPending && updated.Queueable() {
		updated, err = s.queue.Enqueue(ctx, updated)
		if err != nil {
			return nil, err
		}
	}

	s.afterMutation(ctx, match.TournamentID,
		scheduling.Event{Type: scheduling.EventMatchUpdated, Payload: updated},
	)
	return updated, nil
}

func (s *schedulingService) Advance(ctx context.Context, courtID int) (*AdvanceResult, error) {
	court, err := s.courtRepo.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTournament(court.TournamentID)
	defer unlock()

	result, err := s.advanceCourtLocked(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if result.Advanced {
		s.afterMutation(ctx, court.TournamentID,
			scheduling.Event{Type: scheduling.EventMatchUpdated, Payload: result.Match},
			scheduling.Event{Type: scheduling.EventCourtUpdated, Payload: result.Court},
		)
	}
	return result, nil
}

// advanceCourtLocked assumes the tournament lock is held.
func (s *schedulingService) advanceCourtLocked(ctx context.Context, courtID int) (*AdvanceResult, error) {
	court, err := s.courtRepo.GetByID(ctx, courtID)
	if err != nil {
		return nil, err
	}
	if !court.Free() {
		return nil, scheduling.ErrCourtUnavailable
	}

	match, err := s.queue.PeekNext(ctx, court.TournamentID, court)
	if err != nil {
		if errors.Is(err, scheduling.ErrNoEligibleMatch) {
			return &AdvanceResult{Advanced: false, Court: court}, nil
		}
		return nil, err
	}

	updatedCourt, updatedMatch, err := s.allocator.Occupy(ctx, court, match)
	if err != nil {
		return nil, err
	}
	return &AdvanceResult{Advanced: true, Court: updatedCourt, Match: updatedMatch}, nil
}

func (s *schedulingService) AdvanceAll(ctx context.Context, tournamentID int) ([]AdvanceResult, error) {
	unlock := s.lockTournament(tournamentID)
	defer unlock()

	courts, err := s.courtRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	results := make([]AdvanceResult, 0)
	events := make([]scheduling.Event, 0)
	for _, court := range courts {
		if !court.Free() {
			continue
		}
		result, err := s.advanceCourtLocked(ctx, court.ID)
		if err != nil {
			return nil, err
		}
		if !result.Advanced {
			// Division-restricted courts may still find work even when an
			// unrestricted court found the queue empty, so keep going.
			continue
		}
		results = append(results, *result)
		events = append(events,
			scheduling.Event{Type: scheduling.EventMatchUpdated, Payload: result.Match},
			scheduling.Event{Type: scheduling.EventCourtUpdated, Payload: result.Court},
		)
	}
	if len(results) > 0 {
		s.afterMutation(ctx, tournamentID, events...)
	}
	return results, nil
}

func (s *schedulingService) SeedQueue(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	unlock := s.lockTournament(tournamentID)
	defer unlock()

	pending := models.MatchStatusPending
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &pending, nil)
	if err != nil {
		return nil, err
	}

	// Matches are enqueued in emission (id) order, preserving the
	// generator's intent; ListByTournament already sorts by id within
	// equal positions.
	enqueued := make([]*models.Match, 0)
	for _, match := range matches {
		if !match.Queueable() {
			continue
		}
		updated, err := s.queue.Enqueue(ctx, match)
		if err != nil {
			return nil, err
		}
		enqueued = append(enqueued, updated)
	}

	if len(enqueued) > 0 {
		s.afterMutation(ctx, tournamentID,
			scheduling.Event{Type: scheduling.EventQueueUpdated, Payload: enqueued},
		)
	}
	return enqueued, nil
}

func (s *schedulingService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.populateMatchTeams(ctx, match)
	return match, nil
}

func (s *schedulingService) GetCourt(ctx context.Context, courtID int) (*models.Court, error) {
	return s.courtRepo.GetByID(ctx, courtID)
}

func (s *schedulingService) ListQueue(ctx context.Context, tournamentID int, divisionID *int) ([]*models.Match, error) {
	queued := models.MatchStatusQueued
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, &queued, divisionID)
	if err != nil {
		return nil, err
	}
	for _, match := range matches {
		s.populateMatchTeams(ctx, match)
	}
	return matches, nil
}

// transition runs the common single-match path: version check,
// lifecycle validation, CAS write, court release when leaving a court.
func (s *schedulingService) transition(ctx context.Context, matchID, expectedVersion int, to models.MatchStatus, score *string) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockTournament(match.TournamentID)
	defer unlock()

	match, err = s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Version != expectedVersion {
		return nil, scheduling.ErrConcurrentModification
	}

	updated, err := s.applyTransition(ctx, match, to, score)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, match.TournamentID,
		scheduling.Event{Type: scheduling.EventMatchUpdated, Payload: updated},
	)
	return updated, nil
}

// applyTransition validates and writes from -> to, keeping the court
// reference only while the target status lives on court.
func (s *schedulingService) applyTransition(ctx context.Context, match *models.Match, to models.MatchStatus, score *string) (*models.Match, error) {
	if err := scheduling.CheckTransition(match.Status, to); err != nil {
		return nil, err
	}

	var courtID *int
	if to.OnCourt() {
		courtID = match.CourtID
	}
	releasedCourt := match.CourtID

	updated, err := s.matchRepo.UpdateLifecycle(ctx, match.ID, match.Version, repositories.MatchLifecycleUpdate{
		Status:  to,
		CourtID: courtID,
		Score:   score,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchVersionMismatch) {
			return nil, scheduling.ErrConcurrentModification
		}
		return nil, err
	}

	if !to.OnCourt() && releasedCourt != nil {
		// The store already cleared occupancy in the same transaction as
		// the match update; this is the idempotent no-op release the
		// lifecycle table names as the transition's side effect.
		if _, err := s.allocator.Release(ctx, *releasedCourt); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// afterMutation invalidates the summary cache and pushes fresh state to
// the tournament's websocket room. Push failures only get logged; the
// mutation itself has already committed.
func (s *schedulingService) afterMutation(ctx context.Context, tournamentID int, events ...scheduling.Event) {
	s.summary.Invalidate(tournamentID)

	if s.hub == nil {
		return
	}
	room := scheduling.RoomID(tournamentID)
	for _, event := range events {
		s.hub.BroadcastToRoom(room, event)
	}
	summary, err := s.summary.GetSummary(ctx, tournamentID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to recompute summary after mutation",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}
	s.hub.BroadcastToRoom(room, scheduling.Event{Type: scheduling.EventSummaryUpdated, Payload: summary})
}

func (s *schedulingService) populateMatchTeams(ctx context.Context, match *models.Match) {
	if s.teamRepo == nil {
		return
	}
	if match.Team1ID != nil {
		if team, err := s.teamRepo.GetByID(ctx, *match.Team1ID); err == nil {
			match.Team1 = team
		}
	}
	if match.Team2ID != nil {
		if team, err := s.teamRepo.GetByID(ctx, *match.Team2ID); err == nil {
			match.Team2 = team
		}
	}
}
