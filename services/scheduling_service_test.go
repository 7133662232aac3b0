package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
	"github.com/Dosada05/courtside/scheduling"
)

type serviceFixture struct {
	db         *repositories.MemoryDB
	summary    SummaryService
	scheduler  SchedulingService
	tournament *models.Tournament
	division   *models.Division
	bracket    *models.Bracket
	team1      *models.Team
	team2      *models.Team
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()
	db := repositories.NewMemoryDB()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tournament := &models.Tournament{Name: "City Slam", Slug: "city-slam", Status: models.TournamentStatusActive}
	if err := db.Tournaments().Create(ctx, tournament); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	division := &models.Division{TournamentID: tournament.ID, Name: "Open"}
	if err := db.Tournaments().CreateDivision(ctx, division); err != nil {
		t.Fatalf("create division: %v", err)
	}
	bracket := &models.Bracket{DivisionID: division.ID, Type: models.BracketSingleElimination}
	if err := db.Tournaments().CreateBracket(ctx, bracket); err != nil {
		t.Fatalf("create bracket: %v", err)
	}
	team1 := db.PutTeam(&models.Team{TournamentID: tournament.ID, DivisionID: division.ID, Name: "Aces"})
	team2 := db.PutTeam(&models.Team{TournamentID: tournament.ID, DivisionID: division.ID, Name: "Blockers"})

	summary := NewSummaryService(db.Tournaments(), db.Matches(), db.Courts())
	scheduler := NewSchedulingService(
		db.Matches(), db.Courts(), db.Tournaments(), db.Teams(),
		summary, nil, logger,
	)

	return &serviceFixture{
		db:         db,
		summary:    summary,
		scheduler:  scheduler,
		tournament: tournament,
		division:   division,
		bracket:    bracket,
		team1:      team1,
		team2:      team2,
	}
}

func (f *serviceFixture) queuedMatch(t *testing.T) *models.Match {
	t.Helper()
	ctx := context.Background()
	match := &models.Match{
		TournamentID: f.tournament.ID,
		DivisionID:   f.division.ID,
		BracketID:    f.bracket.ID,
		Team1ID:      &f.team1.ID,
		Team2ID:      &f.team2.ID,
		Status:       models.MatchStatusPending,
	}
	if err := f.db.Matches().Create(ctx, nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}
	queued, err := f.scheduler.Enqueue(ctx, match.ID, match.Version)
	if err != nil {
		t.Fatalf("enqueue match %d: %v", match.ID, err)
	}
	return queued
}

func (f *serviceFixture) newCourt(t *testing.T, label string) *models.Court {
	t.Helper()
	court := &models.Court{TournamentID: f.tournament.ID, Label: label, Active: true}
	if err := f.db.Courts().Create(context.Background(), court); err != nil {
		t.Fatalf("create court %s: %v", label, err)
	}
	return court
}

func TestAssignStartCompleteFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	assigned, err := f.scheduler.Assign(ctx, match.ID, court.ID, match.Version)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != models.MatchStatusAssigned || assigned.CourtID == nil {
		t.Fatalf("bad assigned state: %+v", assigned)
	}

	started, err := f.scheduler.Start(ctx, match.ID, assigned.Version)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.MatchStatusActive {
		t.Fatalf("expected active, got %s", started.Status)
	}
	if started.CourtID == nil || *started.CourtID != court.ID {
		t.Fatalf("active match lost its court: %+v", started)
	}

	score := "21-15, 21-18"
	completed, err := f.scheduler.Complete(ctx, match.ID, started.Version, &score)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.MatchStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if completed.CourtID != nil {
		t.Fatalf("completed match still on court %d", *completed.CourtID)
	}
	if completed.Score == nil || *completed.Score != score {
		t.Fatalf("score not recorded: %+v", completed.Score)
	}

	// Completion frees the court for the next match.
	freed, err := f.scheduler.GetCourt(ctx, court.ID)
	if err != nil {
		t.Fatalf("get court: %v", err)
	}
	if freed.CurrentMatchID != nil {
		t.Fatalf("court still occupied after completion: %+v", freed)
	}
}

func TestAssignRejectsUnqueuedMatch(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := &models.Match{
		TournamentID: f.tournament.ID,
		DivisionID:   f.division.ID,
		BracketID:    f.bracket.ID,
		Team1ID:      &f.team1.ID,
		Team2ID:      &f.team2.ID,
		Status:       models.MatchStatusPending,
	}
	if err := f.db.Matches().Create(ctx, nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}
	court := f.newCourt(t, "Court 1")

	if _, err := f.scheduler.Assign(ctx, match.ID, court.ID, match.Version); !errors.Is(err, scheduling.ErrMatchNotQueued) {
		t.Fatalf("expected ErrMatchNotQueued, got %v", err)
	}
}

func TestAssignOccupiedCourtUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1 := f.queuedMatch(t)
	m2 := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	if _, err := f.scheduler.Assign(ctx, m1.ID, court.ID, m1.Version); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := f.scheduler.Assign(ctx, m2.ID, court.ID, m2.Version); !errors.Is(err, scheduling.ErrCourtUnavailable) {
		t.Fatalf("expected ErrCourtUnavailable, got %v", err)
	}

	fresh, err := f.scheduler.GetMatch(ctx, m2.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if fresh.Status != models.MatchStatusQueued || fresh.CourtID != nil {
		t.Fatalf("losing match changed state: %+v", fresh)
	}
}

// Two operators race to put different matches on the same court.
// Exactly one succeeds; the loser's match and the court pairing stay
// consistent.
func TestConcurrentAssignSameCourt(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1 := f.queuedMatch(t)
	m2 := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	matches := []*models.Match{m1, m2}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := range matches {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.scheduler.Assign(ctx, matches[i].ID, court.ID, matches[i].Version)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, scheduling.ErrCourtUnavailable),
			errors.Is(err, scheduling.ErrConcurrentModification):
		default:
			t.Fatalf("unexpected race error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d (errs: %v)", winners, errs)
	}

	fresh, err := f.scheduler.GetCourt(ctx, court.ID)
	if err != nil {
		t.Fatalf("get court: %v", err)
	}
	if fresh.CurrentMatchID == nil {
		t.Fatal("court unoccupied after winning assign")
	}
	winner, err := f.scheduler.GetMatch(ctx, *fresh.CurrentMatchID)
	if err != nil {
		t.Fatalf("get winner: %v", err)
	}
	if winner.CourtID == nil || *winner.CourtID != court.ID {
		t.Fatalf("winner does not reference court: %+v", winner)
	}
}

func TestAdvanceFollowsQueueOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1 := f.queuedMatch(t)
	m2 := f.queuedMatch(t)
	m3 := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	for _, want := range []*models.Match{m1, m2, m3} {
		result, err := f.scheduler.Advance(ctx, court.ID)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if !result.Advanced {
			t.Fatal("expected an advanced result while queue is non-empty")
		}
		if result.Match.ID != want.ID {
			t.Fatalf("queue order broken: want match %d, got %d", want.ID, result.Match.ID)
		}

		started, err := f.scheduler.Start(ctx, result.Match.ID, result.Match.Version)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := f.scheduler.Complete(ctx, started.ID, started.Version, nil); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	result, err := f.scheduler.Advance(ctx, court.ID)
	if err != nil {
		t.Fatalf("advance on empty queue: %v", err)
	}
	if result.Advanced {
		t.Fatalf("advance on empty queue must report Advanced=false, got %+v", result)
	}
}

func TestAdvanceOccupiedCourt(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.queuedMatch(t)
	f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	if _, err := f.scheduler.Advance(ctx, court.ID); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if _, err := f.scheduler.Advance(ctx, court.ID); !errors.Is(err, scheduling.ErrCourtUnavailable) {
		t.Fatalf("expected ErrCourtUnavailable on occupied court, got %v", err)
	}
}

func TestAdvanceInactiveCourtLeavesStateUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")
	if _, err := f.db.Courts().SetActive(ctx, court.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := f.scheduler.Advance(ctx, court.ID); !errors.Is(err, scheduling.ErrCourtUnavailable) {
		t.Fatalf("expected ErrCourtUnavailable, got %v", err)
	}

	fresh, err := f.scheduler.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if fresh.Status != models.MatchStatusQueued || fresh.Version != match.Version {
		t.Fatalf("queued match changed by failed advance: %+v", fresh)
	}
}

func TestAdvanceAllFillsFreeCourtsInOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1 := f.queuedMatch(t)
	m2 := f.queuedMatch(t)
	c1 := f.newCourt(t, "Court A")
	c2 := f.newCourt(t, "Court B")
	f.newCourt(t, "Court C")

	results, err := f.scheduler.AdvanceAll(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("advance all: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 placements for 2 queued matches, got %d", len(results))
	}
	if results[0].Court.ID != c1.ID || results[0].Match.ID != m1.ID {
		t.Fatalf("first placement wrong: %+v", results[0])
	}
	if results[1].Court.ID != c2.ID || results[1].Match.ID != m2.ID {
		t.Fatalf("second placement wrong: %+v", results[1])
	}
}

func TestRetireIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := f.queuedMatch(t)

	retired, err := f.scheduler.Retire(ctx, match.ID, match.Version)
	if err != nil {
		t.Fatalf("retire: %v", err)
	}
	if retired.Status != models.MatchStatusRetired {
		t.Fatalf("expected retired, got %s", retired.Status)
	}

	// Second retire succeeds without touching state, even with the old
	// version.
	again, err := f.scheduler.Retire(ctx, match.ID, match.Version)
	if err != nil {
		t.Fatalf("second retire: %v", err)
	}
	if again.Status != models.MatchStatusRetired || again.Version != retired.Version {
		t.Fatalf("second retire changed state: %+v", again)
	}
}

func TestRetireActiveMatchFreesCourt(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	assigned, err := f.scheduler.Assign(ctx, match.ID, court.ID, match.Version)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	started, err := f.scheduler.Start(ctx, match.ID, assigned.Version)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	retired, err := f.scheduler.Retire(ctx, match.ID, started.Version)
	if err != nil {
		t.Fatalf("retire: %v", err)
	}
	if retired.CourtID != nil {
		t.Fatalf("retired match still on court: %+v", retired)
	}

	freed, err := f.scheduler.GetCourt(ctx, court.ID)
	if err != nil {
		t.Fatalf("get court: %v", err)
	}
	if freed.CurrentMatchID != nil {
		t.Fatalf("court still occupied after retire: %+v", freed)
	}
}

func TestRequeueRetiredMatchJoinsTail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1 := f.queuedMatch(t)
	retired, err := f.scheduler.Retire(ctx, m1.ID, m1.Version)
	if err != nil {
		t.Fatalf("retire: %v", err)
	}

	m2 := f.queuedMatch(t)

	requeued, err := f.scheduler.Requeue(ctx, m1.ID, retired.Version)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if requeued.Status != models.MatchStatusQueued {
		t.Fatalf("expected queued, got %s", requeued.Status)
	}
	if requeued.CourtID != nil {
		t.Fatalf("requeued match carries a court: %+v", requeued)
	}
	if requeued.QueuePosition == nil || m2.QueuePosition == nil ||
		*requeued.QueuePosition <= *m2.QueuePosition {
		t.Fatalf("requeued match not at the tail: %+v vs %+v", requeued.QueuePosition, m2.QueuePosition)
	}
	if requeued.Version <= retired.Version {
		t.Fatalf("version must keep increasing across requeue: %d -> %d", retired.Version, requeued.Version)
	}
}

func TestUnassignReturnsMatchToTail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1 := f.queuedMatch(t)
	m2 := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	assigned, err := f.scheduler.Assign(ctx, m1.ID, court.ID, m1.Version)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	unassigned, err := f.scheduler.Unassign(ctx, m1.ID, assigned.Version)
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if unassigned.Status != models.MatchStatusQueued || unassigned.CourtID != nil {
		t.Fatalf("bad unassigned state: %+v", unassigned)
	}
	if unassigned.QueuePosition == nil || m2.QueuePosition == nil ||
		*unassigned.QueuePosition <= *m2.QueuePosition {
		t.Fatal("unassigned match must rejoin at the tail, not its old slot")
	}

	freed, err := f.scheduler.GetCourt(ctx, court.ID)
	if err != nil {
		t.Fatalf("get court: %v", err)
	}
	if freed.CurrentMatchID != nil {
		t.Fatalf("court still occupied after unassign: %+v", freed)
	}
}

func TestStaleVersionConflict(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")

	if _, err := f.scheduler.Assign(ctx, match.ID, court.ID, match.Version); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Start with the pre-assign version: the caller acted on stale data.
	if _, err := f.scheduler.Start(ctx, match.ID, match.Version); !errors.Is(err, scheduling.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := f.queuedMatch(t)

	// Queued matches cannot complete without being played.
	if _, err := f.scheduler.Complete(ctx, match.ID, match.Version, nil); !errors.Is(err, scheduling.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSetMatchTeamsAutoEnqueues(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := &models.Match{
		TournamentID: f.tournament.ID,
		DivisionID:   f.division.ID,
		BracketID:    f.bracket.ID,
		Team1ID:      &f.team1.ID,
		Status:       models.MatchStatusPending,
	}
	if err := f.db.Matches().Create(ctx, nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}

	updated, err := f.scheduler.SetMatchTeams(ctx, match.ID, match.Version, &f.team1.ID, &f.team2.ID)
	if err != nil {
		t.Fatalf("set teams: %v", err)
	}
	if updated.Status != models.MatchStatusQueued {
		t.Fatalf("filling the last slot must enqueue, got %s", updated.Status)
	}
	if updated.QueuePosition == nil {
		t.Fatal("auto-enqueued match has no queue position")
	}
}

func TestSetMatchTeamsLockedBracket(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := &models.Match{
		TournamentID: f.tournament.ID,
		DivisionID:   f.division.ID,
		BracketID:    f.bracket.ID,
		Status:       models.MatchStatusPending,
	}
	if err := f.db.Matches().Create(ctx, nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}
	if _, err := f.db.Tournaments().SetBracketLocked(ctx, f.bracket.ID, true); err != nil {
		t.Fatalf("lock bracket: %v", err)
	}

	if _, err := f.scheduler.SetMatchTeams(ctx, match.ID, match.Version, &f.team1.ID, &f.team2.ID); !errors.Is(err, scheduling.ErrBracketLocked) {
		t.Fatalf("expected ErrBracketLocked, got %v", err)
	}
}

func TestSetMatchTeamsCannotClearQueuedSlot(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	match := f.queuedMatch(t)

	if _, err := f.scheduler.SetMatchTeams(ctx, match.ID, match.Version, &f.team1.ID, nil); !errors.Is(err, scheduling.ErrMatchNotQueueable) {
		t.Fatalf("expected ErrMatchNotQueueable, got %v", err)
	}

	fresh, err := f.scheduler.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if fresh.Status != models.MatchStatusQueued || !fresh.Queueable() {
		t.Fatalf("queued match lost a team slot: %+v", fresh)
	}
	if fresh.Version != match.Version {
		t.Fatalf("rejected write bumped version: %d -> %d", match.Version, fresh.Version)
	}

	swapped, err := f.scheduler.SetMatchTeams(ctx, match.ID, match.Version, &f.team2.ID, &f.team1.ID)
	if err != nil {
		t.Fatalf("swap teams on queued match: %v", err)
	}
	if !swapped.Queueable() || swapped.Status != models.MatchStatusQueued {
		t.Fatalf("swap left match in bad state: %+v", swapped)
	}
}

func TestSeedQueueEnqueuesCompletePendingMatches(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	complete := &models.Match{
		TournamentID: f.tournament.ID,
		DivisionID:   f.division.ID,
		BracketID:    f.bracket.ID,
		Team1ID:      &f.team1.ID,
		Team2ID:      &f.team2.ID,
		Status:       models.MatchStatusPending,
	}
	partial := &models.Match{
		TournamentID: f.tournament.ID,
		DivisionID:   f.division.ID,
		BracketID:    f.bracket.ID,
		Team1ID:      &f.team1.ID,
		Status:       models.MatchStatusPending,
	}
	for _, m := range []*models.Match{complete, partial} {
		if err := f.db.Matches().Create(ctx, nil, m); err != nil {
			t.Fatalf("create match: %v", err)
		}
	}

	enqueued, err := f.scheduler.SeedQueue(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("seed queue: %v", err)
	}
	if len(enqueued) != 1 || enqueued[0].ID != complete.ID {
		t.Fatalf("expected only the complete match to be enqueued, got %+v", enqueued)
	}

	fresh, err := f.scheduler.GetMatch(ctx, partial.ID)
	if err != nil {
		t.Fatalf("get partial: %v", err)
	}
	if fresh.Status != models.MatchStatusPending {
		t.Fatalf("partial match must stay pending, got %s", fresh.Status)
	}
}
