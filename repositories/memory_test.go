package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/courtside/models"
)

func seedTournament(t *testing.T, db *MemoryDB) (*models.Tournament, *models.Division, *models.Bracket) {
	t.Helper()
	ctx := context.Background()
	tournament := &models.Tournament{Name: "Fall Classic", Slug: "fall-classic", Status: models.TournamentStatusSetup}
	if err := db.Tournaments().Create(ctx, tournament); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	division := &models.Division{TournamentID: tournament.ID, Name: "Open"}
	if err := db.Tournaments().CreateDivision(ctx, division); err != nil {
		t.Fatalf("create division: %v", err)
	}
	bracket := &models.Bracket{DivisionID: division.ID, Type: models.BracketRoundRobin}
	if err := db.Tournaments().CreateBracket(ctx, bracket); err != nil {
		t.Fatalf("create bracket: %v", err)
	}
	return tournament, division, bracket
}

func TestTournamentSlugConflict(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	seedTournament(t, db)

	dup := &models.Tournament{Name: "Fall Classic II", Slug: "fall-classic"}
	if err := db.Tournaments().Create(ctx, dup); !errors.Is(err, ErrTournamentSlugConflict) {
		t.Fatalf("expected ErrTournamentSlugConflict, got %v", err)
	}
}

func TestGetBySlug(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	tournament, _, _ := seedTournament(t, db)

	found, err := db.Tournaments().GetBySlug(ctx, "fall-classic")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if found.ID != tournament.ID {
		t.Fatalf("wrong tournament: %+v", found)
	}

	if _, err := db.Tournaments().GetBySlug(ctx, "nope"); !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
}

func TestCourtLabelConflictScopedToTournament(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	t1, _, _ := seedTournament(t, db)

	t2 := &models.Tournament{Name: "Winter Cup", Slug: "winter-cup"}
	if err := db.Tournaments().Create(ctx, t2); err != nil {
		t.Fatalf("create tournament: %v", err)
	}

	if err := db.Courts().Create(ctx, &models.Court{TournamentID: t1.ID, Label: "Court 1", Active: true}); err != nil {
		t.Fatalf("create court: %v", err)
	}
	if err := db.Courts().Create(ctx, &models.Court{TournamentID: t1.ID, Label: "Court 1", Active: true}); !errors.Is(err, ErrCourtLabelConflict) {
		t.Fatalf("expected ErrCourtLabelConflict, got %v", err)
	}
	// Same label in another tournament is fine.
	if err := db.Courts().Create(ctx, &models.Court{TournamentID: t2.ID, Label: "Court 1", Active: true}); err != nil {
		t.Fatalf("same label, other tournament: %v", err)
	}
}

func TestMatchCreateValidatesBracket(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	tournament, division, _ := seedTournament(t, db)

	match := &models.Match{
		TournamentID: tournament.ID,
		DivisionID:   division.ID,
		BracketID:    9999,
		Status:       models.MatchStatusPending,
	}
	if err := db.Matches().Create(ctx, nil, match); !errors.Is(err, ErrMatchBracketInvalid) {
		t.Fatalf("expected ErrMatchBracketInvalid, got %v", err)
	}
}

func TestTeamsAreReadOnlySnapshots(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	tournament, division, _ := seedTournament(t, db)

	seed := 3
	team := db.PutTeam(&models.Team{
		TournamentID: tournament.ID,
		DivisionID:   division.ID,
		Name:         "Spikers",
		Seed:         &seed,
	})

	got, err := db.Teams().GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	got.Name = "Mutated"
	*got.Seed = 99

	again, err := db.Teams().GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("get team again: %v", err)
	}
	if again.Name != "Spikers" || *again.Seed != 3 {
		t.Fatalf("repository returned shared state: %+v", again)
	}

	listed, err := db.Teams().ListByDivision(ctx, division.ID)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != team.ID {
		t.Fatalf("unexpected team list: %+v", listed)
	}
}

func TestUpdateLifecycleVersionGate(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	tournament, division, bracket := seedTournament(t, db)

	team1 := db.PutTeam(&models.Team{TournamentID: tournament.ID, DivisionID: division.ID, Name: "A"})
	team2 := db.PutTeam(&models.Team{TournamentID: tournament.ID, DivisionID: division.ID, Name: "B"})
	match := &models.Match{
		TournamentID: tournament.ID,
		DivisionID:   division.ID,
		BracketID:    bracket.ID,
		Team1ID:      &team1.ID,
		Team2ID:      &team2.ID,
		Status:       models.MatchStatusPending,
	}
	if err := db.Matches().Create(ctx, nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}

	pos := 1
	updated, err := db.Matches().UpdateLifecycle(ctx, match.ID, match.Version, MatchLifecycleUpdate{
		Status:        models.MatchStatusQueued,
		QueuePosition: &pos,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != match.Version+1 {
		t.Fatalf("version not bumped: %d", updated.Version)
	}

	if _, err := db.Matches().UpdateLifecycle(ctx, match.ID, match.Version, MatchLifecycleUpdate{
		Status: models.MatchStatusRetired,
	}); !errors.Is(err, ErrMatchVersionMismatch) {
		t.Fatalf("expected ErrMatchVersionMismatch, got %v", err)
	}

	if _, err := db.Matches().UpdateLifecycle(ctx, 9999, 1, MatchLifecycleUpdate{
		Status: models.MatchStatusRetired,
	}); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestOccupyClearedByOffCourtLifecycle(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	tournament, division, bracket := seedTournament(t, db)

	team1 := db.PutTeam(&models.Team{TournamentID: tournament.ID, DivisionID: division.ID, Name: "A"})
	team2 := db.PutTeam(&models.Team{TournamentID: tournament.ID, DivisionID: division.ID, Name: "B"})
	match := &models.Match{
		TournamentID: tournament.ID,
		DivisionID:   division.ID,
		BracketID:    bracket.ID,
		Team1ID:      &team1.ID,
		Team2ID:      &team2.ID,
		Status:       models.MatchStatusPending,
	}
	if err := db.Matches().Create(ctx, nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}
	pos := 1
	queued, err := db.Matches().UpdateLifecycle(ctx, match.ID, match.Version, MatchLifecycleUpdate{
		Status:        models.MatchStatusQueued,
		QueuePosition: &pos,
	})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	court := &models.Court{TournamentID: tournament.ID, Label: "Court 1", Active: true}
	if err := db.Courts().Create(ctx, court); err != nil {
		t.Fatalf("create court: %v", err)
	}
	_, assigned, err := db.Courts().Occupy(ctx, court.ID, queued.ID, queued.Version)
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}

	// Retiring the match off-court must clear the court row in the same
	// store operation.
	if _, err := db.Matches().UpdateLifecycle(ctx, assigned.ID, assigned.Version, MatchLifecycleUpdate{
		Status: models.MatchStatusRetired,
	}); err != nil {
		t.Fatalf("retire: %v", err)
	}

	freed, err := db.Courts().GetByID(ctx, court.ID)
	if err != nil {
		t.Fatalf("get court: %v", err)
	}
	if freed.CurrentMatchID != nil {
		t.Fatalf("court still references retired match: %+v", freed)
	}
}
