package scheduling

import (
	"context"
	"testing"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
)

// fixture is one tournament with a division, an open bracket, two teams
// and as many pending matches as a test asks for.
type fixture struct {
	db         *repositories.MemoryDB
	tournament *models.Tournament
	division   *models.Division
	bracket    *models.Bracket
	team1      *models.Team
	team2      *models.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := repositories.NewMemoryDB()

	tournament := &models.Tournament{Name: "Spring Open", Slug: "spring-open", Status: models.TournamentStatusActive}
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

	return &fixture{
		db:         db,
		tournament: tournament,
		division:   division,
		bracket:    bracket,
		team1:      team1,
		team2:      team2,
	}
}

// pendingMatch creates a pending match with both teams set.
func (f *fixture) pendingMatch(t *testing.T) *models.Match {
	t.Helper()
	match := &models.Match{
		TournamentID: f.tournament.ID,
		DivisionID:   f.division.ID,
		BracketID:    f.bracket.ID,
		Team1ID:      &f.team1.ID,
		Team2ID:      &f.team2.ID,
		Status:       models.MatchStatusPending,
	}
	if err := f.db.Matches().Create(context.Background(), nil, match); err != nil {
		t.Fatalf("create match: %v", err)
	}
	return match
}

func (f *fixture) court(t *testing.T, label string, divisionID *int) *models.Court {
	t.Helper()
	court := &models.Court{
		TournamentID: f.tournament.ID,
		Label:        label,
		Active:       true,
		DivisionID:   divisionID,
	}
	if err := f.db.Courts().Create(context.Background(), court); err != nil {
		t.Fatalf("create court %s: %v", label, err)
	}
	return court
}
