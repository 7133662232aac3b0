package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
)

func TestGetSummaryCounts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	m1 := f.queuedMatch(t)
	f.queuedMatch(t)
	f.queuedMatch(t)
	court := f.newCourt(t, "Court 1")
	inactive := f.newCourt(t, "Court 2")
	if _, err := f.db.Courts().SetActive(ctx, inactive.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := f.scheduler.Assign(ctx, m1.ID, court.ID, m1.Version); err != nil {
		t.Fatalf("assign: %v", err)
	}

	summary, err := f.summary.GetSummary(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.TotalDivisions != 1 {
		t.Errorf("TotalDivisions = %d, want 1", summary.TotalDivisions)
	}
	if summary.TotalBrackets != 1 {
		t.Errorf("TotalBrackets = %d, want 1", summary.TotalBrackets)
	}
	if summary.TotalCourts != 2 || summary.ActiveCourts != 1 {
		t.Errorf("courts = %d/%d active, want 2/1", summary.TotalCourts, summary.ActiveCourts)
	}
	if summary.ActiveMatches != 1 {
		t.Errorf("ActiveMatches = %d, want 1", summary.ActiveMatches)
	}
	if summary.QueuedMatches != 2 {
		t.Errorf("QueuedMatches = %d, want 2", summary.QueuedMatches)
	}
	if len(summary.Divisions) != 1 {
		t.Fatalf("expected 1 division rollup, got %d", len(summary.Divisions))
	}
	if summary.Divisions[0].QueuedMatches != 2 {
		t.Errorf("division QueuedMatches = %d, want 2", summary.Divisions[0].QueuedMatches)
	}
}

func TestGetSummaryUnknownTournament(t *testing.T) {
	f := newServiceFixture(t)

	if _, err := f.summary.GetSummary(context.Background(), 9999); !errors.Is(err, repositories.ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
}

func TestSummaryCacheInvalidatedByMutations(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	before, err := f.summary.GetSummary(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if before.QueuedMatches != 0 {
		t.Fatalf("fresh tournament has queued matches: %d", before.QueuedMatches)
	}

	// Enqueue goes through the scheduling façade, which invalidates.
	f.queuedMatch(t)

	after, err := f.summary.GetSummary(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("get summary after mutation: %v", err)
	}
	if after.QueuedMatches != 1 {
		t.Fatalf("stale summary after mutation: %+v", after)
	}
}

func TestSummaryCacheServesRepeatedReads(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.summary.GetSummary(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}

	// A direct repository write bypasses the façade; the cache does not
	// see it until the next invalidation.
	court := &models.Court{TournamentID: f.tournament.ID, Label: "Backdoor", Active: true}
	if err := f.db.Courts().Create(ctx, court); err != nil {
		t.Fatalf("create court: %v", err)
	}

	cached, err := f.summary.GetSummary(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if cached.TotalCourts != first.TotalCourts {
		t.Fatalf("expected cached counters, got %+v", cached)
	}

	f.summary.Invalidate(f.tournament.ID)
	fresh, err := f.summary.GetSummary(ctx, f.tournament.ID)
	if err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if fresh.TotalCourts != first.TotalCourts+1 {
		t.Fatalf("invalidation did not refresh: %+v", fresh)
	}
}
