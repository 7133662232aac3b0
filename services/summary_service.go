package services

import (
	"context"
	"sync"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
	"golang.org/x/sync/errgroup"
)

// SummaryService derives the dashboard counters from current state.
// GetSummary is a pure read and safe to call at polling frequency; the
// only state here is a cache invalidated by every successful scheduling
// mutation, so pollers between mutations never touch the repositories.
type SummaryService interface {
	GetSummary(ctx context.Context, tournamentID int) (*models.Summary, error)
	Invalidate(tournamentID int)
}

type summaryService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	courtRepo      repositories.CourtRepository

	mu    sync.RWMutex
	cache map[int]*models.Summary
}

func NewSummaryService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	courtRepo repositories.CourtRepository,
) SummaryService {
	return &summaryService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		courtRepo:      courtRepo,
		cache:          make(map[int]*models.Summary),
	}
}

func (s *summaryService) GetSummary(ctx context.Context, tournamentID int) (*models.Summary, error) {
	s.mu.RLock()
	if cached, ok := s.cache[tournamentID]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}

	summary := &models.Summary{TournamentID: tournamentID}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.tournamentRepo.CountDivisions(gCtx, tournamentID)
		if err != nil {
			return err
		}
		summary.TotalDivisions = total
		return nil
	})
	g.Go(func() error {
		total, _, err := s.tournamentRepo.CountBrackets(gCtx, tournamentID)
		if err != nil {
			return err
		}
		summary.TotalBrackets = total
		return nil
	})
	g.Go(func() error {
		total, active, err := s.courtRepo.Count(gCtx, tournamentID)
		if err != nil {
			return err
		}
		summary.TotalCourts = total
		summary.ActiveCourts = active
		return nil
	})
	g.Go(func() error {
		count, err := s.matchRepo.CountByStatus(gCtx, tournamentID,
			models.MatchStatusAssigned, models.MatchStatusActive)
		if err != nil {
			return err
		}
		summary.ActiveMatches = count
		return nil
	})
	g.Go(func() error {
		count, err := s.matchRepo.CountByStatus(gCtx, tournamentID, models.MatchStatusQueued)
		if err != nil {
			return err
		}
		summary.QueuedMatches = count
		return nil
	})
	g.Go(func() error {
		rollups, err := s.tournamentRepo.DivisionRollups(gCtx, tournamentID)
		if err != nil {
			return err
		}
		summary.Divisions = rollups
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[tournamentID] = summary
	s.mu.Unlock()
	return summary, nil
}

func (s *summaryService) Invalidate(tournamentID int) {
	s.mu.Lock()
	delete(s.cache, tournamentID)
	s.mu.Unlock()
}
