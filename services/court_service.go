package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
	"github.com/Dosada05/courtside/scheduling"
)

type CreateCourtInput struct {
	Label      string `json:"label"`
	DivisionID *int   `json:"division_id,omitempty"`
}

type CourtService interface {
	CreateCourt(ctx context.Context, tournamentID int, input CreateCourtInput) (*models.Court, error)
	ListCourts(ctx context.Context, tournamentID int) ([]*models.Court, error)
	SetActive(ctx context.Context, courtID int, active bool) (*models.Court, error)
}

type courtService struct {
	courtRepo      repositories.CourtRepository
	tournamentRepo repositories.TournamentRepository

	allocator *scheduling.CourtAllocator
	summary   SummaryService
	hub       *scheduling.Hub
	logger    *slog.Logger
}

func NewCourtService(
	courtRepo repositories.CourtRepository,
	tournamentRepo repositories.TournamentRepository,
	summary SummaryService,
	hub *scheduling.Hub,
	logger *slog.Logger,
) CourtService {
	return &courtService{
		courtRepo:      courtRepo,
		tournamentRepo: tournamentRepo,
		allocator:      scheduling.NewCourtAllocator(courtRepo),
		summary:        summary,
		hub:            hub,
		logger:         logger,
	}
}

func (s *courtService) CreateCourt(ctx context.Context, tournamentID int, input CreateCourtInput) (*models.Court, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, ErrCourtLabelRequired
	}

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	if input.DivisionID != nil {
		divisions, err := s.tournamentRepo.ListDivisions(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if !containsDivision(divisions, *input.DivisionID) {
			return nil, repositories.ErrDivisionNotFound
		}
	}

	court := &models.Court{
		TournamentID: tournamentID,
		Label:        label,
		Active:       true,
		DivisionID:   input.DivisionID,
	}
	if err := s.courtRepo.Create(ctx, court); err != nil {
		if errors.Is(err, repositories.ErrCourtLabelConflict) {
			return nil, fmt.Errorf("%w: %s", ErrCourtLabelConflict, label)
		}
		return nil, err
	}

	s.notify(ctx, tournamentID, court)
	return court, nil
}

func (s *courtService) ListCourts(ctx context.Context, tournamentID int) ([]*models.Court, error) {
	return s.courtRepo.ListByTournament(ctx, tournamentID)
}

func (s *courtService) SetActive(ctx context.Context, courtID int, active bool) (*models.Court, error) {
	court, err := s.allocator.SetActive(ctx, courtID, active)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, court.TournamentID, court)
	return court, nil
}

func (s *courtService) notify(ctx context.Context, tournamentID int, court *models.Court) {
	s.summary.Invalidate(tournamentID)
	if s.hub == nil {
		return
	}
	room := scheduling.RoomID(tournamentID)
	s.hub.BroadcastToRoom(room, scheduling.Event{Type: scheduling.EventCourtUpdated, Payload: court})
	if summary, err := s.summary.GetSummary(ctx, tournamentID); err == nil {
		s.hub.BroadcastToRoom(room, scheduling.Event{Type: scheduling.EventSummaryUpdated, Payload: summary})
	} else {
		s.logger.WarnContext(ctx, "failed to recompute summary after court change",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
}

func containsDivision(divisions []*models.Division, id int) bool {
	for _, d := range divisions {
		if d.ID == id {
			return true
		}
	}
	return false
}
