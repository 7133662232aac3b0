package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Dosada05/courtside/models"
	"github.com/Dosada05/courtside/repositories"
	"github.com/Dosada05/courtside/scheduling"
	"github.com/Dosada05/courtside/storage"
	"github.com/Dosada05/courtside/utils"
)

type CreateTournamentInput struct {
	Name       string `json:"name"`
	CourtCount int    `json:"court_count"`
}

type CreateDivisionInput struct {
	Name string `json:"name"`
}

type CreateBracketInput struct {
	Type models.BracketType `json:"type"`
}

type CreateMatchInput struct {
	DivisionID  int    `json:"division_id"`
	BracketID   int    `json:"bracket_id"`
	BracketSlot string `json:"bracket_slot"`
	Team1ID     *int   `json:"team1_id,omitempty"`
	Team2ID     *int   `json:"team2_id,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tournament, error)
	UploadLogo(ctx context.Context, id int, contentType string, reader io.Reader) (*models.Tournament, error)

	CreateDivision(ctx context.Context, tournamentID int, input CreateDivisionInput) (*models.Division, error)
	ListDivisions(ctx context.Context, tournamentID int) ([]*models.Division, error)
	CreateBracket(ctx context.Context, divisionID int, input CreateBracketInput) (*models.Bracket, error)
	SetBracketLocked(ctx context.Context, bracketID int, locked bool) (*models.Bracket, error)

	CreateMatch(ctx context.Context, tournamentID int, input CreateMatchInput) (*models.Match, error)
	ListMatches(ctx context.Context, tournamentID int, status *models.MatchStatus, divisionID *int) ([]*models.Match, error)
	ListTeams(ctx context.Context, divisionID int) ([]*models.Team, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	courtRepo      repositories.CourtRepository
	teamRepo       repositories.TeamRepository

	scheduler SchedulingService
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	courtRepo repositories.CourtRepository,
	teamRepo repositories.TeamRepository,
	scheduler SchedulingService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		courtRepo:      courtRepo,
		teamRepo:       teamRepo,
		scheduler:      scheduler,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := trimmedName(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.CourtCount < 0 {
		return nil, ErrInvalidCourtCount
	}

	tournament := &models.Tournament{
		Name:       name,
		Slug:       utils.Slugify(name),
		Status:     models.TournamentStatusSetup,
		CourtCount: input.CourtCount,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentSlugConflict) {
			return nil, fmt.Errorf("%w: %s", ErrTournamentNameConflict, name)
		}
		return nil, err
	}

	// Provision the declared courts up front; more can be added later.
	for i := 1; i <= input.CourtCount; i++ {
		court := &models.Court{
			TournamentID: tournament.ID,
			Label:        fmt.Sprintf("Court %d", i),
			Active:       true,
		}
		if err := s.courtRepo.Create(ctx, court); err != nil {
			return nil, err
		}
		tournament.Courts = append(tournament.Courts, court)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("slug", tournament.Slug),
		slog.Int("court_count", input.CourtCount))
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.populateDetails(ctx, tournament)
	return tournament, nil
}

func (s *tournamentService) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.populateDetails(ctx, tournament)
	return tournament, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, contentType string, reader io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrUploaderNotConfigured
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/logo_%d%s", id, time.Now().Unix(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}

	oldKey := derefString(tournament.LogoKey)
	if oldKey != "" && oldKey != result.Key {
		if err := s.uploader.Delete(ctx, oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous logo",
				slog.String("key", oldKey), slog.Any("error", err))
		}
	}

	tournament.LogoKey = &result.Key
	s.populateDetails(ctx, tournament)
	return tournament, nil
}

func (s *tournamentService) CreateDivision(ctx context.Context, tournamentID int, input CreateDivisionInput) (*models.Division, error) {
	name := trimmedName(input.Name)
	if name == "" {
		return nil, ErrDivisionNameRequired
	}
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	division := &models.Division{TournamentID: tournamentID, Name: name}
	if err := s.tournamentRepo.CreateDivision(ctx, division); err != nil {
		return nil, err
	}
	return division, nil
}

func (s *tournamentService) ListDivisions(ctx context.Context, tournamentID int) ([]*models.Division, error) {
	return s.tournamentRepo.ListDivisions(ctx, tournamentID)
}

func (s *tournamentService) CreateBracket(ctx context.Context, divisionID int, input CreateBracketInput) (*models.Bracket, error) {
	if !validBracketType(input.Type) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBracketType, input.Type)
	}
	bracket := &models.Bracket{DivisionID: divisionID, Type: input.Type}
	if err := s.tournamentRepo.CreateBracket(ctx, bracket); err != nil {
		return nil, err
	}
	return bracket, nil
}

func (s *tournamentService) SetBracketLocked(ctx context.Context, bracketID int, locked bool) (*models.Bracket, error) {
	return s.tournamentRepo.SetBracketLocked(ctx, bracketID, locked)
}

// CreateMatch is the bracket generator's write path. The match starts
// pending; once both team slots are known it enters the queue through
// the scheduling façade so ordering and broadcasts stay in one place.
func (s *tournamentService) CreateMatch(ctx context.Context, tournamentID int, input CreateMatchInput) (*models.Match, error) {
	bracket, err := s.tournamentRepo.GetBracket(ctx, input.BracketID)
	if err != nil {
		return nil, err
	}
	if bracket.Locked {
		return nil, scheduling.ErrBracketLocked
	}
	if bracket.DivisionID != input.DivisionID {
		return nil, repositories.ErrBracketNotFound
	}

	match := &models.Match{
		TournamentID: tournamentID,
		DivisionID:   input.DivisionID,
		BracketID:    input.BracketID,
		BracketSlot:  input.BracketSlot,
		Team1ID:      input.Team1ID,
		Team2ID:      input.Team2ID,
		Status:       models.MatchStatusPending,
	}
	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		return nil, err
	}

	if match.Queueable() {
		queued, err := s.scheduler.Enqueue(ctx, match.ID, match.Version)
		if err != nil {
			return nil, err
		}
		return queued, nil
	}
	return match, nil
}

func (s *tournamentService) ListMatches(ctx context.Context, tournamentID int, status *models.MatchStatus, divisionID *int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, status, divisionID)
}

func (s *tournamentService) ListTeams(ctx context.Context, divisionID int) ([]*models.Team, error) {
	return s.teamRepo.ListByDivision(ctx, divisionID)
}

func (s *tournamentService) populateDetails(ctx context.Context, tournament *models.Tournament) {
	populateTournamentLogoURL(tournament, s.uploader)

	divisions, err := s.tournamentRepo.ListDivisions(ctx, tournament.ID)
	if err == nil {
		tournament.Divisions = divisions
	} else {
		s.logger.WarnContext(ctx, "failed to list divisions",
			slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
	}
	courts, err := s.courtRepo.ListByTournament(ctx, tournament.ID)
	if err == nil {
		tournament.Courts = courts
	} else {
		s.logger.WarnContext(ctx, "failed to list courts",
			slog.Int("tournament_id", tournament.ID), slog.Any("error", err))
	}
}
