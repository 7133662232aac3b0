package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/courtside/models"
)

var ErrTeamNotFound = errors.New("team not found")

// TeamRepository is read-only: rosters are owned by registration and
// CSV import, which live outside the scheduling backend.
type TeamRepository interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByDivision(ctx context.Context, divisionID int) ([]*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, tournament_id, division_id, name, seed, created_at`

func scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	team := &models.Team{}
	err := row.Scan(&team.ID, &team.TournamentID, &team.DivisionID, &team.Name, &team.Seed, &team.CreatedAt)
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team by id %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByDivision(ctx context.Context, divisionID int) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE division_id = $1 ORDER BY seed ASC NULLS LAST, name ASC`
	rows, err := r.db.QueryContext(ctx, query, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams for division %d: %w", divisionID, err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", scanErr)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}
