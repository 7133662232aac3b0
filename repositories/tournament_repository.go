package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/courtside/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentSlugConflict = errors.New("tournament slug already exists")
	ErrDivisionNotFound       = errors.New("division not found")
	ErrBracketNotFound        = errors.New("bracket not found")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tournament, error)
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error

	CreateDivision(ctx context.Context, division *models.Division) error
	ListDivisions(ctx context.Context, tournamentID int) ([]*models.Division, error)
	CreateBracket(ctx context.Context, bracket *models.Bracket) error
	GetBracket(ctx context.Context, id int) (*models.Bracket, error)
	SetBracketLocked(ctx context.Context, bracketID int, locked bool) (*models.Bracket, error)

	CountDivisions(ctx context.Context, tournamentID int) (int, error)
	CountBrackets(ctx context.Context, tournamentID int) (total int, locked int, err error)
	DivisionRollups(ctx context.Context, tournamentID int) ([]models.DivisionSummary, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, slug, status, court_count, created_at, logo_key`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.CourtCount, &t.CreatedAt, &t.LogoKey)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, slug, status, court_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		tournament.Name, tournament.Slug, tournament.Status, tournament.CourtCount,
	).Scan(&tournament.ID, &tournament.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "tournaments_slug_key" {
		return ErrTournamentSlugConflict
	}
	return err
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	tournament, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by id %d: %w", id, err)
	}
	return tournament, nil
}

func (r *postgresTournamentRepository) GetBySlug(ctx context.Context, slug string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE slug = $1`
	tournament, err := scanTournament(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by slug %q: %w", slug, err)
	}
	return tournament, nil
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update logo key for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) CreateDivision(ctx context.Context, division *models.Division) error {
	query := `INSERT INTO divisions (tournament_id, name) VALUES ($1, $2) RETURNING id`
	return r.db.QueryRowContext(ctx, query, division.TournamentID, division.Name).Scan(&division.ID)
}

func (r *postgresTournamentRepository) ListDivisions(ctx context.Context, tournamentID int) ([]*models.Division, error) {
	query := `SELECT id, tournament_id, name FROM divisions WHERE tournament_id = $1 ORDER BY name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query divisions for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	divisions := make([]*models.Division, 0)
	for rows.Next() {
		var division models.Division
		if scanErr := rows.Scan(&division.ID, &division.TournamentID, &division.Name); scanErr != nil {
			return nil, fmt.Errorf("failed to scan division row: %w", scanErr)
		}
		divisions = append(divisions, &division)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during division rows iteration: %w", err)
	}
	return divisions, nil
}

func (r *postgresTournamentRepository) CreateBracket(ctx context.Context, bracket *models.Bracket) error {
	query := `INSERT INTO brackets (division_id, type, locked) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRowContext(ctx, query, bracket.DivisionID, bracket.Type, bracket.Locked).Scan(&bracket.ID)
}

func (r *postgresTournamentRepository) GetBracket(ctx context.Context, id int) (*models.Bracket, error) {
	query := `SELECT id, division_id, type, locked FROM brackets WHERE id = $1`
	bracket := &models.Bracket{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&bracket.ID, &bracket.DivisionID, &bracket.Type, &bracket.Locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket by id %d: %w", id, err)
	}
	return bracket, nil
}

func (r *postgresTournamentRepository) SetBracketLocked(ctx context.Context, bracketID int, locked bool) (*models.Bracket, error) {
	query := `UPDATE brackets SET locked = $1 WHERE id = $2 RETURNING id, division_id, type, locked`
	bracket := &models.Bracket{}
	err := r.db.QueryRowContext(ctx, query, locked, bracketID).Scan(&bracket.ID, &bracket.DivisionID, &bracket.Type, &bracket.Locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to set bracket %d locked=%t: %w", bracketID, locked, err)
	}
	return bracket, nil
}

func (r *postgresTournamentRepository) CountDivisions(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM divisions WHERE tournament_id = $1`, tournamentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count divisions for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresTournamentRepository) CountBrackets(ctx context.Context, tournamentID int) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE b.locked)
		FROM brackets b
		JOIN divisions d ON d.id = b.division_id
		WHERE d.tournament_id = $1`
	var total, locked int
	if err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&total, &locked); err != nil {
		return 0, 0, fmt.Errorf("failed to count brackets for tournament %d: %w", tournamentID, err)
	}
	return total, locked, nil
}

func (r *postgresTournamentRepository) DivisionRollups(ctx context.Context, tournamentID int) ([]models.DivisionSummary, error) {
	query := `
		SELECT d.id,
		       d.name,
		       COUNT(DISTINCT b.id),
		       COUNT(DISTINCT b.id) FILTER (WHERE b.locked),
		       COUNT(m.id) FILTER (WHERE m.status = 'pending'),
		       COUNT(m.id) FILTER (WHERE m.status = 'queued'),
		       COUNT(m.id) FILTER (WHERE m.status IN ('completed', 'retired'))
		FROM divisions d
		LEFT JOIN brackets b ON b.division_id = d.id
		LEFT JOIN matches m ON m.division_id = d.id
		WHERE d.tournament_id = $1
		GROUP BY d.id, d.name
		ORDER BY d.name ASC, d.id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query division rollups for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	rollups := make([]models.DivisionSummary, 0)
	for rows.Next() {
		var ds models.DivisionSummary
		if scanErr := rows.Scan(&ds.DivisionID, &ds.Name, &ds.Brackets, &ds.LockedBrackets,
			&ds.PendingMatches, &ds.QueuedMatches, &ds.FinishedMatches); scanErr != nil {
			return nil, fmt.Errorf("failed to scan division rollup row: %w", scanErr)
		}
		rollups = append(rollups, ds)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during division rollup rows iteration: %w", err)
	}
	return rollups, nil
}
