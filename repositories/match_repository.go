package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/courtside/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchVersionMismatch = errors.New("match version mismatch")
	ErrNoQueuedMatches      = errors.New("no queued matches")
	ErrMatchBracketInvalid  = errors.New("match bracket conflict or invalid")
	ErrMatchTeamInvalid     = errors.New("match team conflict or invalid")
)

// MatchLifecycleUpdate carries the fields a transition may change.
// A nil Score leaves the stored score untouched; CourtID and
// QueuePosition are written as given (nil clears the column).
type MatchLifecycleUpdate struct {
	Status        models.MatchStatus
	CourtID       *int
	QueuePosition *int
	Score         *string
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.MatchStatus, divisionID *int) ([]*models.Match, error)
	// FirstQueued returns the queued match with the lowest queue position
	// in the scope, or ErrNoQueuedMatches.
	FirstQueued(ctx context.Context, tournamentID int, divisionID *int) (*models.Match, error)
	// NextQueuePosition returns max(queue_position)+1 across the whole
	// tournament. Positions are a total order, never a dense index.
	NextQueuePosition(ctx context.Context, tournamentID int) (int, error)
	// UpdateLifecycle applies a transition with a compare-and-swap on the
	// version column. A stale expectedVersion yields
	// ErrMatchVersionMismatch and no change.
	UpdateLifecycle(ctx context.Context, id, expectedVersion int, update MatchLifecycleUpdate) (*models.Match, error)
	SetTeams(ctx context.Context, id, expectedVersion int, team1ID, team2ID *int) (*models.Match, error)
	CountByStatus(ctx context.Context, tournamentID int, statuses ...models.MatchStatus) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, division_id, bracket_id, bracket_slot, team1_id, team2_id,
	       status, queue_position, court_id, score, version, created_at, updated_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.DivisionID,
		&match.BracketID,
		&match.BracketSlot,
		&match.Team1ID,
		&match.Team2ID,
		&match.Status,
		&match.QueuePosition,
		&match.CourtID,
		&match.Score,
		&match.Version,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO matches
			(tournament_id, division_id, bracket_id, bracket_slot, team1_id, team2_id, status, queue_position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.DivisionID,
		match.BracketID,
		match.BracketSlot,
		match.Team1ID,
		match.Team2ID,
		match.Status,
		match.QueuePosition,
	).Scan(&match.ID, &match.Version, &match.CreatedAt, &match.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.MatchStatus, divisionFilter *int) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
		placeholderIndex++
	}
	if divisionFilter != nil {
		queryBuilder.WriteString(" AND division_id = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *divisionFilter)
	}

	// Queue position first keeps queued listings in FIFO order; id keeps
	// everything else stable.
	queryBuilder.WriteString(" ORDER BY queue_position ASC NULLS LAST, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) FirstQueued(ctx context.Context, tournamentID int, divisionID *int) (*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND status = $2`)
	args := []interface{}{tournamentID, models.MatchStatusQueued}

	if divisionID != nil {
		queryBuilder.WriteString(" AND division_id = $3")
		args = append(args, *divisionID)
	}
	queryBuilder.WriteString(" ORDER BY queue_position ASC, id ASC LIMIT 1")

	match, err := scanMatch(r.db.QueryRowContext(ctx, queryBuilder.String(), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoQueuedMatches
		}
		return nil, fmt.Errorf("failed to scan first queued match for tournament %d: %w", tournamentID, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) NextQueuePosition(ctx context.Context, tournamentID int) (int, error) {
	query := `SELECT COALESCE(MAX(queue_position), 0) + 1 FROM matches WHERE tournament_id = $1`
	var next int
	if err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next queue position for tournament %d: %w", tournamentID, err)
	}
	return next, nil
}

func (r *postgresMatchRepository) UpdateLifecycle(ctx context.Context, id, expectedVersion int, update MatchLifecycleUpdate) (*models.Match, error) {
	var match *models.Match
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE matches
			SET status = $1,
			    court_id = $2,
			    queue_position = $3,
			    score = COALESCE($4, score),
			    version = version + 1,
			    updated_at = now()
			WHERE id = $5 AND version = $6
			RETURNING ` + matchColumns

		updated, err := scanMatch(tx.QueryRowContext(ctx, query,
			update.Status, update.CourtID, update.QueuePosition, update.Score, id, expectedVersion))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.versionConflictOrMissing(ctx, tx, id)
			}
			return fmt.Errorf("failed to update match %d lifecycle: %w", id, err)
		}

		// Keep court occupancy reciprocal in the same transaction: when a
		// match leaves its court, the court row must stop referencing it.
		if update.CourtID == nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE courts SET current_match_id = NULL, version = version + 1 WHERE current_match_id = $1`, id)
			if err != nil {
				return fmt.Errorf("failed to clear court occupancy for match %d: %w", id, err)
			}
		}
		match = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) SetTeams(ctx context.Context, id, expectedVersion int, team1ID, team2ID *int) (*models.Match, error) {
	query := `
		UPDATE matches
		SET team1_id = $1, team2_id = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4
		RETURNING ` + matchColumns

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, team1ID, team2ID, id, expectedVersion))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.versionConflictOrMissing(ctx, r.db, id)
		}
		return nil, r.handleMatchError(err)
	}
	return match, nil
}

func (r *postgresMatchRepository) CountByStatus(ctx context.Context, tournamentID int, statuses ...models.MatchStatus) (int, error) {
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status = ANY($2)`
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, tournamentID, pq.Array(statusStrings)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

// versionConflictOrMissing tells a CAS miss apart from a missing row.
func (r *postgresMatchRepository) versionConflictOrMissing(ctx context.Context, exec SQLExecutor, id int) error {
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check match %d existence: %w", id, err)
	}
	if !exists {
		return ErrMatchNotFound
	}
	return ErrMatchVersionMismatch
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_bracket_id_fkey", "matches_division_id_fkey", "matches_tournament_id_fkey":
			return ErrMatchBracketInvalid
		case "matches_team1_id_fkey", "matches_team2_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return err
}
