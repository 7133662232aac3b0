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
	ErrCourtNotFound      = errors.New("court not found")
	ErrCourtNotFree       = errors.New("court is inactive or occupied")
	ErrCourtLabelConflict = errors.New("court label already exists in this tournament")
)

type CourtRepository interface {
	Create(ctx context.Context, court *models.Court) error
	GetByID(ctx context.Context, id int) (*models.Court, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Court, error)
	Count(ctx context.Context, tournamentID int) (total int, active int, err error)
	// Occupy sets court.current_match_id and the match's assigned state as
	// one transaction: either both rows change or neither does.
	Occupy(ctx context.Context, courtID, matchID, matchExpectedVersion int) (*models.Court, *models.Match, error)
	// Release clears occupancy. Releasing an empty court is a no-op, which
	// keeps retire/complete paths idempotent.
	Release(ctx context.Context, courtID int) (*models.Court, error)
	// SetActive toggles availability. Deactivating a court that holds a
	// match fails with ErrCourtNotFree.
	SetActive(ctx context.Context, courtID int, active bool) (*models.Court, error)
}

type postgresCourtRepository struct {
	db *sql.DB
}

func NewPostgresCourtRepository(db *sql.DB) CourtRepository {
	return &postgresCourtRepository{db: db}
}

const courtColumns = `id, tournament_id, label, active, division_id, current_match_id, version, created_at`

func scanCourt(row interface{ Scan(...interface{}) error }) (*models.Court, error) {
	court := &models.Court{}
	err := row.Scan(
		&court.ID,
		&court.TournamentID,
		&court.Label,
		&court.Active,
		&court.DivisionID,
		&court.CurrentMatchID,
		&court.Version,
		&court.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return court, nil
}

func (r *postgresCourtRepository) Create(ctx context.Context, court *models.Court) error {
	query := `
		INSERT INTO courts (tournament_id, label, active, division_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at`

	err := r.db.QueryRowContext(ctx, query,
		court.TournamentID, court.Label, court.Active, court.DivisionID,
	).Scan(&court.ID, &court.Version, &court.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "courts_tournament_id_label_key" {
		return ErrCourtLabelConflict
	}
	return err
}

func (r *postgresCourtRepository) GetByID(ctx context.Context, id int) (*models.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE id = $1`
	court, err := scanCourt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, fmt.Errorf("failed to scan court by id %d: %w", id, err)
	}
	return court, nil
}

func (r *postgresCourtRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE tournament_id = $1 ORDER BY label ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query courts for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	courts := make([]*models.Court, 0)
	for rows.Next() {
		court, scanErr := scanCourt(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan court row: %w", scanErr)
		}
		courts = append(courts, court)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during court rows iteration: %w", err)
	}
	return courts, nil
}

func (r *postgresCourtRepository) Count(ctx context.Context, tournamentID int) (int, int, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM courts WHERE tournament_id = $1`
	var total, active int
	if err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("failed to count courts for tournament %d: %w", tournamentID, err)
	}
	return total, active, nil
}

func (r *postgresCourtRepository) Occupy(ctx context.Context, courtID, matchID, matchExpectedVersion int) (*models.Court, *models.Match, error) {
	var (
		court *models.Court
		match *models.Match
	)
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		// The guarded WHERE makes two concurrent occupies of the same
		// court resolve to exactly one winner.
		courtQuery := `
			UPDATE courts
			SET current_match_id = $1, version = version + 1
			WHERE id = $2 AND active AND current_match_id IS NULL
			RETURNING ` + courtColumns

		updatedCourt, err := scanCourt(tx.QueryRowContext(ctx, courtQuery, matchID, courtID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.notFreeOrMissing(ctx, tx, courtID)
			}
			return fmt.Errorf("failed to occupy court %d: %w", courtID, err)
		}

		matchQuery := `
			UPDATE matches
			SET status = $1, court_id = $2, queue_position = NULL, version = version + 1, updated_at = now()
			WHERE id = $3 AND version = $4 AND status = $5
			RETURNING ` + matchColumns

		updatedMatch, err := scanMatch(tx.QueryRowContext(ctx, matchQuery,
			models.MatchStatusAssigned, courtID, matchID, matchExpectedVersion, models.MatchStatusQueued))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				var exists bool
				if checkErr := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, matchID).Scan(&exists); checkErr != nil {
					return fmt.Errorf("failed to check match %d existence: %w", matchID, checkErr)
				}
				if !exists {
					return ErrMatchNotFound
				}
				return ErrMatchVersionMismatch
			}
			return fmt.Errorf("failed to assign match %d to court %d: %w", matchID, courtID, err)
		}

		court = updatedCourt
		match = updatedMatch
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return court, match, nil
}

func (r *postgresCourtRepository) Release(ctx context.Context, courtID int) (*models.Court, error) {
	query := `
		UPDATE courts
		SET current_match_id = NULL,
		    version = version + CASE WHEN current_match_id IS NULL THEN 0 ELSE 1 END
		WHERE id = $1
		RETURNING ` + courtColumns

	court, err := scanCourt(r.db.QueryRowContext(ctx, query, courtID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, fmt.Errorf("failed to release court %d: %w", courtID, err)
	}
	return court, nil
}

func (r *postgresCourtRepository) SetActive(ctx context.Context, courtID int, active bool) (*models.Court, error) {
	query := `
		UPDATE courts
		SET active = $1, version = version + 1
		WHERE id = $2 AND ($1 OR current_match_id IS NULL)
		RETURNING ` + courtColumns

	court, err := scanCourt(r.db.QueryRowContext(ctx, query, active, courtID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.notFreeOrMissing(ctx, r.db, courtID)
		}
		return nil, fmt.Errorf("failed to toggle court %d: %w", courtID, err)
	}
	return court, nil
}

func (r *postgresCourtRepository) notFreeOrMissing(ctx context.Context, exec SQLExecutor, courtID int) error {
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM courts WHERE id = $1)`, courtID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check court %d existence: %w", courtID, err)
	}
	if !exists {
		return ErrCourtNotFound
	}
	return ErrCourtNotFree
}
