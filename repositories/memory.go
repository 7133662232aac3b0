package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/courtside/models"
)

// MemoryDB is an in-process implementation of every repository
// interface behind one mutex. It backs STORAGE_DRIVER=memory (demo and
// local development without Postgres) and the test suites. A single
// lock makes the court/match pair update trivially atomic, mirroring
// the transaction the Postgres repositories use.
type MemoryDB struct {
	mu  sync.RWMutex
	seq int

	tournaments map[int]*models.Tournament
	divisions   map[int]*models.Division
	brackets    map[int]*models.Bracket
	matches     map[int]*models.Match
	courts      map[int]*models.Court
	teams       map[int]*models.Team
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		tournaments: make(map[int]*models.Tournament),
		divisions:   make(map[int]*models.Division),
		brackets:    make(map[int]*models.Bracket),
		matches:     make(map[int]*models.Match),
		courts:      make(map[int]*models.Court),
		teams:       make(map[int]*models.Team),
	}
}

func (db *MemoryDB) Tournaments() TournamentRepository { return &memoryTournamentRepository{db} }
func (db *MemoryDB) Matches() MatchRepository          { return &memoryMatchRepository{db} }
func (db *MemoryDB) Courts() CourtRepository           { return &memoryCourtRepository{db} }
func (db *MemoryDB) Teams() TeamRepository             { return &memoryTeamRepository{db} }

func (db *MemoryDB) nextID() int {
	db.seq++
	return db.seq
}

// PutTeam seeds roster data, which is read-only through the repository
// interface. Used by the demo bootstrap and tests.
func (db *MemoryDB) PutTeam(team *models.Team) *models.Team {
	db.mu.Lock()
	defer db.mu.Unlock()
	if team.ID == 0 {
		team.ID = db.nextID()
	}
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now()
	}
	db.teams[team.ID] = cloneTeam(team)
	return cloneTeam(team)
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.LogoKey = cloneStringPtr(t.LogoKey)
	c.LogoURL = cloneStringPtr(t.LogoURL)
	c.Divisions = nil
	c.Courts = nil
	return &c
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	c.Team1ID = cloneIntPtr(m.Team1ID)
	c.Team2ID = cloneIntPtr(m.Team2ID)
	c.QueuePosition = cloneIntPtr(m.QueuePosition)
	c.CourtID = cloneIntPtr(m.CourtID)
	c.Score = cloneStringPtr(m.Score)
	c.Team1, c.Team2 = nil, nil
	return &c
}

func cloneCourt(c *models.Court) *models.Court {
	cc := *c
	cc.DivisionID = cloneIntPtr(c.DivisionID)
	cc.CurrentMatchID = cloneIntPtr(c.CurrentMatchID)
	return &cc
}

func cloneTeam(t *models.Team) *models.Team {
	c := *t
	c.Seed = cloneIntPtr(t.Seed)
	c.Players = nil
	return &c
}

// --- tournaments ---

type memoryTournamentRepository struct{ db *MemoryDB }

func (r *memoryTournamentRepository) Create(_ context.Context, tournament *models.Tournament) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.tournaments {
		if existing.Slug == tournament.Slug {
			return ErrTournamentSlugConflict
		}
	}
	tournament.ID = r.db.nextID()
	tournament.CreatedAt = time.Now()
	r.db.tournaments[tournament.ID] = cloneTournament(tournament)
	return nil
}

func (r *memoryTournamentRepository) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r *memoryTournamentRepository) GetBySlug(_ context.Context, slug string) (*models.Tournament, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, t := range r.db.tournaments {
		if t.Slug == slug {
			return cloneTournament(t), nil
		}
	}
	return nil, ErrTournamentNotFound
}

func (r *memoryTournamentRepository) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.LogoKey = cloneStringPtr(logoKey)
	return nil
}

func (r *memoryTournamentRepository) CreateDivision(_ context.Context, division *models.Division) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tournaments[division.TournamentID]; !ok {
		return ErrTournamentNotFound
	}
	division.ID = r.db.nextID()
	copied := *division
	r.db.divisions[division.ID] = &copied
	return nil
}

func (r *memoryTournamentRepository) ListDivisions(_ context.Context, tournamentID int) ([]*models.Division, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	divisions := make([]*models.Division, 0)
	for _, d := range r.db.divisions {
		if d.TournamentID == tournamentID {
			copied := *d
			divisions = append(divisions, &copied)
		}
	}
	sort.Slice(divisions, func(i, j int) bool {
		if divisions[i].Name != divisions[j].Name {
			return divisions[i].Name < divisions[j].Name
		}
		return divisions[i].ID < divisions[j].ID
	})
	return divisions, nil
}

func (r *memoryTournamentRepository) CreateBracket(_ context.Context, bracket *models.Bracket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.divisions[bracket.DivisionID]; !ok {
		return ErrDivisionNotFound
	}
	bracket.ID = r.db.nextID()
	copied := *bracket
	r.db.brackets[bracket.ID] = &copied
	return nil
}

func (r *memoryTournamentRepository) GetBracket(_ context.Context, id int) (*models.Bracket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.brackets[id]
	if !ok {
		return nil, ErrBracketNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *memoryTournamentRepository) SetBracketLocked(_ context.Context, bracketID int, locked bool) (*models.Bracket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.brackets[bracketID]
	if !ok {
		return nil, ErrBracketNotFound
	}
	b.Locked = locked
	copied := *b
	return &copied, nil
}

func (r *memoryTournamentRepository) CountDivisions(_ context.Context, tournamentID int) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	count := 0
	for _, d := range r.db.divisions {
		if d.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *memoryTournamentRepository) CountBrackets(_ context.Context, tournamentID int) (int, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	total, locked := 0, 0
	for _, b := range r.db.brackets {
		division, ok := r.db.divisions[b.DivisionID]
		if !ok || division.TournamentID != tournamentID {
			continue
		}
		total++
		if b.Locked {
			locked++
		}
	}
	return total, locked, nil
}

func (r *memoryTournamentRepository) DivisionRollups(_ context.Context, tournamentID int) ([]models.DivisionSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	byDivision := make(map[int]*models.DivisionSummary)
	for _, d := range r.db.divisions {
		if d.TournamentID == tournamentID {
			byDivision[d.ID] = &models.DivisionSummary{DivisionID: d.ID, Name: d.Name}
		}
	}
	for _, b := range r.db.brackets {
		ds, ok := byDivision[b.DivisionID]
		if !ok {
			continue
		}
		ds.Brackets++
		if b.Locked {
			ds.LockedBrackets++
		}
	}
	for _, m := range r.db.matches {
		ds, ok := byDivision[m.DivisionID]
		if !ok {
			continue
		}
		switch m.Status {
		case models.MatchStatusPending:
			ds.PendingMatches++
		case models.MatchStatusQueued:
			ds.QueuedMatches++
		case models.MatchStatusCompleted, models.MatchStatusRetired:
			ds.FinishedMatches++
		}
	}

	rollups := make([]models.DivisionSummary, 0, len(byDivision))
	for _, ds := range byDivision {
		rollups = append(rollups, *ds)
	}
	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].Name != rollups[j].Name {
			return rollups[i].Name < rollups[j].Name
		}
		return rollups[i].DivisionID < rollups[j].DivisionID
	})
	return rollups, nil
}

// --- matches ---

type memoryMatchRepository struct{ db *MemoryDB }

func (r *memoryMatchRepository) Create(_ context.Context, _ SQLExecutor, match *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.brackets[match.BracketID]; !ok {
		return ErrMatchBracketInvalid
	}
	match.ID = r.db.nextID()
	match.Version = 1
	match.CreatedAt = time.Now()
	match.UpdatedAt = match.CreatedAt
	r.db.matches[match.ID] = cloneMatch(match)
	return nil
}

func (r *memoryMatchRepository) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	m, ok := r.db.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r *memoryMatchRepository) ListByTournament(_ context.Context, tournamentID int, status *models.MatchStatus, divisionID *int) ([]*models.Match, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	matches := make([]*models.Match, 0)
	for _, m := range r.db.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		if divisionID != nil && m.DivisionID != *divisionID {
			continue
		}
		matches = append(matches, cloneMatch(m))
	}
	sort.Slice(matches, func(i, j int) bool {
		pi, pj := matches[i].QueuePosition, matches[j].QueuePosition
		switch {
		case pi != nil && pj != nil && *pi != *pj:
			return *pi < *pj
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (r *memoryMatchRepository) FirstQueued(_ context.Context, tournamentID int, divisionID *int) (*models.Match, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	match := r.db.firstQueuedLocked(tournamentID, divisionID)
	if match == nil {
		return nil, ErrNoQueuedMatches
	}
	return cloneMatch(match), nil
}

func (db *MemoryDB) firstQueuedLocked(tournamentID int, divisionID *int) *models.Match {
	var best *models.Match
	for _, m := range db.matches {
		if m.TournamentID != tournamentID || m.Status != models.MatchStatusQueued {
			continue
		}
		if divisionID != nil && m.DivisionID != *divisionID {
			continue
		}
		if best == nil {
			best = m
			continue
		}
		bp, mp := *best.QueuePosition, *m.QueuePosition
		if mp < bp || (mp == bp && m.ID < best.ID) {
			best = m
		}
	}
	return best
}

func (r *memoryMatchRepository) NextQueuePosition(_ context.Context, tournamentID int) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	max := 0
	for _, m := range r.db.matches {
		if m.TournamentID == tournamentID && m.QueuePosition != nil && *m.QueuePosition > max {
			max = *m.QueuePosition
		}
	}
	return max + 1, nil
}

func (r *memoryMatchRepository) UpdateLifecycle(_ context.Context, id, expectedVersion int, update MatchLifecycleUpdate) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Version != expectedVersion {
		return nil, ErrMatchVersionMismatch
	}
	m.Status = update.Status
	m.CourtID = cloneIntPtr(update.CourtID)
	m.QueuePosition = cloneIntPtr(update.QueuePosition)
	if update.Score != nil {
		m.Score = cloneStringPtr(update.Score)
	}
	m.Version++
	m.UpdatedAt = time.Now()

	// Same reciprocity rule as the SQL transaction: an off-court match
	// must not be referenced by any court.
	if update.CourtID == nil {
		for _, c := range r.db.courts {
			if c.CurrentMatchID != nil && *c.CurrentMatchID == id {
				c.CurrentMatchID = nil
				c.Version++
			}
		}
	}
	return cloneMatch(m), nil
}

func (r *memoryMatchRepository) SetTeams(_ context.Context, id, expectedVersion int, team1ID, team2ID *int) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Version != expectedVersion {
		return nil, ErrMatchVersionMismatch
	}
	m.Team1ID = cloneIntPtr(team1ID)
	m.Team2ID = cloneIntPtr(team2ID)
	m.Version++
	m.UpdatedAt = time.Now()
	return cloneMatch(m), nil
}

func (r *memoryMatchRepository) CountByStatus(_ context.Context, tournamentID int, statuses ...models.MatchStatus) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	count := 0
	for _, m := range r.db.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		for _, s := range statuses {
			if m.Status == s {
				count++
				break
			}
		}
	}
	return count, nil
}

// --- courts ---

type memoryCourtRepository struct{ db *MemoryDB }

func (r *memoryCourtRepository) Create(_ context.Context, court *models.Court) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tournaments[court.TournamentID]; !ok {
		return ErrTournamentNotFound
	}
	for _, existing := range r.db.courts {
		if existing.TournamentID == court.TournamentID && existing.Label == court.Label {
			return ErrCourtLabelConflict
		}
	}
	court.ID = r.db.nextID()
	court.Version = 1
	court.CreatedAt = time.Now()
	r.db.courts[court.ID] = cloneCourt(court)
	return nil
}

func (r *memoryCourtRepository) GetByID(_ context.Context, id int) (*models.Court, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.courts[id]
	if !ok {
		return nil, ErrCourtNotFound
	}
	return cloneCourt(c), nil
}

func (r *memoryCourtRepository) ListByTournament(_ context.Context, tournamentID int) ([]*models.Court, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	courts := make([]*models.Court, 0)
	for _, c := range r.db.courts {
		if c.TournamentID == tournamentID {
			courts = append(courts, cloneCourt(c))
		}
	}
	sort.Slice(courts, func(i, j int) bool {
		if courts[i].Label != courts[j].Label {
			return courts[i].Label < courts[j].Label
		}
		return courts[i].ID < courts[j].ID
	})
	return courts, nil
}

func (r *memoryCourtRepository) Count(_ context.Context, tournamentID int) (int, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	total, active := 0, 0
	for _, c := range r.db.courts {
		if c.TournamentID != tournamentID {
			continue
		}
		total++
		if c.Active {
			active++
		}
	}
	return total, active, nil
}

func (r *memoryCourtRepository) Occupy(_ context.Context, courtID, matchID, matchExpectedVersion int) (*models.Court, *models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.courts[courtID]
	if !ok {
		return nil, nil, ErrCourtNotFound
	}
	if !c.Active || c.CurrentMatchID != nil {
		return nil, nil, ErrCourtNotFree
	}
	m, ok := r.db.matches[matchID]
	if !ok {
		return nil, nil, ErrMatchNotFound
	}
	if m.Version != matchExpectedVersion || m.Status != models.MatchStatusQueued {
		return nil, nil, ErrMatchVersionMismatch
	}

	// Both sides change under the same lock; no partial state escapes.
	c.CurrentMatchID = &matchID
	c.Version++
	m.Status = models.MatchStatusAssigned
	m.CourtID = &courtID
	m.QueuePosition = nil
	m.Version++
	m.UpdatedAt = time.Now()

	return cloneCourt(c), cloneMatch(m), nil
}

func (r *memoryCourtRepository) Release(_ context.Context, courtID int) (*models.Court, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.courts[courtID]
	if !ok {
		return nil, ErrCourtNotFound
	}
	if c.CurrentMatchID != nil {
		c.CurrentMatchID = nil
		c.Version++
	}
	return cloneCourt(c), nil
}

func (r *memoryCourtRepository) SetActive(_ context.Context, courtID int, active bool) (*models.Court, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.courts[courtID]
	if !ok {
		return nil, ErrCourtNotFound
	}
	if !active && c.CurrentMatchID != nil {
		return nil, ErrCourtNotFree
	}
	c.Active = active
	c.Version++
	return cloneCourt(c), nil
}

// --- teams ---

type memoryTeamRepository struct{ db *MemoryDB }

func (r *memoryTeamRepository) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return cloneTeam(t), nil
}

func (r *memoryTeamRepository) ListByDivision(_ context.Context, divisionID int) ([]*models.Team, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	teams := make([]*models.Team, 0)
	for _, t := range r.db.teams {
		if t.DivisionID == divisionID {
			teams = append(teams, cloneTeam(t))
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		si, sj := teams[i].Seed, teams[j].Seed
		switch {
		case si != nil && sj != nil && *si != *sj:
			return *si < *sj
		case si != nil && sj == nil:
			return true
		case si == nil && sj != nil:
			return false
		}
		return teams[i].Name < teams[j].Name
	})
	return teams, nil
}
