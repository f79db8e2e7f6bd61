package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/match-developers/matchplay/events"
	"github.com/match-developers/matchplay/models"
	"github.com/match-developers/matchplay/repositories"
)

// In-memory repository fakes. They ignore the executor argument: the
// services under test run their logic through the repository interfaces,
// and transactional locking is exercised against a real database.

// memTx satisfies Tx without touching a database; the fakes never call
// the executor methods.
type memTx struct{}

func (memTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (memTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (memTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func (memTx) Commit() error { return nil }

func (memTx) Rollback() error { return nil }

type memTxBeginner struct{}

func (memTxBeginner) BeginTx(context.Context, *sql.TxOptions) (Tx, error) {
	return memTx{}, nil
}

type memCompetitionRepo struct {
	mu           sync.Mutex
	nextID       int
	competitions map[int]*models.Competition
	enrollments  map[int][]int
}

func newMemCompetitionRepo() *memCompetitionRepo {
	return &memCompetitionRepo{
		competitions: make(map[int]*models.Competition),
		enrollments:  make(map[int][]int),
	}
}

func (r *memCompetitionRepo) put(c *models.Competition) *models.Competition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
	}
	cp := *c
	r.competitions[c.ID] = &cp
	return c
}

func (r *memCompetitionRepo) Create(_ context.Context, _ repositories.SQLExecutor, c *models.Competition) error {
	c.CreatedAt = time.Now()
	r.put(c)
	return nil
}

func (r *memCompetitionRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitions[id]
	if !ok {
		return nil, repositories.ErrCompetitionNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCompetitionRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Competition, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memCompetitionRepo) List(_ context.Context, _ repositories.SQLExecutor, status *models.CompetitionStatus, limit, offset int) ([]*models.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Competition
	for _, c := range r.competitions {
		if status == nil || c.Status == *status {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCompetitionRepo) ListDueForStart(_ context.Context, _ repositories.SQLExecutor, policy models.SchedulingPolicy, now time.Time) ([]*models.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Competition
	for _, c := range r.competitions {
		if c.SchedulingPolicy == policy && c.Status == models.CompetitionRegistration && c.Deadline.Before(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCompetitionRepo) UpdateProgress(_ context.Context, _ repositories.SQLExecutor, id, currentRound int, status models.CompetitionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitions[id]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.CurrentRound = currentRound
	c.Status = status
	return nil
}

func (r *memCompetitionRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.CompetitionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitions[id]
	if !ok {
		return repositories.ErrCompetitionNotFound
	}
	c.Status = status
	return nil
}

func (r *memCompetitionRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.competitions[id]; !ok {
		return repositories.ErrCompetitionNotFound
	}
	delete(r.competitions, id)
	return nil
}

func (r *memCompetitionRepo) EnrollTeam(_ context.Context, _ repositories.SQLExecutor, competitionID, teamID, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, enrolled := range r.enrollments[competitionID] {
		if enrolled == teamID {
			return repositories.ErrTeamAlreadyEnrolled
		}
	}
	r.enrollments[competitionID] = append(r.enrollments[competitionID], teamID)
	return nil
}

func (r *memCompetitionRepo) CountEnrolled(_ context.Context, _ repositories.SQLExecutor, competitionID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.enrollments[competitionID]), nil
}

type memMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if match.ID == 0 {
		r.nextID++
		match.ID = r.nextID
	} else if match.ID > r.nextID {
		r.nextID = match.ID
	}
	match.CreatedAt = time.Now()
	cp := *match
	r.matches[match.ID] = &cp
	return nil
}

func (r *memMatchRepo) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		if err := r.Create(ctx, exec, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *memMatchRepo) ListByCompetition(_ context.Context, _ repositories.SQLExecutor, competitionID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if m.CompetitionID == nil || *m.CompetitionID != competitionID {
			continue
		}
		if round != nil && (m.RoundNumber == nil || *m.RoundNumber != *round) {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := 0, 0
		if out[i].RoundNumber != nil {
			ri = *out[i].RoundNumber
		}
		if out[j].RoundNumber != nil {
			rj = *out[j].RoundNumber
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memMatchRepo) CountUnresolvedInRound(_ context.Context, _ repositories.SQLExecutor, competitionID, round int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.matches {
		if m.CompetitionID != nil && *m.CompetitionID == competitionID &&
			m.RoundNumber != nil && *m.RoundNumber == round &&
			!m.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (r *memMatchRepo) CountByCompetition(_ context.Context, _ repositories.SQLExecutor, competitionID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.matches {
		if m.CompetitionID != nil && *m.CompetitionID == competitionID {
			count++
		}
	}
	return count, nil
}

func (r *memMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *memMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, homeScore, awayScore int, winnerTeamID *int, status models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.HomeScore = &homeScore
	m.AwayScore = &awayScore
	m.WinnerTeamID = winnerTeamID
	m.Status = status
	return nil
}

type standingKey struct {
	competitionID int
	teamID        int
}

type memStandingRepo struct {
	mu        sync.Mutex
	nextID    int
	standings map[standingKey]*models.CompetitionStanding
}

func newMemStandingRepo() *memStandingRepo {
	return &memStandingRepo{standings: make(map[standingKey]*models.CompetitionStanding)}
}

func (r *memStandingRepo) Create(_ context.Context, _ repositories.SQLExecutor, standing *models.CompetitionStanding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	standing.ID = r.nextID
	cp := *standing
	r.standings[standingKey{standing.CompetitionID, standing.TeamID}] = &cp
	return nil
}

func (r *memStandingRepo) GetByCompetitionAndTeam(_ context.Context, _ repositories.SQLExecutor, competitionID, teamID int) (*models.CompetitionStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.standings[standingKey{competitionID, teamID}]
	if !ok {
		return nil, repositories.ErrStandingNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memStandingRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, competitionID, teamID int) (*models.CompetitionStanding, error) {
	if s, err := r.GetByCompetitionAndTeam(ctx, exec, competitionID, teamID); err == nil {
		return s, nil
	}
	standing := &models.CompetitionStanding{
		CompetitionID:     competitionID,
		TeamID:            teamID,
		AdvancementStatus: models.AdvancementInProgress,
	}
	if err := r.Create(ctx, exec, standing); err != nil {
		return nil, err
	}
	return standing, nil
}

func (r *memStandingRepo) Update(_ context.Context, _ repositories.SQLExecutor, standing *models.CompetitionStanding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := standingKey{standing.CompetitionID, standing.TeamID}
	if _, ok := r.standings[key]; !ok {
		return repositories.ErrStandingNotFound
	}
	cp := *standing
	r.standings[key] = &cp
	return nil
}

func (r *memStandingRepo) ListRanked(_ context.Context, _ repositories.SQLExecutor, competitionID int) ([]*models.CompetitionStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CompetitionStanding
	for key, s := range r.standings {
		if key.competitionID == competitionID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ScoreDifference() != b.ScoreDifference() {
			return a.ScoreDifference() > b.ScoreDifference()
		}
		if a.PointsScored != b.PointsScored {
			return a.PointsScored > b.PointsScored
		}
		return a.TeamID < b.TeamID
	})
	return out, nil
}

type memTeamRepo struct {
	mu            sync.Mutex
	nextID        int
	teams         map[int]*models.Team
	byCompetition map[int][]int
}

func newMemTeamRepo() *memTeamRepo {
	return &memTeamRepo{
		teams:         make(map[int]*models.Team),
		byCompetition: make(map[int][]int),
	}
}

// enroll registers a team in a competition's roster, creating it first when
// needed. Enrollment order is list order.
func (r *memTeamRepo) enroll(competitionID int, team *models.Team) *models.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	if team.ID == 0 {
		r.nextID++
		team.ID = r.nextID
	} else if team.ID > r.nextID {
		r.nextID = team.ID
	}
	cp := *team
	r.teams[team.ID] = &cp
	r.byCompetition[competitionID] = append(r.byCompetition[competitionID], team.ID)
	return team
}

func (r *memTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	team.ID = r.nextID
	cp := *team
	r.teams[team.ID] = &cp
	return nil
}

func (r *memTeamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTeamRepo) ListByCompetition(_ context.Context, _ repositories.SQLExecutor, competitionID int) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byCompetition[competitionID]
	out := make([]*models.Team, 0, len(ids))
	for _, id := range ids {
		cp := *r.teams[id]
		out = append(out, &cp)
	}
	return out, nil
}

type memMethodRepo struct {
	mu      sync.Mutex
	nextID  int
	methods map[int]*models.WinningMethod
}

func newMemMethodRepo() *memMethodRepo {
	return &memMethodRepo{methods: make(map[int]*models.WinningMethod)}
}

func (r *memMethodRepo) Create(_ context.Context, _ repositories.SQLExecutor, method *models.WinningMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	method.ID = r.nextID
	cp := *method
	r.methods[method.ID] = &cp
	return nil
}

func (r *memMethodRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.WinningMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[id]
	if !ok {
		return nil, repositories.ErrWinningMethodNotFound
	}
	cp := *m
	return &cp, nil
}

// capturingNotifier records published events for assertions.
type capturingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *capturingNotifier) Notify(_ context.Context, event events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *capturingNotifier) kinds() []events.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]events.Kind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

// recordingArchiver captures archive hand-offs for assertions.
type recordingArchiver struct {
	mu       sync.Mutex
	archived []int
	removed  []int
}

func (a *recordingArchiver) ArchiveStandings(_ context.Context, competitionID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, competitionID)
}

func (a *recordingArchiver) RemoveStandings(_ context.Context, competitionID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, competitionID)
}
