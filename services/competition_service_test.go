package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/match-developers/matchplay/events"
	"github.com/match-developers/matchplay/models"
)

type competitionFixture struct {
	competitionRepo *memCompetitionRepo
	teamRepo        *memTeamRepo
	matchRepo       *memMatchRepo
	standingRepo    *memStandingRepo
	methodRepo      *memMethodRepo
	notifier        *capturingNotifier
	archiver        *recordingArchiver
	svc             CompetitionService
}

func newCompetitionFixture() *competitionFixture {
	f := &competitionFixture{
		competitionRepo: newMemCompetitionRepo(),
		teamRepo:        newMemTeamRepo(),
		matchRepo:       newMemMatchRepo(),
		standingRepo:    newMemStandingRepo(),
		methodRepo:      newMemMethodRepo(),
		notifier:        &capturingNotifier{},
		archiver:        &recordingArchiver{},
	}
	f.svc = NewCompetitionService(
		memTxBeginner{},
		f.competitionRepo,
		f.teamRepo,
		f.matchRepo,
		f.standingRepo,
		f.methodRepo,
		f.notifier,
		f.archiver,
		slog.Default(),
	)
	return f
}

func validCreateInput() CreateCompetitionInput {
	return CreateCompetitionInput{
		OrganizerID: 1,
		Name:        "Sunday five-a-side",
		Kind:        models.KindLeague,
		StartDate:   time.Now().Add(48 * time.Hour),
		Deadline:    time.Now().Add(72 * time.Hour),
		Capacity:    4,
	}
}

func TestCreateCompetitionDefaults(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NotZero(t, c.ID)
	require.Equal(t, models.CompetitionRegistration, c.Status)
	require.Equal(t, 1, c.CurrentRound)
	// A 4-team league defaults to a single full cycle.
	require.Equal(t, 3, c.TotalRounds)
	require.Equal(t, models.ModeIndividual, c.ParticipantMode)
	require.Equal(t, models.PolicyOrganizerBased, c.SchedulingPolicy)

	require.Equal(t, []events.Kind{events.KindCompetitionCreated}, f.notifier.kinds())
}

func TestCreateCompetitionValidation(t *testing.T) {
	f := newCompetitionFixture()

	cases := []struct {
		name    string
		mutate  func(*CreateCompetitionInput)
		wantErr error
	}{
		{"missing name", func(in *CreateCompetitionInput) { in.Name = "" }, ErrCompetitionNameRequired},
		{"capacity too small", func(in *CreateCompetitionInput) { in.Capacity = 1 }, ErrCompetitionInvalidCap},
		{"start after deadline", func(in *CreateCompetitionInput) {
			in.StartDate = in.Deadline.Add(time.Hour)
		}, ErrCompetitionInvalidDates},
		{"negative rounds", func(in *CreateCompetitionInput) { in.TotalRounds = -1 }, ErrCompetitionInvalidRounds},
		{"unknown kind", func(in *CreateCompetitionInput) { in.Kind = "ladder" }, ErrValidationFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)
			_, err := f.svc.Create(context.Background(), input)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateTournamentDerivesBracketDepth(t *testing.T) {
	f := newCompetitionFixture()

	input := validCreateInput()
	input.Kind = models.KindTournament
	input.Capacity = 8
	input.TotalRounds = 99 // ignored: depth comes from the bracket size

	c, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 3, c.TotalRounds)
}

func TestCreateTournamentRejectsNonPowerOfTwoCapacity(t *testing.T) {
	f := newCompetitionFixture()

	input := validCreateInput()
	input.Kind = models.KindTournament
	input.Capacity = 6

	_, err := f.svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidBracketSize)
}

func TestCreateTournamentRejectsDrawAllowingMethod(t *testing.T) {
	f := newCompetitionFixture()
	method := &models.WinningMethod{Name: "timed halves", AllowsDraw: true}
	require.NoError(t, f.methodRepo.Create(context.Background(), nil, method))

	input := validCreateInput()
	input.Kind = models.KindTournament
	input.Capacity = 4
	input.WinningMethodID = &method.ID

	_, err := f.svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrDrawNotAllowed)

	// The same method is fine for a league.
	input.Kind = models.KindLeague
	_, err = f.svc.Create(context.Background(), input)
	require.NoError(t, err)
}

func TestCreateCompetitionUnknownWinningMethod(t *testing.T) {
	f := newCompetitionFixture()

	input := validCreateInput()
	missing := 404
	input.WinningMethodID = &missing

	_, err := f.svc.Create(context.Background(), input)
	require.ErrorIs(t, err, ErrWinningMethodNotFound)
}

func TestGetAggregatesCompetitionData(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	teamA := f.teamRepo.enroll(c.ID, &models.Team{Name: "alpha"})
	teamB := f.teamRepo.enroll(c.ID, &models.Team{Name: "beta"})
	round := 1
	require.NoError(t, f.matchRepo.Create(context.Background(), nil, &models.Match{
		CompetitionID: &c.ID,
		HomeTeamID:    teamA.ID,
		AwayTeamID:    teamB.ID,
		Status:        models.MatchStatusScheduled,
		RoundNumber:   &round,
	}))
	_, err = f.standingRepo.GetOrCreate(context.Background(), nil, c.ID, teamA.ID)
	require.NoError(t, err)
	_, err = f.standingRepo.GetOrCreate(context.Background(), nil, c.ID, teamB.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, got.Teams, 2)
	require.Len(t, got.Matches, 1)
	require.Len(t, got.Standings, 2)
}

func TestGetUnknownCompetition(t *testing.T) {
	f := newCompetitionFixture()

	_, err := f.svc.Get(context.Background(), 123)
	require.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestDeleteCompetitionOrganizerOnly(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), c.ID, c.OrganizerID+1)
	require.ErrorIs(t, err, ErrForbiddenOperation)

	require.NoError(t, f.svc.Delete(context.Background(), c.ID, c.OrganizerID))

	_, err = f.svc.Get(context.Background(), c.ID)
	require.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestDeleteCompetitionOnlyDuringRegistration(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NoError(t, f.competitionRepo.UpdateProgress(context.Background(), nil, c.ID, 1, models.CompetitionActive))

	err = f.svc.Delete(context.Background(), c.ID, c.OrganizerID)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestJoinWrapsIndividualIntoTeam(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	userID := 9
	team, err := f.svc.Join(context.Background(), c.ID, JoinInput{UserID: &userID})
	require.NoError(t, err)
	require.Equal(t, []int64{9}, team.MemberIDs)
	require.Equal(t, "Sunday five-a-side team 1", team.Name)

	enrolled, err := f.competitionRepo.CountEnrolled(context.Background(), nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, enrolled)

	// The table row exists from enrollment on.
	_, err = f.standingRepo.GetByCompetitionAndTeam(context.Background(), nil, c.ID, team.ID)
	require.NoError(t, err)
}

func TestJoinClosedAfterStartDate(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	// The advertised start has passed but the sweep deadline has not; the
	// roster is frozen regardless.
	c.StartDate = time.Now().Add(-time.Hour)
	c.Deadline = time.Now().Add(time.Hour)
	f.competitionRepo.put(c)

	userID := 9
	_, err = f.svc.Join(context.Background(), c.ID, JoinInput{UserID: &userID})
	require.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestJoinFillsCompetition(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	for userID := 1; userID <= c.Capacity; userID++ {
		id := userID
		_, err := f.svc.Join(context.Background(), c.ID, JoinInput{UserID: &id})
		require.NoError(t, err)
	}
	require.Equal(t, []events.Kind{events.KindCompetitionCreated, events.KindCompetitionFull}, f.notifier.kinds())

	extra := 99
	_, err = f.svc.Join(context.Background(), c.ID, JoinInput{UserID: &extra})
	require.ErrorIs(t, err, ErrCompetitionFull)
}

func TestJoinClubModeRequiresTeam(t *testing.T) {
	f := newCompetitionFixture()

	input := validCreateInput()
	input.ParticipantMode = models.ModeClub
	c, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)

	userID := 9
	_, err = f.svc.Join(context.Background(), c.ID, JoinInput{UserID: &userID})
	require.ErrorIs(t, err, ErrValidationFailed)

	club := &models.Team{Name: "royals"}
	require.NoError(t, f.teamRepo.Create(context.Background(), nil, club))
	team, err := f.svc.Join(context.Background(), c.ID, JoinInput{TeamID: &club.ID})
	require.NoError(t, err)
	require.Equal(t, club.ID, team.ID)
}

func TestCancelCompetitionCancelsOpenFixtures(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NoError(t, f.competitionRepo.UpdateProgress(context.Background(), nil, c.ID, 1, models.CompetitionActive))

	round := 1
	open := &models.Match{CompetitionID: &c.ID, HomeTeamID: 1, AwayTeamID: 2, Status: models.MatchStatusScheduled, RoundNumber: &round}
	done := &models.Match{CompetitionID: &c.ID, HomeTeamID: 3, AwayTeamID: 4, Status: models.MatchStatusCompleted, RoundNumber: &round}
	require.NoError(t, f.matchRepo.Create(context.Background(), nil, open))
	require.NoError(t, f.matchRepo.Create(context.Background(), nil, done))

	err = f.svc.Cancel(context.Background(), c.ID, c.OrganizerID+1)
	require.ErrorIs(t, err, ErrForbiddenOperation)

	require.NoError(t, f.svc.Cancel(context.Background(), c.ID, c.OrganizerID))

	got, err := f.competitionRepo.GetByID(context.Background(), nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.CompetitionCanceled, got.Status)

	openAfter, err := f.matchRepo.GetByID(context.Background(), nil, open.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusCanceled, openAfter.Status)
	doneAfter, err := f.matchRepo.GetByID(context.Background(), nil, done.ID)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusCompleted, doneAfter.Status)

	// Canceled is terminal for the competition too.
	err = f.svc.Cancel(context.Background(), c.ID, c.OrganizerID)
	require.ErrorIs(t, err, ErrCompetitionNotInProgress)
}

func TestDeleteCompetitionRemovesArchivedStandings(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), c.ID, c.OrganizerID))
	require.Equal(t, []int{c.ID}, f.archiver.removed)
}

func TestStandingsRankedOrder(t *testing.T) {
	f := newCompetitionFixture()

	c, err := f.svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	leader, err := f.standingRepo.GetOrCreate(context.Background(), nil, c.ID, 2)
	require.NoError(t, err)
	leader.Points = 6
	require.NoError(t, f.standingRepo.Update(context.Background(), nil, leader))

	trailer, err := f.standingRepo.GetOrCreate(context.Background(), nil, c.ID, 1)
	require.NoError(t, err)
	trailer.Points = 3
	require.NoError(t, f.standingRepo.Update(context.Background(), nil, trailer))

	standings, err := f.svc.Standings(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	require.Equal(t, 2, standings[0].TeamID)
	require.Equal(t, 1, standings[1].TeamID)
}
