package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/db/dbtest"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func newBracket(eventID int, age, weight, belt string) *models.Bracket {
	return &models.Bracket{
		EventID:           eventID,
		CategoryAge:       age,
		CategoryWeight:    weight,
		CategoryBelt:      belt,
		CategoryName:      age + ", " + weight + ", " + belt,
		TotalParticipants: 2,
		Status:            models.BracketDraft,
	}
}

func createBracket(t *testing.T, database *sqlx.DB, eventID int, age, weight, belt string) *models.Bracket {
	t.Helper()
	b := newBracket(eventID, age, weight, belt)
	require.NoError(t, NewBracketRepository(database).Create(context.Background(), nil, b))
	return b
}

func TestEventRepository(t *testing.T) {
	database := dbtest.New(t)
	repo := NewEventRepository(database)
	ctx := context.Background()

	id := dbtest.CreateEvent(t, database, "Spring Open")

	event, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Spring Open", event.Name)

	exists, err := repo.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, id+100)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetByID(ctx, id+100)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRegistrationRepositoryListsApprovedInOrder(t *testing.T) {
	database := dbtest.New(t)
	repo := NewRegistrationRepository(database)
	eventID := dbtest.CreateEvent(t, database, "Cup")
	otherEvent := dbtest.CreateEvent(t, database, "Other")

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	dbtest.RegisterWithStatus(t, database, eventID, dbtest.Fighter{UserID: 2, Name: "Second", Belt: "Blue"}, models.RegistrationApproved, base.Add(time.Minute))
	dbtest.RegisterWithStatus(t, database, eventID, dbtest.Fighter{UserID: 1, Name: "First", Belt: "Red", Age: "Adult"}, models.RegistrationApproved, base)
	dbtest.RegisterWithStatus(t, database, eventID, dbtest.Fighter{UserID: 3, Name: "Pending"}, models.RegistrationPending, base)
	dbtest.RegisterWithStatus(t, database, otherEvent, dbtest.Fighter{UserID: 4, Name: "Elsewhere"}, models.RegistrationApproved, base)

	regs, err := repo.ListApprovedRegistrations(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "First", regs[0].FighterName)
	require.NotNil(t, regs[0].CategoryAge)
	assert.Equal(t, "Adult", *regs[0].CategoryAge)
	assert.Nil(t, regs[0].CategoryWeight)
	assert.Equal(t, "Second", regs[1].FighterName)
}

func TestBracketRepository(t *testing.T) {
	database := dbtest.New(t)
	repo := NewBracketRepository(database)
	ctx := context.Background()
	eventID := dbtest.CreateEvent(t, database, "Cup")

	b := createBracket(t, database, eventID, "Adult", "-70kg", "Black")
	assert.NotZero(t, b.ID)

	dup := newBracket(eventID, "Adult", "-70kg", "Black")
	assert.ErrorIs(t, repo.Create(ctx, nil, dup), ErrBracketCategoryConflict)

	// То же отображаемое имя, но другая категория
	lookalike := newBracket(eventID, "Adult, -70kg", "Black", "Open")
	lookalike.CategoryName = b.CategoryName
	require.NoError(t, repo.Create(ctx, nil, lookalike))

	orphan := newBracket(eventID+99, "X", "X", "X")
	assert.ErrorIs(t, repo.Create(ctx, nil, orphan), ErrBracketEventInvalid)

	list, err := repo.ListByEvent(ctx, nil, eventID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Adult", list[0].CategoryAge)
	assert.Equal(t, "-70kg", list[0].CategoryWeight)
	assert.Equal(t, "Black", list[0].CategoryBelt)
	assert.Equal(t, "Adult, -70kg", list[1].CategoryAge)

	require.NoError(t, repo.UpdateStatus(ctx, nil, lookalike.ID, models.BracketCompleted))

	require.NoError(t, repo.PromoteToInProgress(ctx, nil, b.ID))
	got, err := repo.GetByID(ctx, nil, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BracketInProgress, got.Status)

	require.NoError(t, repo.UpdateStatus(ctx, nil, b.ID, models.BracketCompleted))
	// повторное продвижение не откатывает COMPLETED
	require.NoError(t, repo.PromoteToInProgress(ctx, nil, b.ID))
	got, err = repo.GetByID(ctx, nil, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BracketCompleted, got.Status)

	unresolved, err := repo.ListUnresolved(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	_, err = repo.GetByID(ctx, nil, b.ID+1)
	assert.ErrorIs(t, err, ErrBracketNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, nil, b.ID+1, models.BracketCompleted), ErrBracketNotFound)
}

func TestMatchRepositoryLifecycle(t *testing.T) {
	database := dbtest.New(t)
	repo := NewMatchRepository(database)
	ctx := context.Background()
	eventID := dbtest.CreateEvent(t, database, "Cup")
	b := createBracket(t, database, eventID, "Open", "Open", "Open")

	semi := &models.Match{
		BracketID: b.ID, RoundNumber: 1, RoundName: "Final", MatchNumber: 1,
		FighterAID: intPtr(10), FighterBID: intPtr(20),
		FighterAName: strPtr("Ana"), FighterBName: strPtr("Bo"),
		Status: models.MatchScheduled,
	}
	final := &models.Match{BracketID: b.ID, RoundNumber: 2, RoundName: "Final", MatchNumber: 2, Status: models.MatchScheduled}
	require.NoError(t, repo.Create(ctx, nil, semi))
	require.NoError(t, repo.Create(ctx, nil, final))

	dup := &models.Match{BracketID: b.ID, RoundNumber: 1, RoundName: "Final", MatchNumber: 1, Status: models.MatchScheduled}
	assert.ErrorIs(t, repo.Create(ctx, nil, dup), ErrMatchNumberConflict)

	require.NoError(t, repo.SetNextMatch(ctx, nil, semi.ID, final.ID))

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkLive(ctx, nil, semi.ID, started))

	live, err := repo.ListByStatus(ctx, nil, models.MatchLive)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, semi.ID, live[0].ID)
	assert.Equal(t, eventID, live[0].EventID)
	require.NotNil(t, live[0].StartedAt)
	assert.True(t, started.Equal(*live[0].StartedAt))

	require.NoError(t, repo.UpdateScore(ctx, nil, semi.ID, intPtr(3), nil, nil))
	require.NoError(t, repo.UpdateScore(ctx, nil, semi.ID, nil, intPtr(1), strPtr("close one")))

	got, err := repo.GetByID(ctx, nil, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FighterAScore)
	assert.Equal(t, 1, got.FighterBScore)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "close one", *got.Notes)
	require.NotNil(t, got.NextMatchID)
	assert.Equal(t, final.ID, *got.NextMatchID)

	require.NoError(t, repo.Complete(ctx, nil, semi.ID, 10, nil, started.Add(time.Minute)))
	require.NoError(t, repo.AssignFighter(ctx, nil, final.ID, models.SlotB, 10, strPtr("Ana")))

	got, err = repo.GetByIDForUpdate(ctx, nil, semi.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, 10, *got.WinnerID)
	assert.Equal(t, "close one", *got.Notes)

	nextMatch, err := repo.GetByID(ctx, nil, final.ID)
	require.NoError(t, err)
	assert.Nil(t, nextMatch.FighterAID)
	require.NotNil(t, nextMatch.FighterBID)
	assert.Equal(t, 10, *nextMatch.FighterBID)
	assert.Equal(t, "Ana", *nextMatch.FighterBName)

	incomplete, err := repo.CountIncomplete(ctx, nil, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, incomplete)

	all, err := repo.ListByEvent(ctx, nil, eventID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].MatchNumber)

	_, err = repo.GetByID(ctx, nil, 9999)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.ErrorIs(t, repo.MarkLive(ctx, nil, 9999, started), ErrMatchNotFound)
	assert.Error(t, repo.AssignFighter(ctx, nil, final.ID, 0, 10, nil))
}

func TestTournamentResultRepository(t *testing.T) {
	database := dbtest.New(t)
	repo := NewTournamentResultRepository(database)
	ctx := context.Background()
	eventID := dbtest.CreateEvent(t, database, "Cup")
	b := createBracket(t, database, eventID, "Open", "Open", "Open")

	results := []*models.TournamentResult{
		{EventID: eventID, BracketID: b.ID, UserID: 2, FinalRank: 2, Medal: models.MedalSilver, CategoryName: b.CategoryName},
		{EventID: eventID, BracketID: b.ID, UserID: 1, FinalRank: 1, Medal: models.MedalGold, CategoryName: b.CategoryName},
	}
	require.NoError(t, repo.CreateBatch(ctx, nil, results))
	assert.NotZero(t, results[0].ID)

	byBracket, err := repo.ListByBracket(ctx, nil, b.ID)
	require.NoError(t, err)
	require.Len(t, byBracket, 2)
	assert.Equal(t, 1, byBracket[0].UserID)

	byEvent, err := repo.ListByEvent(ctx, nil, eventID)
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	err = repo.CreateBatch(ctx, nil, []*models.TournamentResult{
		{EventID: eventID, BracketID: b.ID, UserID: 1, FinalRank: 3, Medal: models.MedalBronze, CategoryName: b.CategoryName},
	})
	assert.ErrorIs(t, err, ErrResultConflict)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	database := dbtest.New(t)
	repo := NewBracketRepository(database)
	ctx := context.Background()
	eventID := dbtest.CreateEvent(t, database, "Cup")

	boom := errors.New("boom")
	err := WithTx(ctx, database, func(tx SQLExecutor) error {
		b := newBracket(eventID, "Rolled", "back", "Open")
		if err := repo.Create(ctx, tx, b); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := repo.ListByEvent(ctx, nil, eventID)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = WithTx(ctx, database, func(tx SQLExecutor) error {
		return repo.Create(ctx, tx, newBracket(eventID, "Kept", "Open", "Open"))
	})
	require.NoError(t, err)

	list, err = repo.ListByEvent(ctx, nil, eventID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
