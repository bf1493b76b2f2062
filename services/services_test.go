package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/db/dbtest"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/storage"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	Topic   string
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(topic, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Topic: topic, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) ofType(eventType string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) topics(eventType string) []string {
	var topics []string
	for _, e := range p.ofType(eventType) {
		topics = append(topics, e.Topic)
	}
	return topics
}

type memoryArchiver struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (a *memoryArchiver) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = make(map[string][]byte)
	}
	a.objects[key] = body
	return &storage.UploadResult{Key: key, Location: a.GetPublicURL(key)}, nil
}

func (a *memoryArchiver) GetPublicURL(key string) string {
	return "mem://" + key
}

type testEnv struct {
	db         *sqlx.DB
	brackets   BracketService
	matches    MatchService
	placements PlacementService
	publisher  *recordingPublisher
	archiver   *memoryArchiver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := dbtest.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eventRepo := repositories.NewEventRepository(database)
	registrationRepo := repositories.NewRegistrationRepository(database)
	bracketRepo := repositories.NewBracketRepository(database)
	matchRepo := repositories.NewMatchRepository(database)
	resultRepo := repositories.NewTournamentResultRepository(database)

	publisher := &recordingPublisher{}
	archiver := &memoryArchiver{}

	return &testEnv{
		db:         database,
		brackets:   NewBracketService(database, eventRepo, registrationRepo, bracketRepo, matchRepo, 4, logger),
		matches:    NewMatchService(database, matchRepo, bracketRepo, publisher, logger),
		placements: NewPlacementService(database, eventRepo, bracketRepo, matchRepo, resultRepo, publisher, archiver, logger),
		publisher:  publisher,
		archiver:   archiver,
	}
}

func openFighters(n int) []dbtest.Fighter {
	fighters := make([]dbtest.Fighter, 0, n)
	for i := 1; i <= n; i++ {
		fighters = append(fighters, dbtest.Fighter{UserID: i, Name: fmt.Sprintf("Fighter %d", i)})
	}
	return fighters
}

// buildOpenBracket registers n fighters without category fields and builds the single resulting bracket.
func (e *testEnv) buildOpenBracket(t *testing.T, n int) (int, *models.Bracket) {
	t.Helper()
	eventID := dbtest.CreateEvent(t, e.db, "Open Cup")
	dbtest.Register(t, e.db, eventID, openFighters(n)...)

	built, err := e.brackets.BuildBrackets(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, built, 1)
	return eventID, built[0]
}

func (e *testEnv) play(t *testing.T, matchID, winnerID int) *models.Match {
	t.Helper()
	ctx := context.Background()
	_, err := e.matches.StartMatch(ctx, matchID)
	require.NoError(t, err)
	ended, err := e.matches.EndMatch(ctx, matchID, EndMatchInput{WinnerID: winnerID})
	require.NoError(t, err)
	return ended
}

func matchByNumber(t *testing.T, b *models.Bracket, number int) *models.Match {
	t.Helper()
	for _, m := range b.Matches {
		if m.MatchNumber == number {
			return m
		}
	}
	require.FailNow(t, "match not found", "match number %d", number)
	return nil
}

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

var (
	errUploadFailed = errors.New("upload failed")
	testTime        = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
)
