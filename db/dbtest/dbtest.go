// Package dbtest provides a migrated in-memory SQLite database and fixture helpers for tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// New opens a private in-memory database with all migrations applied.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	database, err := db.Connect(db.DriverSQLite, "file::memory:?_foreign_keys=on", 5*time.Second)
	require.NoError(t, err, "Failed to connect to in-memory DB")
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.Migrate(database, db.DriverSQLite, ""), "Failed to apply migrations")
	return database
}

func CreateEvent(t testing.TB, database *sqlx.DB, name string) int {
	t.Helper()
	var id int
	err := database.QueryRowx(`INSERT INTO events (name, created_at) VALUES (?, ?) RETURNING id`, name, time.Now().UTC()).Scan(&id)
	require.NoError(t, err)
	return id
}

// Fighter describes an approved registration fixture.
type Fighter struct {
	UserID int
	Name   string
	Belt   string
	Age    string
	Weight string
	Class  string
}

// Register inserts approved registrations for the event in the given order.
func Register(t testing.TB, database *sqlx.DB, eventID int, fighters ...Fighter) {
	t.Helper()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, f := range fighters {
		RegisterWithStatus(t, database, eventID, f, models.RegistrationApproved, base.Add(time.Duration(i)*time.Second))
	}
}

func RegisterWithStatus(t testing.TB, database *sqlx.DB, eventID int, f Fighter, status models.RegistrationStatus, createdAt time.Time) {
	t.Helper()
	_, err := database.Exec(`
		INSERT INTO event_registrations
			(event_id, user_id, fighter_name, belt_rank, category_age, category_weight, category_belt, approval_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID, f.UserID, f.Name, f.Belt, nullable(f.Age), nullable(f.Weight), nullable(f.Class), status, createdAt)
	require.NoError(t, err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
