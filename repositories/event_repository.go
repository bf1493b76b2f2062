package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/jmoiron/sqlx"
)

var ErrEventNotFound = errors.New("event not found")

// EventRepository reads events owned by the membership application.
type EventRepository interface {
	GetByID(ctx context.Context, id int) (*models.Event, error)
	Exists(ctx context.Context, id int) (bool, error)
}

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := r.db.Rebind(`SELECT id, name, created_at FROM events WHERE id = ?`)

	event := &models.Event{}
	if err := sqlx.GetContext(ctx, r.db, event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return event, nil
}

func (r *eventRepository) Exists(ctx context.Context, id int) (bool, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM events WHERE id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, id); err != nil {
		return false, fmt.Errorf("failed to check event %d: %w", id, err)
	}
	return count > 0, nil
}
