package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/jmoiron/sqlx"
)

// RegistrationRepository is the read side of event_registrations, which the
// membership application writes.
type RegistrationRepository interface {
	ListApprovedRegistrations(ctx context.Context, eventID int) ([]*models.Registration, error)
}

type registrationRepository struct {
	db *sqlx.DB
}

func NewRegistrationRepository(db *sqlx.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// ListApprovedRegistrations returns approved entries in registration order.
func (r *registrationRepository) ListApprovedRegistrations(ctx context.Context, eventID int) ([]*models.Registration, error) {
	defer metrics.RecordDBOperation("select", "event_registrations", time.Now())

	query := r.db.Rebind(`
		SELECT id, event_id, user_id, fighter_name, belt_rank,
		       category_age, category_weight, category_belt, approval_status, created_at
		FROM event_registrations
		WHERE event_id = ? AND approval_status = ?
		ORDER BY created_at ASC, id ASC`)

	registrations := make([]*models.Registration, 0)
	if err := sqlx.SelectContext(ctx, r.db, &registrations, query, eventID, models.RegistrationApproved); err != nil {
		return nil, fmt.Errorf("failed to list approved registrations for event %d: %w", eventID, err)
	}
	return registrations, nil
}
