package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrBracketNotFound         = errors.New("bracket not found")
	ErrBracketCategoryConflict = errors.New("bracket for this category key already exists")
	ErrBracketEventInvalid     = errors.New("invalid event reference")
)

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Bracket, error)
	// ListUnresolved returns brackets that are not COMPLETED yet.
	ListUnresolved(ctx context.Context, exec SQLExecutor) ([]*models.Bracket, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.BracketStatus) error
	// PromoteToInProgress moves a DRAFT bracket to IN_PROGRESS and leaves any other status untouched.
	PromoteToInProgress(ctx context.Context, exec SQLExecutor, id int) error
}

type bracketRepository struct {
	db *sqlx.DB
}

func NewBracketRepository(db *sqlx.DB) BracketRepository {
	return &bracketRepository{db: db}
}

func (r *bracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const bracketColumns = `id, event_id, category_age, category_weight, category_belt,
	category_name, total_participants, status, created_at`

func (r *bracketRepository) Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error {
	defer metrics.RecordDBOperation("insert", "brackets", time.Now())
	executor := r.getExecutor(exec)

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	query := executor.Rebind(`
		INSERT INTO brackets (event_id, category_age, category_weight, category_belt,
			category_name, total_participants, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := executor.QueryRowxContext(ctx, query,
		b.EventID, b.CategoryAge, b.CategoryWeight, b.CategoryBelt,
		b.CategoryName, b.TotalParticipants, b.Status, b.CreatedAt,
	).Scan(&b.ID)
	return r.handleBracketError(err)
}

func (r *bracketRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`SELECT ` + bracketColumns + ` FROM brackets WHERE id = ?`)

	bracket := &models.Bracket{}
	if err := sqlx.GetContext(ctx, executor, bracket, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to get bracket %d: %w", id, err)
	}
	return bracket, nil
}

func (r *bracketRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Bracket, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`SELECT ` + bracketColumns + ` FROM brackets WHERE event_id = ? ORDER BY category_name ASC, category_age ASC, category_weight ASC, category_belt ASC, id ASC`)

	brackets := make([]*models.Bracket, 0)
	if err := sqlx.SelectContext(ctx, executor, &brackets, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list brackets for event %d: %w", eventID, err)
	}
	return brackets, nil
}

func (r *bracketRepository) ListUnresolved(ctx context.Context, exec SQLExecutor) ([]*models.Bracket, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`SELECT ` + bracketColumns + ` FROM brackets WHERE status <> ? ORDER BY id ASC`)

	brackets := make([]*models.Bracket, 0)
	if err := sqlx.SelectContext(ctx, executor, &brackets, query, models.BracketCompleted); err != nil {
		return nil, fmt.Errorf("failed to list unresolved brackets: %w", err)
	}
	return brackets, nil
}

func (r *bracketRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.BracketStatus) error {
	defer metrics.RecordDBOperation("update", "brackets", time.Now())
	executor := r.getExecutor(exec)
	query := executor.Rebind(`UPDATE brackets SET status = ? WHERE id = ?`)

	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of bracket %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *bracketRepository) PromoteToInProgress(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`UPDATE brackets SET status = ? WHERE id = ? AND status = ?`)

	if _, err := executor.ExecContext(ctx, query, models.BracketInProgress, id, models.BracketDraft); err != nil {
		return fmt.Errorf("failed to promote bracket %d: %w", id, err)
	}
	return nil
}

func (r *bracketRepository) handleBracketError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isUniqueViolation(err):
		return ErrBracketCategoryConflict
	case isForeignKeyViolation(err):
		return ErrBracketEventInvalid
	}
	return fmt.Errorf("failed to create bracket: %w", err)
}
