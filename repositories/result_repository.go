package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrResultConflict         = errors.New("result for this fighter already recorded in bracket")
	ErrResultReferenceInvalid = errors.New("invalid event or bracket reference")
)

type TournamentResultRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, results []*models.TournamentResult) error
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.TournamentResult, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.TournamentResult, error)
}

type tournamentResultRepository struct {
	db *sqlx.DB
}

func NewTournamentResultRepository(db *sqlx.DB) TournamentResultRepository {
	return &tournamentResultRepository{db: db}
}

func (r *tournamentResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const resultColumns = `id, event_id, bracket_id, user_id, final_rank, medal, category_name, created_at`

// CreateBatch inserts the results one by one on the given executor; pass a
// transaction to make the batch atomic.
func (r *tournamentResultRepository) CreateBatch(ctx context.Context, exec SQLExecutor, results []*models.TournamentResult) error {
	if len(results) == 0 {
		return nil
	}
	defer metrics.RecordDBOperation("insert", "tournament_results", time.Now())
	executor := r.getExecutor(exec)

	query := executor.Rebind(`
		INSERT INTO tournament_results (event_id, bracket_id, user_id, final_rank, medal, category_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	for _, res := range results {
		if res.CreatedAt.IsZero() {
			res.CreatedAt = time.Now().UTC()
		}
		err := executor.QueryRowxContext(ctx, query,
			res.EventID, res.BracketID, res.UserID, res.FinalRank, res.Medal, res.CategoryName, res.CreatedAt,
		).Scan(&res.ID)
		if err != nil {
			return r.handleResultError(err, res)
		}
	}
	return nil
}

func (r *tournamentResultRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.TournamentResult, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`SELECT ` + resultColumns + ` FROM tournament_results WHERE bracket_id = ? ORDER BY final_rank ASC, id ASC`)

	results := make([]*models.TournamentResult, 0)
	if err := sqlx.SelectContext(ctx, executor, &results, query, bracketID); err != nil {
		return nil, fmt.Errorf("failed to list results for bracket %d: %w", bracketID, err)
	}
	return results, nil
}

func (r *tournamentResultRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.TournamentResult, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`SELECT ` + resultColumns + ` FROM tournament_results WHERE event_id = ? ORDER BY category_name ASC, final_rank ASC, id ASC`)

	results := make([]*models.TournamentResult, 0)
	if err := sqlx.SelectContext(ctx, executor, &results, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list results for event %d: %w", eventID, err)
	}
	return results, nil
}

func (r *tournamentResultRepository) handleResultError(err error, res *models.TournamentResult) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: user %d in bracket %d", ErrResultConflict, res.UserID, res.BracketID)
	case isForeignKeyViolation(err):
		return ErrResultReferenceInvalid
	}
	return fmt.Errorf("failed to insert result for user %d: %w", res.UserID, err)
}
