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
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchNumberConflict = errors.New("match number already used in this bracket")
	ErrMatchBracketInvalid = errors.New("invalid bracket or next match reference")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate reads the match and, on postgres, row-locks it until the transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Match, error)
	ListByStatus(ctx context.Context, exec SQLExecutor, status models.MatchStatus) ([]*models.Match, error)
	CountIncomplete(ctx context.Context, exec SQLExecutor, bracketID int) (int, error)

	SetNextMatch(ctx context.Context, exec SQLExecutor, matchID, nextMatchID int) error
	AssignFighter(ctx context.Context, exec SQLExecutor, matchID int, slot models.Slot, fighterID int, fighterName *string) error
	MarkLive(ctx context.Context, exec SQLExecutor, matchID int, startedAt time.Time) error
	// UpdateScore overwrites only the non-nil fields.
	UpdateScore(ctx context.Context, exec SQLExecutor, matchID int, fighterAScore, fighterBScore *int, notes *string) error
	Complete(ctx context.Context, exec SQLExecutor, matchID, winnerID int, notes *string, completedAt time.Time) error
}

type matchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchSelect = `
	SELECT m.id, m.bracket_id, b.event_id, m.round_number, m.round_name, m.match_number,
	       m.fighter_a_id, m.fighter_b_id, m.fighter_a_name, m.fighter_b_name, m.is_bye,
	       m.status, m.winner_id, m.fighter_a_score, m.fighter_b_score, m.notes,
	       m.started_at, m.completed_at, m.next_match_id, m.created_at
	FROM matches m
	JOIN brackets b ON b.id = m.bracket_id`

func (r *matchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	defer metrics.RecordDBOperation("insert", "matches", time.Now())
	executor := r.getExecutor(exec)

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := executor.Rebind(`
		INSERT INTO matches
			(bracket_id, round_number, round_name, match_number,
			 fighter_a_id, fighter_b_id, fighter_a_name, fighter_b_name, is_bye,
			 status, winner_id, fighter_a_score, fighter_b_score, notes,
			 started_at, completed_at, next_match_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := executor.QueryRowxContext(ctx, query,
		m.BracketID, m.RoundNumber, m.RoundName, m.MatchNumber,
		m.FighterAID, m.FighterBID, m.FighterAName, m.FighterBName, m.IsBye,
		m.Status, m.WinnerID, m.FighterAScore, m.FighterBScore, m.Notes,
		m.StartedAt, m.CompletedAt, m.NextMatchID, m.CreatedAt,
	).Scan(&m.ID)
	return r.handleMatchError(err)
}

func (r *matchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, r.getExecutor(exec), id, false)
}

func (r *matchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, r.getExecutor(exec), id, true)
}

func (r *matchRepository) get(ctx context.Context, executor SQLExecutor, id int, lock bool) (*models.Match, error) {
	query := matchSelect + ` WHERE m.id = ?`
	if lock {
		query += forUpdate(executor, "m")
	}

	match := &models.Match{}
	if err := sqlx.GetContext(ctx, executor, match, executor.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return match, nil
}

func (r *matchRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(matchSelect + ` WHERE m.bracket_id = ? ORDER BY m.match_number ASC`)

	matches := make([]*models.Match, 0)
	if err := sqlx.SelectContext(ctx, executor, &matches, query, bracketID); err != nil {
		return nil, fmt.Errorf("failed to list matches for bracket %d: %w", bracketID, err)
	}
	return matches, nil
}

func (r *matchRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(matchSelect + ` WHERE b.event_id = ? ORDER BY m.bracket_id ASC, m.match_number ASC`)

	matches := make([]*models.Match, 0)
	if err := sqlx.SelectContext(ctx, executor, &matches, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to list matches for event %d: %w", eventID, err)
	}
	return matches, nil
}

func (r *matchRepository) ListByStatus(ctx context.Context, exec SQLExecutor, status models.MatchStatus) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(matchSelect + ` WHERE m.status = ? ORDER BY m.started_at ASC, m.id ASC`)

	matches := make([]*models.Match, 0)
	if err := sqlx.SelectContext(ctx, executor, &matches, query, status); err != nil {
		return nil, fmt.Errorf("failed to list %s matches: %w", status, err)
	}
	return matches, nil
}

func (r *matchRepository) CountIncomplete(ctx context.Context, exec SQLExecutor, bracketID int) (int, error) {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`SELECT COUNT(*) FROM matches WHERE bracket_id = ? AND status <> ?`)

	var count int
	if err := sqlx.GetContext(ctx, executor, &count, query, bracketID, models.MatchCompleted); err != nil {
		return 0, fmt.Errorf("failed to count incomplete matches of bracket %d: %w", bracketID, err)
	}
	return count, nil
}

func (r *matchRepository) SetNextMatch(ctx context.Context, exec SQLExecutor, matchID, nextMatchID int) error {
	executor := r.getExecutor(exec)
	query := executor.Rebind(`UPDATE matches SET next_match_id = ? WHERE id = ?`)

	result, err := executor.ExecContext(ctx, query, nextMatchID, matchID)
	if err != nil {
		return fmt.Errorf("SetNextMatch: failed to execute query for match %d: %w", matchID, r.handleMatchError(err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *matchRepository) AssignFighter(ctx context.Context, exec SQLExecutor, matchID int, slot models.Slot, fighterID int, fighterName *string) error {
	defer metrics.RecordDBOperation("update", "matches", time.Now())
	executor := r.getExecutor(exec)

	var query string
	switch slot {
	case models.SlotA:
		query = `UPDATE matches SET fighter_a_id = ?, fighter_a_name = ? WHERE id = ?`
	case models.SlotB:
		query = `UPDATE matches SET fighter_b_id = ?, fighter_b_name = ? WHERE id = ?`
	default:
		return fmt.Errorf("AssignFighter: unknown slot %d", slot)
	}

	result, err := executor.ExecContext(ctx, executor.Rebind(query), fighterID, fighterName, matchID)
	if err != nil {
		return fmt.Errorf("AssignFighter: failed to execute query for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *matchRepository) MarkLive(ctx context.Context, exec SQLExecutor, matchID int, startedAt time.Time) error {
	defer metrics.RecordDBOperation("update", "matches", time.Now())
	executor := r.getExecutor(exec)
	query := executor.Rebind(`UPDATE matches SET status = ?, started_at = ? WHERE id = ?`)

	result, err := executor.ExecContext(ctx, query, models.MatchLive, startedAt, matchID)
	if err != nil {
		return fmt.Errorf("MarkLive: failed to execute query for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *matchRepository) UpdateScore(ctx context.Context, exec SQLExecutor, matchID int, fighterAScore, fighterBScore *int, notes *string) error {
	defer metrics.RecordDBOperation("update", "matches", time.Now())
	executor := r.getExecutor(exec)
	query := executor.Rebind(`
		UPDATE matches
		SET fighter_a_score = COALESCE(?, fighter_a_score),
		    fighter_b_score = COALESCE(?, fighter_b_score),
		    notes = COALESCE(?, notes)
		WHERE id = ?`)

	result, err := executor.ExecContext(ctx, query, fighterAScore, fighterBScore, notes, matchID)
	if err != nil {
		return fmt.Errorf("UpdateScore: failed to execute query for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *matchRepository) Complete(ctx context.Context, exec SQLExecutor, matchID, winnerID int, notes *string, completedAt time.Time) error {
	defer metrics.RecordDBOperation("update", "matches", time.Now())
	executor := r.getExecutor(exec)
	query := executor.Rebind(`
		UPDATE matches
		SET status = ?, winner_id = ?, completed_at = ?, notes = COALESCE(?, notes)
		WHERE id = ?`)

	result, err := executor.ExecContext(ctx, query, models.MatchCompleted, winnerID, completedAt, notes, matchID)
	if err != nil {
		return fmt.Errorf("Complete: failed to execute query for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *matchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isUniqueViolation(err):
		return ErrMatchNumberConflict
	case isForeignKeyViolation(err):
		return ErrMatchBracketInvalid
	}
	return fmt.Errorf("match query failed: %w", err)
}
