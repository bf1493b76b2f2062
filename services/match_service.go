package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/jmoiron/sqlx"
)

// ScoreUpdateInput replaces the provided fields; nil fields keep their value.
type ScoreUpdateInput struct {
	FighterAScore *int    `json:"fighter_a_score"`
	FighterBScore *int    `json:"fighter_b_score"`
	Notes         *string `json:"notes"`
}

type EndMatchInput struct {
	WinnerID int     `json:"winner_id"`
	Notes    *string `json:"notes"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListLiveMatches(ctx context.Context) ([]*models.Match, error)
	StartMatch(ctx context.Context, matchID int) (*models.Match, error)
	UpdateMatchScore(ctx context.Context, matchID int, input ScoreUpdateInput) (*models.Match, error)
	EndMatch(ctx context.Context, matchID int, input EndMatchInput) (*models.Match, error)
}

type matchService struct {
	db          *sqlx.DB
	matchRepo   repositories.MatchRepository
	bracketRepo repositories.BracketRepository
	publisher   Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewMatchService(
	db *sqlx.DB,
	matchRepo repositories.MatchRepository,
	bracketRepo repositories.BracketRepository,
	publisher Publisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:          db,
		matchRepo:   matchRepo,
		bracketRepo: bracketRepo,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, translateRepositoryError("get match", err)
	}
	return match, nil
}

func (s *matchService) ListLiveMatches(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByStatus(ctx, nil, models.MatchLive)
	if err != nil {
		return nil, translateRepositoryError("list live matches", err)
	}
	return matches, nil
}

// StartMatch moves a SCHEDULED match with both fighters to LIVE. The first
// start in a bracket also moves the bracket from DRAFT to IN_PROGRESS.
func (s *matchService) StartMatch(ctx context.Context, matchID int) (*models.Match, error) {
	var started *models.Match
	err := runInTx(ctx, s.db, "start match", func(tx repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return translateRepositoryError("get match", err)
		}
		if m.Status != models.MatchScheduled {
			return fmt.Errorf("%w: match %d is %s, expected %s", ErrMatchInvalidState, m.ID, m.Status, models.MatchScheduled)
		}
		if !m.HasBothFighters() {
			return fmt.Errorf("%w: match %d", ErrMatchFightersMissing, m.ID)
		}

		now := s.now()
		if err := s.matchRepo.MarkLive(ctx, tx, m.ID, now); err != nil {
			return translateRepositoryError("mark match live", err)
		}
		if err := s.bracketRepo.PromoteToInProgress(ctx, tx, m.BracketID); err != nil {
			return translateRepositoryError("promote bracket", err)
		}

		m.Status = models.MatchLive
		m.StartedAt = &now
		started = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.MatchTransitions.WithLabelValues("start").Inc()
	publishMatchEvent(s.publisher, started, EventMatchStarted, MatchStartedPayload{
		MatchID:   started.ID,
		BracketID: started.BracketID,
		FighterA:  started.FighterAName,
		FighterB:  started.FighterBName,
		Round:     started.RoundName,
	})
	s.logger.Info("match started", slog.Int("match_id", started.ID), slog.Int("bracket_id", started.BracketID))
	return started, nil
}

// UpdateMatchScore records scores and notes of a LIVE match; corrections on a
// COMPLETED match are accepted and do not change the winner. Byes are never scored.
func (s *matchService) UpdateMatchScore(ctx context.Context, matchID int, input ScoreUpdateInput) (*models.Match, error) {
	if input.FighterAScore == nil && input.FighterBScore == nil && input.Notes == nil {
		return nil, fmt.Errorf("%w: no score fields provided", ErrValidationFailed)
	}
	if (input.FighterAScore != nil && *input.FighterAScore < 0) || (input.FighterBScore != nil && *input.FighterBScore < 0) {
		return nil, ErrInvalidScore
	}

	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, translateRepositoryError("get match", err)
	}
	if m.Status == models.MatchScheduled {
		return nil, fmt.Errorf("%w: match %d has not started", ErrMatchInvalidState, m.ID)
	}
	// У бая счёт всегда нулевой
	if m.IsBye {
		return nil, fmt.Errorf("%w: match %d is a bye", ErrMatchInvalidState, m.ID)
	}

	if err := s.matchRepo.UpdateScore(ctx, nil, m.ID, input.FighterAScore, input.FighterBScore, input.Notes); err != nil {
		return nil, translateRepositoryError("update score", err)
	}
	if input.FighterAScore != nil {
		m.FighterAScore = *input.FighterAScore
	}
	if input.FighterBScore != nil {
		m.FighterBScore = *input.FighterBScore
	}
	if input.Notes != nil {
		m.Notes = input.Notes
	}

	metrics.MatchTransitions.WithLabelValues("score").Inc()
	publishMatchEvent(s.publisher, m, EventMatchUpdate, MatchUpdatePayload{
		MatchID:       m.ID,
		FighterAScore: input.FighterAScore,
		FighterBScore: input.FighterBScore,
		Notes:         input.Notes,
	})
	return m, nil
}

// EndMatch completes a LIVE match and, in the same transaction, moves the
// winner into the first empty slot of the next match.
func (s *matchService) EndMatch(ctx context.Context, matchID int, input EndMatchInput) (*models.Match, error) {
	if input.WinnerID <= 0 {
		return nil, fmt.Errorf("%w: winner_id is required", ErrInvalidWinner)
	}

	var ended *models.Match
	err := runInTx(ctx, s.db, "end match", func(tx repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return translateRepositoryError("get match", err)
		}
		if m.Status != models.MatchLive {
			return fmt.Errorf("%w: match %d is %s, expected %s", ErrMatchInvalidState, m.ID, m.Status, models.MatchLive)
		}
		slot := m.SlotOf(input.WinnerID)
		if slot == 0 {
			return fmt.Errorf("%w: fighter %d is not in match %d", ErrInvalidWinner, input.WinnerID, m.ID)
		}

		now := s.now()
		if err := s.matchRepo.Complete(ctx, tx, m.ID, input.WinnerID, input.Notes, now); err != nil {
			return translateRepositoryError("complete match", err)
		}
		winner := input.WinnerID
		m.Status = models.MatchCompleted
		m.WinnerID = &winner
		m.CompletedAt = &now
		if input.Notes != nil {
			m.Notes = input.Notes
		}
		ended = m

		if m.NextMatchID == nil {
			return nil
		}
		return s.advanceWinner(ctx, tx, m, slot)
	})
	if err != nil {
		return nil, err
	}

	metrics.MatchTransitions.WithLabelValues("end").Inc()
	publishMatchEvent(s.publisher, ended, EventMatchEnded, MatchEndedPayload{
		MatchID:   ended.ID,
		WinnerID:  *ended.WinnerID,
		BracketID: ended.BracketID,
	})
	s.logger.Info("match ended",
		slog.Int("match_id", ended.ID),
		slog.Int("bracket_id", ended.BracketID),
		slog.Int("winner_id", *ended.WinnerID),
	)
	return ended, nil
}

func (s *matchService) advanceWinner(ctx context.Context, tx repositories.SQLExecutor, m *models.Match, winnerSlot models.Slot) error {
	next, err := s.matchRepo.GetByIDForUpdate(ctx, tx, *m.NextMatchID)
	if err != nil {
		return translateRepositoryError("get next match", err)
	}
	if next.Status == models.MatchCompleted {
		s.logger.Warn("next match already completed, winner not advanced",
			slog.Int("match_id", m.ID), slog.Int("next_match_id", next.ID))
		return nil
	}

	target := next.FirstEmptySlot()
	if target == 0 {
		s.logger.Warn("next match already has both fighters, winner not advanced",
			slog.Int("match_id", m.ID), slog.Int("next_match_id", next.ID))
		return nil
	}

	if err := s.matchRepo.AssignFighter(ctx, tx, next.ID, target, *m.WinnerID, m.NameIn(winnerSlot)); err != nil {
		return translateRepositoryError("advance winner", err)
	}
	return nil
}
