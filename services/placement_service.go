package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/storage"
	"github.com/jmoiron/sqlx"
)

const (
	triggerManual  = "manual"
	triggerSweeper = "sweeper"

	archiveTimeout = 15 * time.Second
)

type PlacementService interface {
	// ComputePlacements records gold, silver and bronze of a fully played
	// bracket and marks it COMPLETED.
	ComputePlacements(ctx context.Context, bracketID int) ([]*models.TournamentResult, error)
	ListResultsByBracket(ctx context.Context, bracketID int) ([]*models.TournamentResult, error)
	ListResultsByEvent(ctx context.Context, eventID int) ([]*models.TournamentResult, error)
	// SweepCompletedBrackets resolves every unresolved bracket whose matches are
	// all completed and returns how many were resolved.
	SweepCompletedBrackets(ctx context.Context) (int, error)
}

type placementService struct {
	db          *sqlx.DB
	eventRepo   repositories.EventRepository
	bracketRepo repositories.BracketRepository
	matchRepo   repositories.MatchRepository
	resultRepo  repositories.TournamentResultRepository
	publisher   Publisher
	archiver    storage.FileUploader
	logger      *slog.Logger
	now         func() time.Time
}

// NewPlacementService creates the service; archiver may be nil to disable the results archive.
func NewPlacementService(
	db *sqlx.DB,
	eventRepo repositories.EventRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	resultRepo repositories.TournamentResultRepository,
	publisher Publisher,
	archiver storage.FileUploader,
	logger *slog.Logger,
) PlacementService {
	return &placementService{
		db:          db,
		eventRepo:   eventRepo,
		bracketRepo: bracketRepo,
		matchRepo:   matchRepo,
		resultRepo:  resultRepo,
		publisher:   publisher,
		archiver:    archiver,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *placementService) ComputePlacements(ctx context.Context, bracketID int) ([]*models.TournamentResult, error) {
	return s.computePlacements(ctx, bracketID, triggerManual)
}

func (s *placementService) computePlacements(ctx context.Context, bracketID int, trigger string) ([]*models.TournamentResult, error) {
	var (
		bracket *models.Bracket
		results []*models.TournamentResult
	)

	err := runInTx(ctx, s.db, "compute placements", func(tx repositories.SQLExecutor) error {
		b, err := s.bracketRepo.GetByID(ctx, tx, bracketID)
		if err != nil {
			return translateRepositoryError("get bracket", err)
		}
		if b.Status == models.BracketCompleted {
			return fmt.Errorf("%w: bracket %d", ErrBracketAlreadyCompleted, b.ID)
		}

		matches, err := s.matchRepo.ListByBracket(ctx, tx, b.ID)
		if err != nil {
			return translateRepositoryError("list bracket matches", err)
		}
		placements, err := brackets.ResolvePlacements(matches)
		if err != nil {
			return fmt.Errorf("bracket %d: %w", b.ID, err)
		}

		now := s.now()
		results = make([]*models.TournamentResult, 0, len(placements))
		for _, p := range placements {
			results = append(results, &models.TournamentResult{
				EventID:      b.EventID,
				BracketID:    b.ID,
				UserID:       p.UserID,
				FinalRank:    p.Rank,
				Medal:        p.Medal,
				CategoryName: b.CategoryName,
				CreatedAt:    now,
			})
		}
		if err := s.resultRepo.CreateBatch(ctx, tx, results); err != nil {
			return translateRepositoryError("store results", err)
		}
		if err := s.bracketRepo.UpdateStatus(ctx, tx, b.ID, models.BracketCompleted); err != nil {
			return translateRepositoryError("complete bracket", err)
		}

		b.Status = models.BracketCompleted
		bracket = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PlacementsComputed.WithLabelValues(trigger).Inc()
	payload := BracketCompletedPayload{BracketID: bracket.ID, EventID: bracket.EventID, Results: results}
	s.publisher.Publish(brackets.TopicLive, EventBracketCompleted, payload)
	s.publisher.Publish(brackets.BracketTopic(bracket.ID), EventBracketCompleted, payload)
	s.publisher.Publish(brackets.EventTopic(bracket.EventID), EventBracketCompleted, payload)

	s.logger.Info("bracket placements computed",
		slog.Int("bracket_id", bracket.ID),
		slog.Int("event_id", bracket.EventID),
		slog.Int("results", len(results)),
		slog.String("trigger", trigger),
	)

	s.archiveResults(ctx, bracket, results)
	return results, nil
}

type resultsArchive struct {
	EventID      int                        `json:"event_id"`
	BracketID    int                        `json:"bracket_id"`
	CategoryName string                     `json:"category_name"`
	ArchivedAt   time.Time                  `json:"archived_at"`
	Results      []*models.TournamentResult `json:"results"`
}

// archiveResults uploads the final standings as JSON. Failures are only logged:
// the results are already committed.
func (s *placementService) archiveResults(ctx context.Context, bracket *models.Bracket, results []*models.TournamentResult) {
	if s.archiver == nil {
		return
	}

	body, err := json.Marshal(resultsArchive{
		EventID:      bracket.EventID,
		BracketID:    bracket.ID,
		CategoryName: bracket.CategoryName,
		ArchivedAt:   s.now(),
		Results:      results,
	})
	if err != nil {
		metrics.ArchiveUploads.WithLabelValues("failed").Inc()
		s.logger.Error("failed to encode results archive", slog.Int("bracket_id", bracket.ID), slog.Any("error", err))
		return
	}

	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key := storage.ResultsArchiveKey(bracket.EventID, bracket.ID)
	res, err := s.archiver.Upload(uploadCtx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		metrics.ArchiveUploads.WithLabelValues("failed").Inc()
		s.logger.Error("failed to archive bracket results", slog.Int("bracket_id", bracket.ID), slog.String("key", key), slog.Any("error", err))
		return
	}
	metrics.ArchiveUploads.WithLabelValues("ok").Inc()
	s.logger.Info("bracket results archived", slog.Int("bracket_id", bracket.ID), slog.String("location", res.Location))
}

func (s *placementService) ListResultsByBracket(ctx context.Context, bracketID int) ([]*models.TournamentResult, error) {
	if _, err := s.bracketRepo.GetByID(ctx, nil, bracketID); err != nil {
		return nil, translateRepositoryError("get bracket", err)
	}
	results, err := s.resultRepo.ListByBracket(ctx, nil, bracketID)
	if err != nil {
		return nil, translateRepositoryError("list bracket results", err)
	}
	return results, nil
}

func (s *placementService) ListResultsByEvent(ctx context.Context, eventID int) ([]*models.TournamentResult, error) {
	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, persistenceError("check event", err)
	}
	if !exists {
		return nil, ErrEventNotFound
	}
	results, err := s.resultRepo.ListByEvent(ctx, nil, eventID)
	if err != nil {
		return nil, translateRepositoryError("list event results", err)
	}
	return results, nil
}

func (s *placementService) SweepCompletedBrackets(ctx context.Context) (int, error) {
	unresolved, err := s.bracketRepo.ListUnresolved(ctx, nil)
	if err != nil {
		return 0, persistenceError("list unresolved brackets", err)
	}

	resolved := 0
	for _, b := range unresolved {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		incomplete, err := s.matchRepo.CountIncomplete(ctx, nil, b.ID)
		if err != nil {
			return resolved, persistenceError("count incomplete matches", err)
		}
		if incomplete > 0 {
			continue
		}

		if _, err := s.computePlacements(ctx, b.ID, triggerSweeper); err != nil {
			// Гонка с ручным вызовом: скобку уже закрыли
			if errors.Is(err, ErrBracketAlreadyCompleted) {
				continue
			}
			s.logger.Error("sweeper failed to compute placements", slog.Int("bracket_id", b.ID), slog.Any("error", err))
			continue
		}
		resolved++
	}
	return resolved, nil
}
