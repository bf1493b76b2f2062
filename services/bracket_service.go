package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/metrics"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	// BuildBrackets partitions the event's approved registrations into
	// categories and persists one single-elimination bracket per category.
	// Categories that already have a bracket are skipped, so a build that
	// failed part way can be repeated. Only newly built brackets are returned.
	BuildBrackets(ctx context.Context, eventID int) ([]*models.Bracket, error)
	GetBracket(ctx context.Context, bracketID int) (*models.Bracket, error)
	GetEventBrackets(ctx context.Context, eventID int) ([]*models.Bracket, error)
}

type bracketService struct {
	db               *sqlx.DB
	eventRepo        repositories.EventRepository
	registrationRepo repositories.RegistrationRepository
	bracketRepo      repositories.BracketRepository
	matchRepo        repositories.MatchRepository
	generator        brackets.BracketGenerator
	concurrency      int
	logger           *slog.Logger
	now              func() time.Time
}

func NewBracketService(
	db *sqlx.DB,
	eventRepo repositories.EventRepository,
	registrationRepo repositories.RegistrationRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	concurrency int,
	logger *slog.Logger,
) BracketService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &bracketService{
		db:               db,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		bracketRepo:      bracketRepo,
		matchRepo:        matchRepo,
		generator:        brackets.NewSingleEliminationGenerator(),
		concurrency:      concurrency,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *bracketService) BuildBrackets(ctx context.Context, eventID int) ([]*models.Bracket, error) {
	start := time.Now()

	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, persistenceError("check event", err)
	}
	if !exists {
		return nil, ErrEventNotFound
	}

	existing, err := s.bracketRepo.ListByEvent(ctx, nil, eventID)
	if err != nil {
		return nil, persistenceError("list brackets", err)
	}
	done := make(map[brackets.CategoryKey]bool, len(existing))
	for _, b := range existing {
		done[bracketKey(b)] = true
	}

	registrations, err := s.registrationRepo.ListApprovedRegistrations(ctx, eventID)
	if err != nil {
		return nil, persistenceError("list registrations", err)
	}

	groups, err := brackets.GroupRegistrations(registrations)
	if err != nil {
		if errors.Is(err, brackets.ErrNoParticipants) && len(existing) > 0 {
			return nil, fmt.Errorf("%w: event %d already has %d brackets", ErrBracketsAlreadyBuilt, eventID, len(existing))
		}
		return nil, err
	}

	pending := make([]brackets.CategoryKey, 0, len(groups))
	for _, key := range brackets.SortedKeys(groups) {
		if !done[key] {
			pending = append(pending, key)
		}
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("%w: event %d already has %d brackets", ErrBracketsAlreadyBuilt, eventID, len(existing))
	}

	// Категории независимы: ошибка одной не отменяет остальные
	results := make([]*models.Bracket, len(pending))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, key := range pending {
		i, key := i, key
		g.Go(func() error {
			bracket, err := s.buildCategory(ctx, eventID, key, groups[key])
			if err != nil {
				return fmt.Errorf("category %q: %w", key.Name(), err)
			}
			results[i] = bracket
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		persisted := 0
		for _, b := range results {
			if b != nil {
				persisted++
			}
		}
		s.logger.Error("bracket build failed",
			slog.Int("event_id", eventID),
			slog.Int("persisted", persisted),
			slog.Int("pending", len(pending)),
			slog.Any("error", err),
		)
		return nil, err
	}

	metrics.BracketBuildDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("brackets built",
		slog.Int("event_id", eventID),
		slog.Int("categories", len(results)),
		slog.Int("skipped", len(existing)),
		slog.Int("participants", len(registrations)),
	)
	return results, nil
}

func bracketKey(b *models.Bracket) brackets.CategoryKey {
	return brackets.CategoryKey{Age: b.CategoryAge, Weight: b.CategoryWeight, Belt: b.CategoryBelt}
}

// buildCategory persists one category in its own transaction: the bracket
// row, every planned match, the next-match links and the bye advancements.
func (s *bracketService) buildCategory(ctx context.Context, eventID int, key brackets.CategoryKey, registrations []*models.Registration) (*models.Bracket, error) {
	seeded := brackets.Seed(registrations)
	plan, err := s.generator.GenerateBracket(brackets.GenerateBracketParams{
		CategoryName: key.Name(),
		Participants: brackets.ParticipantsFrom(seeded),
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	bracket := &models.Bracket{
		EventID:           eventID,
		CategoryAge:       key.Age,
		CategoryWeight:    key.Weight,
		CategoryBelt:      key.Belt,
		CategoryName:      plan.CategoryName,
		TotalParticipants: len(seeded),
		Status:            models.BracketDraft,
		CreatedAt:         now,
	}

	err = runInTx(ctx, s.db, "build bracket", func(tx repositories.SQLExecutor) error {
		if err := s.bracketRepo.Create(ctx, tx, bracket); err != nil {
			return translateRepositoryError("create bracket", err)
		}

		matches := make([]*models.Match, len(plan.Matches))
		for i, pm := range plan.Matches {
			m := matchFromPlan(bracket, pm, now)
			if err := s.matchRepo.Create(ctx, tx, m); err != nil {
				return translateRepositoryError("create match", err)
			}
			matches[i] = m
		}

		// Второй проход: связываем матчи, когда известны их ID
		for i, pm := range plan.Matches {
			if pm.Next < 0 {
				continue
			}
			nextID := matches[pm.Next].ID
			if err := s.matchRepo.SetNextMatch(ctx, tx, matches[i].ID, nextID); err != nil {
				return translateRepositoryError("link match", err)
			}
			matches[i].NextMatchID = &nextID
		}

		for _, adv := range plan.Advancements {
			target := matches[adv.To]
			fighterID, name := adv.Fighter.UserID, adv.Fighter.Name
			if err := s.matchRepo.AssignFighter(ctx, tx, target.ID, adv.Slot, fighterID, &name); err != nil {
				return translateRepositoryError("advance bye", err)
			}
			setFighter(target, adv.Slot, fighterID, &name)
		}

		bracket.Matches = matches
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BracketsBuilt.Inc()
	s.logger.Debug("category bracket persisted",
		slog.Int("bracket_id", bracket.ID),
		slog.String("category", bracket.CategoryName),
		slog.Int("matches", len(bracket.Matches)),
	)
	return bracket, nil
}

func matchFromPlan(bracket *models.Bracket, pm brackets.PlannedMatch, now time.Time) *models.Match {
	m := &models.Match{
		BracketID:   bracket.ID,
		EventID:     bracket.EventID,
		RoundNumber: pm.Round,
		RoundName:   pm.RoundName,
		MatchNumber: pm.MatchNumber,
		IsBye:       pm.IsBye,
		Status:      models.MatchScheduled,
		CreatedAt:   now,
	}
	if pm.FighterA != nil {
		name := pm.FighterA.Name
		setFighter(m, models.SlotA, pm.FighterA.UserID, &name)
	}
	if pm.FighterB != nil {
		name := pm.FighterB.Name
		setFighter(m, models.SlotB, pm.FighterB.UserID, &name)
	}
	// Бай завершается сразу, победитель - единственный боец
	if pm.IsBye && pm.FighterA != nil {
		winner := pm.FighterA.UserID
		completedAt := now
		m.Status = models.MatchCompleted
		m.WinnerID = &winner
		m.CompletedAt = &completedAt
	}
	return m
}

func setFighter(m *models.Match, slot models.Slot, fighterID int, name *string) {
	id := fighterID
	switch slot {
	case models.SlotA:
		m.FighterAID, m.FighterAName = &id, name
	case models.SlotB:
		m.FighterBID, m.FighterBName = &id, name
	}
}

func (s *bracketService) GetBracket(ctx context.Context, bracketID int) (*models.Bracket, error) {
	var (
		bracket *models.Bracket
		matches []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.bracketRepo.GetByID(gCtx, nil, bracketID)
		if err != nil {
			return translateRepositoryError("get bracket", err)
		}
		bracket = b
		return nil
	})
	g.Go(func() error {
		list, err := s.matchRepo.ListByBracket(gCtx, nil, bracketID)
		if err != nil {
			return translateRepositoryError("list bracket matches", err)
		}
		matches = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bracket.Matches = matches
	return bracket, nil
}

// GetEventBrackets returns every bracket of the event with its matches, ordered by category.
func (s *bracketService) GetEventBrackets(ctx context.Context, eventID int) ([]*models.Bracket, error) {
	exists, err := s.eventRepo.Exists(ctx, eventID)
	if err != nil {
		return nil, persistenceError("check event", err)
	}
	if !exists {
		return nil, ErrEventNotFound
	}

	var (
		list    []*models.Bracket
		matches []*models.Match
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.bracketRepo.ListByEvent(gCtx, nil, eventID)
		return translateRepositoryError("list event brackets", err)
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByEvent(gCtx, nil, eventID)
		return translateRepositoryError("list event matches", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byBracket := make(map[int][]*models.Match, len(list))
	for _, m := range matches {
		byBracket[m.BracketID] = append(byBracket[m.BracketID], m)
	}
	for _, b := range list {
		b.Matches = byBracket[b.ID]
		if b.Matches == nil {
			b.Matches = []*models.Match{}
		}
	}
	return list, nil
}
