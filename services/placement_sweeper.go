package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PlacementSweeper periodically resolves brackets whose last match was ended
// without anyone requesting placements.
type PlacementSweeper struct {
	cron       *cron.Cron
	placements PlacementService
	timeout    time.Duration
	logger     *slog.Logger
}

func NewPlacementSweeper(spec string, placements PlacementService, logger *slog.Logger) (*PlacementSweeper, error) {
	s := &PlacementSweeper{
		cron:       cron.New(),
		placements: placements,
		timeout:    time.Minute,
		logger:     logger,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid placement sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *PlacementSweeper) Start() {
	s.cron.Start()
	s.logger.Info("placement sweeper started")
}

// Stop prevents new runs and waits for a running sweep to finish or ctx to expire.
func (s *PlacementSweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("placement sweeper stopped")
	case <-ctx.Done():
		s.logger.Warn("placement sweeper stop timed out")
	}
}

func (s *PlacementSweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	resolved, err := s.placements.SweepCompletedBrackets(ctx)
	if err != nil {
		s.logger.Error("placement sweep failed", slog.Any("error", err))
		return
	}
	if resolved > 0 {
		s.logger.Info("placement sweep resolved brackets", slog.Int("resolved", resolved))
	}
}
