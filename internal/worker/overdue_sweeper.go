package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kosha-finance/internal/logging"
	"github.com/kosha-finance/internal/models"
)

// OverdueMarker is the slice of the bill storage layer the sweeper
// needs: flip pending bills past their due date to overdue.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) ([]*models.Bill, error)
}

// OverdueSweeper periodically marks pending bills past due as overdue.
type OverdueSweeper struct {
	bills        OverdueMarker
	pollInterval time.Duration
	running      bool
	mu           sync.Mutex
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewOverdueSweeper creates a bill overdue sweeper. The interval
// defaults to one hour; due dates are day-granular so tighter polling
// buys nothing.
func NewOverdueSweeper(bills OverdueMarker, pollInterval time.Duration) (*OverdueSweeper, error) {
	if bills == nil {
		return nil, fmt.Errorf("bill repository cannot be nil")
	}
	if pollInterval == 0 {
		pollInterval = time.Hour
	}

	return &OverdueSweeper{
		bills:        bills,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins the sweep loop.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("overdue sweeper is already running")
	}
	s.running = true
	s.mu.Unlock()

	logging.GetGlobalLogger().WithField("poll_interval", s.pollInterval.String()).Info("starting bill overdue sweeper")

	go s.pollLoop(ctx)

	return nil
}

// Stop gracefully stops the sweep loop.
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("overdue sweeper is not running")
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		logging.GetGlobalLogger().Info("bill overdue sweeper stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}

func (s *OverdueSweeper) pollLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			marked, err := s.bills.MarkOverdue(ctx, time.Now())
			if err != nil {
				logging.GetGlobalLogger().WithError(err).Error("overdue sweep failed")
				continue
			}
			if len(marked) > 0 {
				logging.GetGlobalLogger().WithField("count", len(marked)).Info("marked bills overdue")
			}
		}
	}
}
