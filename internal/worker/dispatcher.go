// Package worker provides the background loops that release scheduled
// notifications and sweep overdue bills.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kosha-finance/internal/logging"
)

// DueDispatcher is the slice of the notification service the dispatcher
// needs: release everything due now, honoring DND deferrals.
type DueDispatcher interface {
	DispatchDue(ctx context.Context, limit int) (int, error)
}

// Dispatcher periodically releases due notifications.
type Dispatcher struct {
	notifications DueDispatcher
	pollInterval  time.Duration
	batchSize     int
	running       bool
	mu            sync.Mutex
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// DispatcherConfig holds configuration for the notification dispatcher.
type DispatcherConfig struct {
	Notifications DueDispatcher
	PollInterval  time.Duration // default: 30 seconds
	BatchSize     int           // max notifications per cycle (default: 100)
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(cfg *DispatcherConfig) (*Dispatcher, error) {
	if cfg.Notifications == nil {
		return nil, fmt.Errorf("notification service cannot be nil")
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 30 * time.Second
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Dispatcher{
		notifications: cfg.Notifications,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}, nil
}

// Start begins the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is already running")
	}
	d.running = true
	d.mu.Unlock()

	logging.GetGlobalLogger().WithField("poll_interval", d.pollInterval.String()).Info("starting notification dispatcher")

	go d.pollLoop(ctx)

	return nil
}

// Stop gracefully stops the dispatch loop.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is not running")
	}
	d.mu.Unlock()

	close(d.stopCh)

	select {
	case <-d.doneCh:
		logging.GetGlobalLogger().Info("notification dispatcher stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	return nil
}

func (d *Dispatcher) pollLoop(ctx context.Context) {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			sent, err := d.notifications.DispatchDue(ctx, d.batchSize)
			if err != nil {
				logging.GetGlobalLogger().WithError(err).Error("notification dispatch cycle failed")
				continue
			}
			if sent > 0 {
				logging.GetGlobalLogger().WithField("sent", sent).Info("dispatched due notifications")
			}
		}
	}
}
