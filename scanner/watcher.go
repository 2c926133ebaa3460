package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/michaelpento.lv/triscan/types"
	"go.uber.org/zap"
)

// Sink receives the opportunities found by a Watcher
type Sink interface {
	Publish(ctx context.Context, opp *types.Opportunity) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(ctx context.Context, opp *types.Opportunity) error

func (f SinkFunc) Publish(ctx context.Context, opp *types.Opportunity) error {
	return f(ctx, opp)
}

// Watcher rescans a fixed request on an interval and hands every
// qualifying opportunity to its sinks
type Watcher struct {
	scanner  *Scanner
	req      ScanRequest
	interval time.Duration
	sinks    []Sink
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewWatcher validates req and creates a watcher. The request is checked
// up front so a bad network or strategy fails here rather than every round.
func NewWatcher(s *Scanner, req ScanRequest, interval time.Duration, logger *zap.Logger, sinks ...Sink) (*Watcher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: watch interval must be positive", ErrInvalidRequest)
	}
	if !validAmount(req.Amount) {
		return nil, fmt.Errorf("%w: amount must be a positive number", ErrInvalidRequest)
	}
	if _, err := s.Paths(req); err != nil {
		return nil, err
	}
	return &Watcher{
		scanner:  s,
		req:      req,
		interval: interval,
		sinks:    sinks,
		logger:   logger,
	}, nil
}

// Start runs the watch loop in the background until ctx is done
func (w *Watcher) Start(ctx context.Context) {
	w.logger.Info("Starting watcher",
		zap.String("network", w.req.Network),
		zap.String("strategy", w.req.Strategy),
		zap.Duration("interval", w.interval))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Run(ctx)
	}()
}

// Stop waits for a started watcher to exit. Cancel its context first.
func (w *Watcher) Stop() {
	w.wg.Wait()
	w.logger.Info("Watcher stopped", zap.String("network", w.req.Network))
}

// Run scans immediately and then once per interval, blocking until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.round(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) round(ctx context.Context) {
	res, err := w.scanner.Scan(ctx, w.req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("Watch scan failed", zap.Error(err))
		}
		return
	}

	for _, opp := range res.Opportunities {
		for _, sink := range w.sinks {
			if err := sink.Publish(ctx, opp); err != nil {
				w.logger.Warn("Failed to publish opportunity",
					zap.String("path", opp.PathLabel),
					zap.Error(err))
			}
		}
	}
}
