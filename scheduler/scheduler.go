package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is a one-shot background task. The context is cancelled on Stop.
type TaskFn func(ctx context.Context) error

// TickFn is the function signature for periodic tasks.
type TickFn func()

// Scheduler runs background work for the plugin host: one-shot tasks
// started by commands, and periodic tickers. Every task's outcome is
// logged; nothing is fire-and-forget.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	running map[string]int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

type tickerEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		running: make(map[string]int),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Go starts fn in the background and returns immediately. Errors and
// panics are recovered and logged under name. Go is a no-op after Stop.
func (s *Scheduler) Go(name string, fn TaskFn) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		s.logger.Warn("scheduler stopped, task not started", zap.String("task", name))
		return
	}
	s.running[name]++
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.finish(name)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduler task panicked",
					zap.String("task", name),
					zap.Any("recover", r))
			}
		}()
		start := time.Now()
		if err := fn(s.ctx); err != nil {
			s.logger.Warn("scheduler task failed",
				zap.String("task", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return
		}
		s.logger.Debug("scheduler task done",
			zap.String("task", name),
			zap.Duration("elapsed", time.Since(start)))
	}()
}

func (s *Scheduler) finish(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] <= 1 {
		delete(s.running, name)
		return
	}
	s.running[name]--
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TickFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	if old, ok := s.tickers[name]; ok {
		close(old.stopCh)
		delete(s.tickers, name)
	}

	entry := &tickerEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	s.tickers[name] = entry

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer entry.ticker.Stop()
		for {
			select {
			case <-entry.ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							s.logger.Error("scheduler ticker panicked",
								zap.String("task", name),
								zap.Any("recover", r))
						}
					}()
					fn()
				}()
			case <-entry.stopCh:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler ticker registered", zap.String("name", name), zap.Duration("interval", interval))
}

// Remove stops and removes a ticker by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
}

// Stop cancels every task's context and waits for all of them to return.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

// ListTickers returns the sorted names of all registered tickers.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Running returns the sorted names of one-shot tasks still in flight.
func (s *Scheduler) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.running))
	for name := range s.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
