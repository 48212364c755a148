package sweeper

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hexascan-dev/hexascan/internal/escalation"
	"github.com/hexascan-dev/hexascan/internal/store"
)

// Sweeper periodically scans for issues whose escalation deadline has passed
// and asks the engine to escalate them. It is the only background actor in
// the service; everything else is request/response.
//
// Escalation is deadline-gated and conditional on the issue's version, so a
// missed or failed tick only delays a level change, it can never double-apply
// one. Per-issue failures are logged and the sweep continues.
type Sweeper struct {
	store       store.IssueStore
	engine      *escalation.Engine
	clock       clockwork.Clock
	interval    time.Duration
	tickTimeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(st store.IssueStore, engine *escalation.Engine, clock clockwork.Clock, interval, tickTimeout time.Duration) *Sweeper {
	return &Sweeper{
		store:       st,
		engine:      engine,
		clock:       clock,
		interval:    interval,
		tickTimeout: tickTimeout,
	}
}

// Start begins sweeping on the configured interval until Stop is called.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)

	go s.run()

	log.Printf("Sweeper started with %v interval", s.interval)
}

// Stop cancels the sweep loop and waits for an in-flight tick to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()

	if s.cancel == nil {
		s.mu.Unlock()
		return
	}

	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	log.Println("Sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.Chan():
			tickCtx, cancel := context.WithTimeout(s.ctx, s.tickTimeout)

			if err := s.Sweep(tickCtx); err != nil {
				log.Printf("Sweep failed: %v", err)
			}

			cancel()
		}
	}
}

// Sweep runs a single pass: list overdue non-terminal issues and escalate
// each. Issues not reached before ctx expires are picked up next tick.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-s.engine.Window())

	issues, err := s.store.ListEscalatable(ctx, cutoff)

	if err != nil {
		return err
	}

	for _, issue := range issues {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.engine.Escalate(ctx, issue.ID, now); err != nil {
			// ErrStaleState means someone else just acted on the issue; the
			// next tick re-evaluates it either way.
			log.Printf("Failed to escalate issue %d: %v", issue.ID, err)
		}
	}

	return nil
}
