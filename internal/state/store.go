// Package state holds the in-memory domain and applies mutations one at a time.
//
// A Store owns the state and a single writer goroutine. Dispatch hands it an Action and
// waits for the result. Every applied change is published to subscribers; the Persister
// is the subscriber that writes changed aggregates to storage.
package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage"
)

var (
	ErrSuspended = errors.New("state store is suspended")
	ErrClosed    = errors.New("state store is closed")
)

// Aggregate names a unit that is persisted with one SyncAll.
type Aggregate string

const (
	AggregateHabits    Aggregate = "habits"
	AggregateTemplates Aggregate = "templates"
	AggregateProfile   Aggregate = "profile"
	AggregateVacation  Aggregate = "vacation"
	AggregateMascot    Aggregate = "mascot"
	AggregateBadges    Aggregate = "badges"
)

// persistOrder is the order aggregates are written in when a batch touches several.
var persistOrder = []Aggregate{
	AggregateHabits,
	AggregateTemplates,
	AggregateProfile,
	AggregateVacation,
	AggregateMascot,
	AggregateBadges,
}

// Action computes the next state from the current one and names the aggregates it changed.
// It must not modify cur.
type Action func(cur models.State) (next models.State, changed []Aggregate, err error)

// Change is published after each applied action. State is the full state after it.
type Change struct {
	Seq        uint64
	Aggregates []Aggregate
	State      models.State
}

type request struct {
	action Action
	// internal requests bypass suspension and are not published.
	internal bool
	reply    chan error
}

type Store struct {
	reqs chan request
	done chan struct{}
	once sync.Once

	mu    sync.RWMutex
	state models.State
	seq   uint64

	subMu sync.Mutex
	subs  []chan Change

	status    atomic.Int32
	suspended atomic.Bool
}

// New starts a store holding initial. Call Close to stop its writer goroutine.
func New(initial models.State) *Store {
	s := &Store{
		reqs:  make(chan request),
		done:  make(chan struct{}),
		state: initial,
	}
	go s.run()
	return s
}

func (s *Store) run() {
	for {
		select {
		case <-s.done:
			s.closeSubscribers()
			return
		case req := <-s.reqs:
			req.reply <- s.apply(req)
		}
	}
}

func (s *Store) apply(req request) error {
	if !req.internal && s.suspended.Load() {
		return ErrSuspended
	}

	s.mu.RLock()
	cur := s.state
	s.mu.RUnlock()

	next, changed, err := req.action(cur)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = next
	if !req.internal && len(changed) > 0 {
		s.seq++
	}
	seq := s.seq
	s.mu.Unlock()

	if req.internal || len(changed) == 0 {
		return nil
	}
	s.publish(Change{Seq: seq, Aggregates: changed, State: next})
	return nil
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	subs := append([]chan Change(nil), s.subs...)
	s.subMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- c:
		case <-s.done:
			return
		}
	}
}

func (s *Store) submit(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)
	select {
	case s.reqs <- req:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch applies action and returns once it has been applied or rejected.
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	return s.submit(ctx, request{action: action})
}

// Subscribe returns a channel receiving every published change. Publishing blocks on a
// full channel, so subscribers must keep reading until the store is closed.
func (s *Store) Subscribe(buffer int) <-chan Change {
	ch := make(chan Change, buffer)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// State returns the current state. Callers must not modify it.
func (s *Store) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Seq is the sequence number of the last published change.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Suspend makes Dispatch fail with ErrSuspended until Resume. The flag is set by the
// writer goroutine, so when Suspend returns no action is still being applied and Seq
// covers every change that will be published before Resume.
func (s *Store) Suspend(ctx context.Context) error {
	return s.submit(ctx, request{
		internal: true,
		action: func(cur models.State) (models.State, []Aggregate, error) {
			s.suspended.Store(true)
			return cur, nil, nil
		},
	})
}

func (s *Store) Resume() { s.suspended.Store(false) }

func (s *Store) Suspended() bool { return s.suspended.Load() }

func (s *Store) Close() {
	s.once.Do(func() { close(s.done) })
}

// Hydrate loads every aggregate from repos into the store. On failure the store is
// seeded with an empty state and the status becomes Failed; the error is returned for
// reporting only and the store stays usable.
func (s *Store) Hydrate(ctx context.Context, repos storage.Repositories) error {
	s.setStatus(StatusHydrating)

	loaded, loadErr := Load(ctx, repos)
	if loadErr != nil {
		logger.Error("Hydration failed, starting with an empty dataset", "error", loadErr)
		loaded = models.EmptyState()
	}

	err := s.submit(ctx, request{
		internal: true,
		action: func(models.State) (models.State, []Aggregate, error) {
			return loaded, nil, nil
		},
	})
	if err != nil {
		s.setStatus(StatusFailed)
		return err
	}

	if loadErr != nil {
		s.setStatus(StatusFailed)
		return loadErr
	}
	s.setStatus(StatusHydrated)
	logger.Debug("Hydrated state", "habits", len(loaded.Habits), "templates", len(loaded.Templates))
	return nil
}
