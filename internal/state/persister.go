package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage"
)

// Persister drains a store's change queue and writes each changed aggregate with one
// SyncAll. Changes that queue up while a write is running are coalesced: every aggregate
// touched by the batch is written once from the newest state.
type Persister struct {
	repos   storage.Repositories
	changes <-chan Change

	mu        sync.Mutex
	persisted uint64
	failed    []failedBatch
	waiters   []waiter
	stopped   bool
}

// failedBatch covers the sequence numbers (from, to] of a batch that did not write.
type failedBatch struct {
	from, to uint64
	err      error
}

// maxFailed bounds the failure history kept for Flush calls that arrive late.
const maxFailed = 32

type waiter struct {
	seq uint64
	ch  chan error
}

// QueueSize is the change buffer between a store and its persister.
const QueueSize = 64

func NewPersister(store *Store, repos storage.Repositories) *Persister {
	return &Persister{
		repos:   repos,
		changes: store.Subscribe(QueueSize),
	}
}

// Run consumes changes until the store is closed or ctx is done.
func (p *Persister) Run(ctx context.Context) {
	defer p.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-p.changes:
			if !ok {
				return
			}
			batch, open := p.drain(c)
			p.write(ctx, batch)
			if !open {
				return
			}
		}
	}
}

type batch struct {
	seq        uint64
	aggregates map[Aggregate]bool
	state      models.State
}

// drain merges c with whatever else is already queued.
func (p *Persister) drain(c Change) (batch, bool) {
	b := batch{aggregates: make(map[Aggregate]bool)}
	merge := func(c Change) {
		b.seq = c.Seq
		b.state = c.State
		for _, a := range c.Aggregates {
			b.aggregates[a] = true
		}
	}
	merge(c)
	for {
		select {
		case next, ok := <-p.changes:
			if !ok {
				return b, false
			}
			merge(next)
		default:
			return b, true
		}
	}
}

func (p *Persister) write(ctx context.Context, b batch) {
	var firstErr error
	for _, agg := range persistOrder {
		if !b.aggregates[agg] {
			continue
		}
		if err := p.persist(ctx, agg, b.state); err != nil {
			logger.Error("Failed to persist aggregate", "aggregate", agg, "seq", b.seq, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	p.markPersisted(b.seq, firstErr)
}

func (p *Persister) persist(ctx context.Context, agg Aggregate, st models.State) error {
	switch agg {
	case AggregateHabits:
		return p.repos.Habits().SyncAll(ctx, st.Habits)
	case AggregateTemplates:
		return p.repos.Templates().SyncAll(ctx, st.Templates)
	case AggregateProfile:
		if st.Profile == nil {
			return nil
		}
		return p.repos.Profile().Save(ctx, *st.Profile)
	case AggregateVacation:
		return p.repos.Profile().SyncVacationIntervals(ctx, st.Vacation)
	case AggregateMascot:
		if st.Mascot == nil {
			return p.repos.Mascot().DeleteAll(ctx)
		}
		return p.repos.Mascot().Save(ctx, *st.Mascot)
	case AggregateBadges:
		return p.repos.Badges().SyncAll(ctx, st.BadgeProgress, st.UnlockedBadges)
	default:
		return fmt.Errorf("unknown aggregate %q", agg)
	}
}

func (p *Persister) markPersisted(seq uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failed = append(p.failed, failedBatch{from: p.persisted, to: seq, err: err})
		if len(p.failed) > maxFailed {
			p.failed = p.failed[len(p.failed)-maxFailed:]
		}
	}
	p.persisted = seq

	kept := p.waiters[:0]
	for _, w := range p.waiters {
		if w.seq <= seq {
			w.ch <- err
			continue
		}
		kept = append(kept, w)
	}
	p.waiters = kept
}

func (p *Persister) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	for _, w := range p.waiters {
		w.ch <- ErrClosed
	}
	p.waiters = nil
}

// Flush waits until every change up to seq has been written. It returns the error of
// the batch that covered seq, if that batch failed. Failures of later batches are not
// reported.
func (p *Persister) Flush(ctx context.Context, seq uint64) error {
	p.mu.Lock()
	if p.persisted >= seq {
		err := p.errorFor(seq)
		p.mu.Unlock()
		return err
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrClosed
	}
	ch := make(chan error, 1)
	p.waiters = append(p.waiters, waiter{seq: seq, ch: ch})
	p.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) errorFor(seq uint64) error {
	for _, f := range p.failed {
		if seq > f.from && seq <= f.to {
			return f.err
		}
	}
	return nil
}

// Persisted is the sequence number of the last written batch.
func (p *Persister) Persisted() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persisted
}
