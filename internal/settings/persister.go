package settings

import (
	"context"
	"log/slog"
	"sync"
)

type flushWaiter struct {
	seq uint64
	ch  chan struct{}
}

// persister writes settings snapshots in the background. Only the latest
// snapshot is kept; a write that fails is logged and not retried.
type persister struct {
	storage Storage
	logger  *slog.Logger

	mu      sync.Mutex
	pending []byte
	queued  uint64
	written uint64
	lastErr error
	waiters []flushWaiter

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newPersister(storage Storage, logger *slog.Logger) *persister {
	p := &persister{
		storage: storage,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) enqueue(data []byte) {
	p.mu.Lock()
	p.pending = data
	p.queued++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if p.pending == nil {
			p.mu.Unlock()
			return
		}
		data, seq := p.pending, p.queued
		p.pending = nil
		p.mu.Unlock()

		err := p.storage.Write(context.Background(), data)
		if err != nil {
			p.logger.Error("failed to persist settings", slog.Any("error", err))
		} else {
			p.logger.Debug("persisted settings", slog.Int("bytes", len(data)))
		}

		p.mu.Lock()
		p.written = seq
		p.lastErr = err
		p.notifyLocked()
		p.mu.Unlock()
	}
}

func (p *persister) notifyLocked() {
	remaining := p.waiters[:0]
	for _, w := range p.waiters {
		if w.seq <= p.written {
			close(w.ch)
			continue
		}
		remaining = append(remaining, w)
	}
	p.waiters = remaining
}

// flush waits until every snapshot queued so far has been written and
// returns the error of the most recent write.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	if p.written >= p.queued {
		err := p.lastErr
		p.mu.Unlock()
		return err
	}
	w := flushWaiter{seq: p.queued, ch: make(chan struct{})}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case <-w.ch:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.lastErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) close(ctx context.Context) error {
	err := p.flush(ctx)
	p.closeOnce.Do(func() {
		close(p.stop)
	})

	select {
	case <-p.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
