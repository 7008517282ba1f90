// Package watch provides a single-producer, multi-consumer channel that only
// retains the latest value. Receivers observe changes, not history.
package watch

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrClosed is returned once the sender has been closed.
var ErrClosed = errors.New("watch: sender closed")

type shared[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	closed  bool
	notify  chan struct{} // closed and replaced on every send
}

// Sender publishes values to all receivers.
type Sender[T any] struct {
	shared *shared[T]
}

// Receiver observes the latest published value.
// A Receiver must not be shared between goroutines; use Clone instead.
type Receiver[T any] struct {
	shared *shared[T]
	seen   uint64
}

// New creates a watch channel holding initial.
// The initial value counts as seen by the returned receiver.
func New[T any](initial T) (*Sender[T], *Receiver[T]) {
	s := &shared[T]{
		value:  initial,
		notify: make(chan struct{}),
	}
	return &Sender[T]{shared: s}, &Receiver[T]{shared: s}
}

// Send replaces the current value and wakes every waiting receiver.
func (tx *Sender[T]) Send(v T) error {
	s := tx.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.value = v
	s.version++
	close(s.notify)
	s.notify = make(chan struct{})
	return nil
}

// Close marks the channel closed. Receivers get ErrClosed once they have
// seen the last value. Close is idempotent.
func (tx *Sender[T]) Close() {
	s := tx.shared
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.notify)
}

// IsClosed reports whether Close has been called.
func (tx *Sender[T]) IsClosed() bool {
	tx.shared.mu.RLock()
	defer tx.shared.mu.RUnlock()
	return tx.shared.closed
}

// Borrow returns the latest value without marking it seen.
func (rx *Receiver[T]) Borrow() T {
	rx.shared.mu.RLock()
	defer rx.shared.mu.RUnlock()
	return rx.shared.value
}

// BorrowAndUpdate returns the latest value and marks it seen.
func (rx *Receiver[T]) BorrowAndUpdate() T {
	rx.shared.mu.RLock()
	defer rx.shared.mu.RUnlock()
	rx.seen = rx.shared.version
	return rx.shared.value
}

// HasChanged reports whether a value not yet seen is available.
// It fails with ErrClosed when the sender is closed.
func (rx *Receiver[T]) HasChanged() (bool, error) {
	rx.shared.mu.RLock()
	defer rx.shared.mu.RUnlock()

	if rx.shared.closed {
		return false, ErrClosed
	}
	return rx.shared.version != rx.seen, nil
}

// Changed blocks until a value not yet seen is available, the sender is
// closed (ErrClosed) or ctx is done.
func (rx *Receiver[T]) Changed(ctx context.Context) error {
	for {
		rx.shared.mu.RLock()
		if rx.shared.version != rx.seen {
			rx.shared.mu.RUnlock()
			return nil
		}
		if rx.shared.closed {
			rx.shared.mu.RUnlock()
			return ErrClosed
		}
		notify := rx.shared.notify
		rx.shared.mu.RUnlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Clone returns an independent receiver with the same seen position.
func (rx *Receiver[T]) Clone() *Receiver[T] {
	return &Receiver[T]{shared: rx.shared, seen: rx.seen}
}

// IsClosed reports whether the sender has been closed.
func (rx *Receiver[T]) IsClosed() bool {
	rx.shared.mu.RLock()
	defer rx.shared.mu.RUnlock()
	return rx.shared.closed
}
