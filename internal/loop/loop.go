// Package loop provides the single goroutine on which all engine state is
// mutated. Background work hands its results back with Post.
package loop

import (
	"context"
	"sync"
)

// Poster schedules fn to run on the loop goroutine.
type Poster interface {
	Post(fn func())
}

// Queue is an unbounded FIFO of callbacks drained by Run. Post never blocks,
// so it is safe to call from the loop itself.
type Queue struct {
	mu       sync.Mutex
	pending  []func()
	wake     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	dispatch func(fn func())
}

// New returns a queue that invokes callbacks directly on the Run goroutine.
func New() *Queue {
	return NewWithDispatch(nil)
}

// NewWithDispatch returns a queue that hands each callback to dispatch
// instead of calling it, in FIFO order. The TUI uses this to forward
// callbacks into its own update goroutine.
func NewWithDispatch(dispatch func(fn func())) *Queue {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Queue{
		wake:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
		dispatch: dispatch,
	}
}

// Post implements Poster.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run drains callbacks until Stop is called or ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := q.next()
			if !ok {
				break
			}
			q.dispatch(fn)
			select {
			case <-q.stopped:
				return nil
			default:
			}
		}

		select {
		case <-q.wake:
		case <-q.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop makes Run return after the callback currently executing.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stopped) })
}

func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	fn := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return fn, true
}
