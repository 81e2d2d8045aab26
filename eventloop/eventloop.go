// Package eventloop runs callbacks one at a time on a single goroutine.
//
// Overlay state is only touched from the loop, so no component needs locks.
// Blocking work such as HTTP fetches runs on its own goroutine and posts its
// completion back:
//
//	go func() {
//	    regions, err := client.FetchRegions(ctx, src)
//	    loop.Post(func() { controller.complete(token, regions, err) })
//	}()
//
// The loop also schedules display frames for the sync loop. Tests drive a
// loop by hand with [Loop.RunPending] and [Loop.Tick] instead of [Loop.Run].
package eventloop

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60 Hz display.
const DefaultFrameInterval = 16 * time.Millisecond

// Loop is a single-goroutine task queue with frame scheduling.
type Loop struct {
	mu        sync.Mutex
	queue     []func()
	frames    map[int]func()
	nextFrame int
	closed    bool

	wake     chan struct{}
	interval time.Duration
}

// Option configures a Loop.
type Option func(*Loop)

// WithFrameInterval sets the time between frames (default: 16ms)
func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// New creates a loop. Nothing runs until Run, RunPending or Tick is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		frames:   make(map[int]func()),
		wake:     make(chan struct{}, 1),
		interval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn to run on the loop. It is safe to call from any goroutine
// and never blocks. Post reports false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// RequestFrame schedules fn for the next frame. The returned function cancels
// it; cancelling after fn has run does nothing.
func (l *Loop) RequestFrame(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextFrame
	l.nextFrame++
	l.frames[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.frames, id)
	}
}

// RunPending runs queued tasks, including tasks they post, until the queue is
// empty. It returns the number of tasks run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Tick runs the frame callbacks requested before the call, in request order.
// Callbacks requested during the tick run on the next one.
func (l *Loop) Tick() int {
	l.mu.Lock()
	ids := make([]int, 0, len(l.frames))
	for id := range l.frames {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), len(ids))
	for i, id := range ids {
		fns[i] = l.frames[id]
		delete(l.frames, id)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// PendingFrames returns the number of scheduled frame callbacks.
func (l *Loop) PendingFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// Run processes tasks and frames until ctx is cancelled. After Run returns,
// Post rejects new tasks.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.queue = nil
			l.mu.Unlock()
			return ctx.Err()
		case <-l.wake:
			l.RunPending()
		case <-ticker.C:
			l.Tick()
		}
	}
}
