package asyncrt

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"fortio.org/safecast"
)

// ErrStopped is returned by Run and Do once the loop has been stopped.
var ErrStopped = errors.New("event loop stopped")

// Loop runs callbacks one at a time on the goroutine that calls Run.
// Other goroutines hand work to it with Post. The scheduler is FIFO by
// default; fuzz scheduling picks a random ready callback for reproducible
// interleavings.
type Loop struct {
	cfg     Config
	mu      sync.Mutex
	ready   []func()
	wake    chan struct{}
	stopped bool
	rng     *rand.Rand
	ran     uint64
}

// Config configures loop scheduling behavior.
type Config struct {
	Fuzz bool
	Seed uint64
}

// NewLoop constructs a loop with the provided configuration.
func NewLoop(cfg Config) *Loop {
	l := &Loop{
		cfg:  cfg,
		wake: make(chan struct{}, 1),
	}
	if cfg.Fuzz {
		seed := cfg.Seed
		if seed == 0 {
			seed = 1
		}
		signed, err := safecast.Conv[int64](seed)
		if err != nil {
			signed = int64(seed >> 1)
		}
		l.rng = rand.New(rand.NewSource(signed)) //nolint:gosec // deterministic scheduler seed
	}
	return l
}

// Post enqueues fn. It is safe to call from any goroutine and reports
// false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	if l == nil || fn == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.ready = append(l.ready, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// After posts fn once d has elapsed. The returned timer may be stopped
// before it fires.
func (l *Loop) After(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Run executes posted callbacks until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		fn, ok, stopped := l.next()
		if stopped {
			return ErrStopped
		}
		if ok {
			fn()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunUntilIdle executes callbacks on the calling goroutine until none are
// ready, including the ones posted while draining. It returns how many ran.
func (l *Loop) RunUntilIdle() int {
	n := 0
	for {
		fn, ok, _ := l.next()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Do posts fn and waits until it has run on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop makes Run return and drops callbacks that never ran.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.ready = nil
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Ran returns the number of callbacks executed so far.
func (l *Loop) Ran() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ran
}

func (l *Loop) next() (fn func(), ok, stopped bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil, false, true
	}
	if len(l.ready) == 0 {
		return nil, false, false
	}
	idx := 0
	if l.cfg.Fuzz && len(l.ready) > 1 {
		idx = l.rng.Intn(len(l.ready))
	}
	fn = l.ready[idx]
	copy(l.ready[idx:], l.ready[idx+1:])
	l.ready[len(l.ready)-1] = nil
	l.ready = l.ready[:len(l.ready)-1]
	l.ran++
	return fn, true, false
}
