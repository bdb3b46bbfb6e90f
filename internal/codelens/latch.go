package codelens

import "sync"

// Latch counts down a fixed number of completions and fires its callback
// exactly once when the count reaches zero. Extra Done calls are ignored.
type Latch struct {
	mu      sync.Mutex
	pending int
	fire    func()
	once    sync.Once
}

// NewLatch returns a latch waiting for n completions. With n <= 0 the
// callback runs before NewLatch returns.
func NewLatch(n int, onZero func()) *Latch {
	l := &Latch{pending: n, fire: onZero}
	if n <= 0 {
		l.release()
	}
	return l
}

// Done records one completion.
func (l *Latch) Done() {
	l.mu.Lock()
	if l.pending <= 0 {
		l.mu.Unlock()
		return
	}
	l.pending--
	zero := l.pending == 0
	l.mu.Unlock()
	if zero {
		l.release()
	}
}

// Pending returns the completions still outstanding.
func (l *Latch) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

func (l *Latch) release() {
	l.once.Do(func() {
		if l.fire != nil {
			l.fire()
		}
	})
}
