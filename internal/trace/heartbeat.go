package trace

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Heartbeat emits a session-scope event at a fixed interval. Each beat
// carries the latest status set with Note, so a trace that keeps beating
// on "refreshing doc:1" shows a cycle stuck waiting on a backend.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	status   atomic.Value // string
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// StartHeartbeat starts beating on tracer. It returns nil when tracing is
// off or interval is not positive; a nil Heartbeat is safe to use.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	h.status.Store("idle")
	go h.run()
	return h
}

// Note sets the status reported by the following beats.
func (h *Heartbeat) Note(status string) {
	if h != nil {
		h.status.Store(status)
	}
}

func (h *Heartbeat) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for beat := 1; ; beat++ {
		select {
		case <-ticker.C:
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopeSession,
				GID:    getGoroutineID(),
				Name:   "heartbeat",
				Detail: h.status.Load().(string),
				Extra:  map[string]string{"beat": strconv.Itoa(beat)},
			})
		case <-h.stop:
			return
		}
	}
}

// Stop ends the beats and waits for the goroutine to exit.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		<-h.done
	})
}
