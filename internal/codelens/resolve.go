package codelens

import (
	"encoding/json"
	"fmt"

	"lensctl/internal/trace"
)

// Resolver fills in missing commands by asking the owning backend.
type Resolver struct {
	store     *Store
	renderer  *Renderer
	transport Transport
	tracer    trace.Tracer
	emit      func(Event)
}

func newResolver(store *Store, renderer *Renderer, transport Transport, tracer trace.Tracer, emit func(Event)) *Resolver {
	return &Resolver{store: store, renderer: renderer, transport: transport, tracer: tracer, emit: emit}
}

// Resolve sends one resolve request per unresolved lens, all at once, and
// calls onComplete exactly once after every lens has been accounted for.
// lenses must be backend's list as currently stored for doc; resolved
// commands are written back through Store.Apply and overlaid on their line.
func (r *Resolver) Resolve(doc DocumentID, backend BackendID, lenses []Lens, onComplete func()) {
	if len(lenses) == 0 {
		onComplete()
		return
	}

	gen := r.store.Generation(doc, backend)
	latch := NewLatch(len(lenses), onComplete)
	handle, found := r.transport.Backend(backend)

	for i, l := range lenses {
		if l.Resolved() {
			latch.Done()
			continue
		}
		if !found {
			trace.Error(r.tracer, trace.ScopeLens, "resolve", fmt.Errorf("%w: %s", ErrBackendGone, backend))
			latch.Done()
			continue
		}
		handle.Request(MethodResolve, l, func(err error, result json.RawMessage) {
			defer latch.Done()
			r.apply(doc, backend, gen, i, err, result)
		})
	}
}

func (r *Resolver) apply(doc DocumentID, backend BackendID, gen uint64, index int, err error, result json.RawMessage) {
	if err != nil {
		err = fmt.Errorf("%s %s lens %d: %w", doc, backend, index, err)
		trace.Error(r.tracer, trace.ScopeLens, "resolve", err)
		r.emit(Event{Document: doc, Backend: backend, Stage: StageResolve, Status: StatusError, Err: err})
		return
	}
	resolved, err := decodeLens(result)
	if err != nil {
		trace.Error(r.tracer, trace.ScopeLens, "resolve.decode", err)
		return
	}
	if resolved == nil || resolved.Command == nil {
		trace.Point(r.tracer, trace.ScopeLens, "resolve.empty", fmt.Sprintf("%s %s lens %d", doc, backend, index))
		return
	}
	updated, ok := r.store.Apply(Patch{
		Document:   doc,
		Backend:    backend,
		Generation: gen,
		Index:      index,
		Command:    *resolved.Command,
	})
	if !ok {
		trace.Point(r.tracer, trace.ScopeLens, "resolve.stale", fmt.Sprintf("%s %s lens %d", doc, backend, index))
		return
	}
	r.renderer.Overlay(doc, backend, updated)
	r.emit(Event{Document: doc, Backend: backend, Stage: StageResolve, Status: StatusDone, Count: 1})
}
