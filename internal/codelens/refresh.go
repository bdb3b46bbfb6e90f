package codelens

import (
	"encoding/json"
	"fmt"
	"strconv"

	"lensctl/internal/trace"
)

// cycle is the in-flight flag of one document. It is armed once the
// request has been fanned out and settles when every backend it was sent
// to has either failed or finished resolving.
type cycle struct {
	span     *trace.Span
	expected int
	answered map[BackendID]bool
	armed    bool
	settled  bool
}

// Coordinator throttles refreshes to one outstanding cycle per document.
type Coordinator struct {
	editor    Editor
	transport Transport
	store     *Store
	renderer  *Renderer
	resolver  *Resolver
	tracer    trace.Tracer
	emit      func(Event)
	flags     map[DocumentID]*cycle
}

func newCoordinator(editor Editor, transport Transport, store *Store, renderer *Renderer, resolver *Resolver, tracer trace.Tracer, emit func(Event)) *Coordinator {
	return &Coordinator{
		editor:    editor,
		transport: transport,
		store:     store,
		renderer:  renderer,
		resolver:  resolver,
		tracer:    tracer,
		emit:      emit,
		flags:     make(map[DocumentID]*cycle),
	}
}

// Refresh requests lenses for doc (NoDocument means the current document)
// from every attached backend. It reports false when a cycle for doc is
// already in flight or there is no document.
func (c *Coordinator) Refresh(doc DocumentID) bool {
	doc = resolveDocument(doc, c.editor)
	if doc == NoDocument {
		return false
	}
	if _, busy := c.flags[doc]; busy {
		trace.Point(c.tracer, trace.ScopeRefresh, "refresh.throttled", doc.String())
		c.emit(Event{Document: doc, Stage: StageRefresh, Status: StatusThrottled})
		return false
	}

	cy := &cycle{
		span:     trace.Begin(c.tracer, trace.ScopeRefresh, "refresh", 0),
		answered: make(map[BackendID]bool),
	}
	c.flags[doc] = cy
	n := c.transport.RequestAll(doc, MethodCodeLens, func(err error, result json.RawMessage, backend BackendID, d DocumentID) {
		c.handle(cy, err, result, backend, d)
	})
	cy.span.WithExtra("doc", doc.String()).WithExtra("backends", strconv.Itoa(n))
	cy.expected = n
	cy.armed = true
	c.emit(Event{Document: doc, Stage: StageRefresh, Status: StatusWorking, Count: n})
	c.maybeSettle(cy, doc)
	return true
}

// InFlight reports whether a refresh cycle for doc is outstanding.
func (c *Coordinator) InFlight(doc DocumentID) bool {
	doc = resolveDocument(doc, c.editor)
	_, ok := c.flags[doc]
	return ok
}

// HandleLenses processes a code lens response for doc that no refresh
// cycle asked for. It stores and renders the lenses but never settles the
// cycle in flight, whose own requests are still outstanding.
func (c *Coordinator) HandleLenses(err error, result json.RawMessage, backend BackendID, doc DocumentID) {
	c.handle(nil, err, result, backend, doc)
}

func (c *Coordinator) handle(cy *cycle, err error, result json.RawMessage, backend BackendID, doc DocumentID) {
	span := trace.Begin(c.tracer, trace.ScopeBackend, "lenses", cy.spanID())
	span.WithExtra("doc", doc.String()).WithExtra("backend", backend.String())

	var lenses []Lens
	if err == nil {
		lenses, err = decodeLenses(result)
	}
	if err != nil {
		err = fmt.Errorf("%s failed for %s on %s: %w", MethodCodeLens, doc, backend, err)
		trace.Error(c.tracer, trace.ScopeBackend, "lenses", err)
		c.editor.Notify(LevelError, err.Error())
		c.emit(Event{Document: doc, Backend: backend, Stage: StageBackend, Status: StatusError, Err: err})
		span.End("error")
		c.finish(cy, backend, doc)
		return
	}

	if !c.store.Save(doc, backend, lenses) {
		span.End("document gone")
		c.finish(cy, backend, doc)
		return
	}
	stored := c.store.Lenses(doc, backend)
	if len(stored) == 0 {
		// Display ignores empty lists; drop what an earlier cycle drew.
		if ns, ok := c.renderer.ns.Lookup(backend); ok {
			c.editor.ClearNamespace(doc, ns, 0, -1)
		}
	}
	c.renderer.Display(doc, backend, stored)
	c.emit(Event{Document: doc, Backend: backend, Stage: StageBackend, Status: StatusWorking, Count: len(stored)})

	c.resolver.Resolve(doc, backend, stored, func() {
		c.renderer.Display(doc, backend, c.store.Lenses(doc, backend))
		c.emit(Event{Document: doc, Backend: backend, Stage: StageBackend, Status: StatusDone, Count: len(stored)})
		span.End(strconv.Itoa(len(stored)) + " lenses")
		c.finish(cy, backend, doc)
	})
}

// finish counts backend as answered for cy. A backend counts once.
func (c *Coordinator) finish(cy *cycle, backend BackendID, doc DocumentID) {
	if cy == nil || cy.answered[backend] {
		return
	}
	cy.answered[backend] = true
	c.maybeSettle(cy, doc)
}

func (c *Coordinator) maybeSettle(cy *cycle, doc DocumentID) {
	if !cy.armed || cy.settled || len(cy.answered) < cy.expected {
		return
	}
	cy.settled = true
	cy.span.End("")
	if c.flags[doc] != cy {
		return
	}
	delete(c.flags, doc)
	c.emit(Event{Document: doc, Stage: StageRefresh, Status: StatusDone, Count: cy.expected})
}

// drop forgets doc's flag; responses still in flight settle their orphaned
// cycle without touching a newer one.
func (c *Coordinator) drop(doc DocumentID) {
	delete(c.flags, doc)
}

func (cy *cycle) spanID() uint64 {
	if cy == nil {
		return 0
	}
	return cy.span.ID()
}

// resolveDocument maps NoDocument to the editor's current document.
func resolveDocument(doc DocumentID, editor Editor) DocumentID {
	if doc != NoDocument {
		return doc
	}
	return editor.CurrentDocument()
}
