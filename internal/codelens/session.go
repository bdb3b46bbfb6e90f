package codelens

import (
	"encoding/json"

	"github.com/google/uuid"

	"lensctl/internal/trace"
)

// Session owns all code lens state of one editing session: the lens store,
// the in-flight flags and the rendering channels. Every method must be
// called from the session's event loop.
type Session struct {
	id          string
	editor      Editor
	transport   Transport
	tracer      trace.Tracer
	sinks       sinks
	namespaces  *Namespaces
	store       *Store
	renderer    *Renderer
	resolver    *Resolver
	coordinator *Coordinator
	executor    *Executor
	span        *trace.Span
	closed      bool
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	style    RenderStyle
	tracer   trace.Tracer
	sinks    sinks
	onResult CommandResultHandler
}

// WithRenderStyle overrides placeholder, separator, highlights and width.
func WithRenderStyle(style RenderStyle) Option {
	return func(c *sessionConfig) { c.style = style }
}

// WithTracer sets the tracer used by every component.
func WithTracer(t trace.Tracer) Option {
	return func(c *sessionConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithProgress adds a progress sink.
func WithProgress(sink ProgressSink) Option {
	return func(c *sessionConfig) {
		if sink != nil {
			c.sinks = append(c.sinks, sink)
		}
	}
}

// WithCommandResultHandler sets the handler that receives executeCommand results.
func WithCommandResultHandler(h CommandResultHandler) Option {
	return func(c *sessionConfig) { c.onResult = h }
}

// NewSession wires a session against editor and transport.
func NewSession(editor Editor, transport Transport, opts ...Option) *Session {
	cfg := sessionConfig{
		style:  DefaultRenderStyle(),
		tracer: trace.Nop,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		id:        uuid.NewString(),
		editor:    editor,
		transport: transport,
		tracer:    cfg.tracer,
		sinks:     cfg.sinks,
	}
	s.span = trace.Begin(s.tracer, trace.ScopeSession, "session", 0).WithExtra("id", s.id)
	s.namespaces = newNamespaces(editor)
	s.store = newStore(editor, s.namespaces, s.tracer)
	s.renderer = newRenderer(editor, s.namespaces, cfg.style)
	s.resolver = newResolver(s.store, s.renderer, transport, s.tracer, s.emit)
	s.coordinator = newCoordinator(editor, transport, s.store, s.renderer, s.resolver, s.tracer, s.emit)
	s.executor = &Executor{
		editor:      editor,
		transport:   transport,
		store:       s.store,
		renderer:    s.renderer,
		coordinator: s.coordinator,
		tracer:      s.tracer,
		emit:        s.emit,
		onResult:    cfg.onResult,
	}
	s.store.onDetach = s.coordinator.drop
	return s
}

// ID returns the session identifier used in traces.
func (s *Session) ID() string { return s.id }

// Get returns a snapshot of doc's lenses (NoDocument means current).
func (s *Session) Get(doc DocumentID) []Lens {
	return s.store.Get(resolveDocument(doc, s.editor))
}

// Refresh starts a refresh cycle for doc unless one is in flight.
func (s *Session) Refresh(doc DocumentID) bool {
	if s.closed {
		return false
	}
	return s.coordinator.Refresh(doc)
}

// InFlight reports whether doc has an outstanding refresh cycle.
func (s *Session) InFlight(doc DocumentID) bool {
	return s.coordinator.InFlight(doc)
}

// Run executes the lens at line of doc; see Executor.Run.
func (s *Session) Run(doc DocumentID, line int) error {
	if s.closed {
		return nil
	}
	return s.executor.Run(doc, line)
}

// HandleLenses is the response handler for textDocument/codeLens replies
// that arrive outside a refresh cycle; see Coordinator.HandleLenses.
func (s *Session) HandleLenses(err error, result json.RawMessage, backend BackendID, doc DocumentID) {
	s.coordinator.HandleLenses(err, result, backend, doc)
}

// Candidates returns the lenses on the one-based line of doc.
func (s *Session) Candidates(doc DocumentID, line int) []Candidate {
	return s.executor.Candidates(resolveDocument(doc, s.editor), line)
}

// Store exposes the lens store.
func (s *Session) Store() *Store { return s.store }

// Renderer exposes the renderer.
func (s *Session) Renderer() *Renderer { return s.renderer }

// Resolver exposes the resolver.
func (s *Session) Resolver() *Resolver { return s.resolver }

// Namespaces exposes the rendering channel registry.
func (s *Session) Namespaces() *Namespaces { return s.namespaces }

// Close clears every rendered lens and drops all session state.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, doc := range s.store.Documents() {
		for _, backend := range s.store.Backends(doc) {
			if ns, ok := s.namespaces.Lookup(backend); ok {
				s.editor.ClearNamespace(doc, ns, 0, -1)
			}
		}
		s.store.Forget(doc)
		s.coordinator.drop(doc)
	}
	s.span.End("closed")
}

func (s *Session) emit(evt Event) {
	s.sinks.emit(evt)
}
