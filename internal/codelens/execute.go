package codelens

import (
	"encoding/json"
	"fmt"

	"lensctl/internal/trace"
)

// CommandResultHandler post-processes the result of workspace/executeCommand.
type CommandResultHandler func(err error, result json.RawMessage, backend BackendID, doc DocumentID)

// Executor runs the command of the lens under the cursor.
type Executor struct {
	editor      Editor
	transport   Transport
	store       *Store
	renderer    *Renderer
	coordinator *Coordinator
	tracer      trace.Tracer
	emit        func(Event)
	onResult    CommandResultHandler
}

// Run executes the lens on line (one-based) of doc. NoDocument and a
// non-positive line stand for the current document and cursor line.
// A missing lens is reported to the user; a cancelled choice does nothing.
// ErrBackendGone is returned when the owning backend disappeared.
func (e *Executor) Run(doc DocumentID, line int) error {
	doc = resolveDocument(doc, e.editor)
	if doc == NoDocument {
		return ErrNoDocument
	}
	if line <= 0 {
		line = e.editor.CursorLine()
	}

	candidates := e.Candidates(doc, line)
	switch len(candidates) {
	case 0:
		e.editor.Notify(LevelInfo, "no code lens found at this location")
		return nil
	case 1:
		return e.execute(doc, candidates[0])
	}

	titles := make([]string, len(candidates))
	for i, c := range candidates {
		titles[i] = e.renderer.Text(c.Lens)
	}
	choice := e.editor.Select("Code lenses:", titles)
	if choice < 1 || choice > len(candidates) {
		return nil
	}
	return e.execute(doc, candidates[choice-1])
}

// Candidates returns the stored lenses whose start line is the one-based line.
func (e *Executor) Candidates(doc DocumentID, line int) []Candidate {
	var out []Candidate
	for _, c := range e.store.Candidates(doc) {
		if c.Lens.Line() == line-1 {
			out = append(out, c)
		}
	}
	return out
}

func (e *Executor) execute(doc DocumentID, c Candidate) error {
	backend, ok := e.transport.Backend(c.Backend)
	if !ok {
		err := fmt.Errorf("%w: %s (lens on line %d of %s)", ErrBackendGone, c.Backend, c.Lens.Line()+1, doc)
		trace.Error(e.tracer, trace.ScopeBackend, "execute", err)
		return err
	}
	if c.Lens.Command == nil {
		e.editor.Notify(LevelWarn, "code lens is not resolved yet")
		return nil
	}

	e.renderer.Clear(doc, c.Backend, c.Lens.Line())
	trace.Point(e.tracer, trace.ScopeBackend, "execute", c.Lens.Command.Command)
	e.emit(Event{Document: doc, Backend: c.Backend, Stage: StageExecute, Status: StatusWorking})

	cmd := *c.Lens.Command
	backend.Request(MethodExecuteCommand, executeCommandParams{
		Command:   cmd.Command,
		Arguments: cmd.Arguments,
	}, func(err error, result json.RawMessage) {
		status := StatusDone
		if err != nil {
			status = StatusError
			trace.Error(e.tracer, trace.ScopeBackend, "execute", err)
		}
		e.emit(Event{Document: doc, Backend: c.Backend, Stage: StageExecute, Status: status, Err: err})
		e.coordinator.Refresh(doc)
		if e.onResult != nil {
			e.onResult(err, result, c.Backend, doc)
		}
	})
	return nil
}

type executeCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}
