// Package editor is an in-memory editor host: documents are line buffers,
// annotations are kept per namespace and line, and user prompts go through
// pluggable callbacks. The CLI drives code lens sessions against it.
package editor

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"lensctl/internal/codelens"
)

// Chooser picks one of items and returns its one-based index, or 0 to cancel.
type Chooser func(prompt string, items []string) int

// Notifier shows a message to the user.
type Notifier func(level codelens.Level, msg string)

// Document is one open buffer.
type Document struct {
	ID      codelens.DocumentID
	Path    string
	Version int32
	lines   []string
	marks   map[codelens.NamespaceID]map[int][][]codelens.Chunk
	obs     []codelens.Observer
}

// Editor implements codelens.Editor over in-memory documents.
type Editor struct {
	mu         sync.Mutex
	docs       map[codelens.DocumentID]*Document
	byPath     map[string]codelens.DocumentID
	nextDoc    codelens.DocumentID
	namespaces map[string]codelens.NamespaceID
	nsNames    map[codelens.NamespaceID]string
	current    codelens.DocumentID
	cursor     int
	choose     Chooser
	notify     Notifier
}

// New returns an empty editor. A nil chooser cancels every prompt and a
// nil notifier discards messages.
func New(choose Chooser, notify Notifier) *Editor {
	return &Editor{
		docs:       make(map[codelens.DocumentID]*Document),
		byPath:     make(map[string]codelens.DocumentID),
		namespaces: make(map[string]codelens.NamespaceID),
		nsNames:    make(map[codelens.NamespaceID]string),
		choose:     choose,
		notify:     notify,
	}
}

// Open creates a document for path with text and makes it current.
// Opening an already open path replaces its text.
func (e *Editor) Open(path, text string) codelens.DocumentID {
	e.mu.Lock()
	if id, ok := e.byPath[path]; ok {
		e.current = id
		e.mu.Unlock()
		e.SetText(id, text)
		return id
	}
	e.nextDoc++
	id := e.nextDoc
	e.docs[id] = &Document{
		ID:      id,
		Path:    path,
		Version: 1,
		lines:   splitLines(text),
		marks:   make(map[codelens.NamespaceID]map[int][][]codelens.Chunk),
	}
	e.byPath[path] = id
	e.current = id
	e.cursor = 1
	e.mu.Unlock()
	return id
}

// Lookup returns the document opened for path.
func (e *Editor) Lookup(path string) (codelens.DocumentID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.byPath[path]
	return id, ok
}

// Path returns the path doc was opened with.
func (e *Editor) Path(doc codelens.DocumentID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.docs[doc]; ok {
		return d.Path
	}
	return ""
}

// Text returns the full contents of doc.
func (e *Editor) Text(doc codelens.DocumentID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.docs[doc]; ok {
		return strings.Join(d.lines, "\n")
	}
	return ""
}

// Version returns doc's change counter, starting at 1.
func (e *Editor) Version(doc codelens.DocumentID) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.docs[doc]; ok {
		return d.Version
	}
	return 0
}

// SetText replaces the whole buffer and notifies observers.
func (e *Editor) SetText(doc codelens.DocumentID, text string) {
	e.mu.Lock()
	d, ok := e.docs[doc]
	if !ok {
		e.mu.Unlock()
		return
	}
	old := len(d.lines)
	d.lines = splitLines(text)
	dropMarksFrom(d, len(d.lines))
	e.mu.Unlock()
	e.changed(d, 0, old, len(d.lines))
}

// SetLines replaces the zero-based range [first, last) with lines and
// notifies observers.
func (e *Editor) SetLines(doc codelens.DocumentID, first, last int, lines []string) error {
	e.mu.Lock()
	d, ok := e.docs[doc]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", codelens.ErrNoDocument, doc)
	}
	if first < 0 || last < first || last > len(d.lines) {
		e.mu.Unlock()
		return fmt.Errorf("line range [%d, %d) out of bounds for %d lines", first, last, len(d.lines))
	}
	d.lines = slices.Replace(d.lines, first, last, lines...)
	shiftMarks(d, first, last, first+len(lines))
	e.mu.Unlock()
	e.changed(d, first, last, first+len(lines))
	return nil
}

// shiftMarks moves the marks of lines at or after lastOld so they stay on
// the same text, and drops the marks of the replaced lines.
func shiftMarks(d *Document, first, lastOld, lastNew int) {
	delta := lastNew - lastOld
	for ns, lines := range d.marks {
		moved := make(map[int][][]codelens.Chunk, len(lines))
		for line, marks := range lines {
			switch {
			case line < first:
				moved[line] = marks
			case line >= lastOld:
				moved[line+delta] = marks
			}
		}
		d.marks[ns] = moved
	}
}

// dropMarksFrom removes the marks on lines at or after n.
func dropMarksFrom(d *Document, n int) {
	for _, lines := range d.marks {
		for line := range lines {
			if line >= n {
				delete(lines, line)
			}
		}
	}
}

func (e *Editor) changed(d *Document, first, lastOld, lastNew int) {
	e.mu.Lock()
	d.Version++
	observers := slices.Clone(d.obs)
	e.mu.Unlock()
	for _, obs := range observers {
		if obs.OnLines != nil {
			obs.OnLines(d.ID, first, lastOld, lastNew)
		}
	}
}

// Close destroys doc and notifies observers.
func (e *Editor) Close(doc codelens.DocumentID) {
	e.mu.Lock()
	d, ok := e.docs[doc]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.docs, doc)
	delete(e.byPath, d.Path)
	if e.current == doc {
		e.current = codelens.NoDocument
	}
	observers := d.obs
	e.mu.Unlock()
	for _, obs := range observers {
		if obs.OnDetach != nil {
			obs.OnDetach(doc)
		}
	}
}

// Documents returns the ids of every open document in opening order.
func (e *Editor) Documents() []codelens.DocumentID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]codelens.DocumentID, 0, len(e.docs))
	for id := range e.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SetCurrent focuses doc with the cursor on the one-based line.
func (e *Editor) SetCurrent(doc codelens.DocumentID, line int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = doc
	e.cursor = line
}

func (e *Editor) CurrentDocument() codelens.DocumentID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Editor) CursorLine() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func (e *Editor) LineCount(doc codelens.DocumentID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.docs[doc]; ok {
		return len(d.lines)
	}
	return 0
}

func (e *Editor) Attach(doc codelens.DocumentID, obs codelens.Observer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[doc]
	if !ok {
		return false
	}
	d.obs = append(d.obs, obs)
	return true
}

// CreateNamespace returns the same id for the same name.
func (e *Editor) CreateNamespace(name string) codelens.NamespaceID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.namespaces[name]; ok {
		return id
	}
	id := codelens.NamespaceID(len(e.namespaces) + 1)
	e.namespaces[name] = id
	e.nsNames[id] = name
	return id
}

// NamespaceName returns the name ns was created with.
func (e *Editor) NamespaceName(ns codelens.NamespaceID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nsNames[ns]
}

func (e *Editor) ClearNamespace(doc codelens.DocumentID, ns codelens.NamespaceID, start, end int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[doc]
	if !ok {
		return
	}
	for line := range d.marks[ns] {
		if line >= start && (end < 0 || line < end) {
			delete(d.marks[ns], line)
		}
	}
}

func (e *Editor) AddAnnotation(doc codelens.DocumentID, ns codelens.NamespaceID, line int, chunks []codelens.Chunk) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[doc]
	if !ok || line < 0 || line >= len(d.lines) {
		return
	}
	if d.marks[ns] == nil {
		d.marks[ns] = make(map[int][][]codelens.Chunk)
	}
	d.marks[ns][line] = append(d.marks[ns][line], slices.Clone(chunks))
}

func (e *Editor) Select(prompt string, items []string) int {
	if e.choose == nil {
		return 0
	}
	return e.choose(prompt, items)
}

func (e *Editor) Notify(level codelens.Level, msg string) {
	if e.notify != nil {
		e.notify(level, msg)
	}
}

// Annotation is one rendered line annotation.
type Annotation struct {
	Line      int
	Namespace string
	Chunks    []codelens.Chunk
}

// Annotations returns doc's annotations sorted by line, then namespace name.
func (e *Editor) Annotations(doc codelens.DocumentID) []Annotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[doc]
	if !ok {
		return nil
	}
	var out []Annotation
	for ns, lines := range d.marks {
		for line, marks := range lines {
			for _, chunks := range marks {
				out = append(out, Annotation{Line: line, Namespace: e.nsNames[ns], Chunks: slices.Clone(chunks)})
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Annotation) int {
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return strings.Compare(a.Namespace, b.Namespace)
	})
	return out
}

// Lines returns a copy of doc's lines.
func (e *Editor) Lines(doc codelens.DocumentID) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d, ok := e.docs[doc]; ok {
		return slices.Clone(d.lines)
	}
	return nil
}

// Line returns the zero-based line of doc.
func (e *Editor) Line(doc codelens.DocumentID, line int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.docs[doc]
	if !ok || line < 0 || line >= len(d.lines) {
		return "", false
	}
	return d.lines[line], true
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
