package codelens

import (
	"encoding/json"
	"strings"
	"testing"
)

type fakeEditor struct {
	current   DocumentID
	cursor    int
	lines     map[DocumentID]int
	observers map[DocumentID][]Observer
	nsNames   map[NamespaceID]string
	marks     map[DocumentID]map[NamespaceID]map[int][][]Chunk
	choice    int
	prompts   [][]string
	notes     []string
}

func newFakeEditor() *fakeEditor {
	return &fakeEditor{
		lines:     make(map[DocumentID]int),
		observers: make(map[DocumentID][]Observer),
		nsNames:   make(map[NamespaceID]string),
		marks:     make(map[DocumentID]map[NamespaceID]map[int][][]Chunk),
	}
}

func (e *fakeEditor) open(doc DocumentID, lines int) {
	e.lines[doc] = lines
	e.current = doc
	e.marks[doc] = make(map[NamespaceID]map[int][][]Chunk)
}

func (e *fakeEditor) CurrentDocument() DocumentID { return e.current }
func (e *fakeEditor) CursorLine() int             { return e.cursor }

func (e *fakeEditor) LineCount(doc DocumentID) int { return e.lines[doc] }

func (e *fakeEditor) Attach(doc DocumentID, obs Observer) bool {
	if _, ok := e.lines[doc]; !ok {
		return false
	}
	e.observers[doc] = append(e.observers[doc], obs)
	return true
}

func (e *fakeEditor) CreateNamespace(name string) NamespaceID {
	id := NamespaceID(len(e.nsNames) + 1)
	e.nsNames[id] = name
	return id
}

func (e *fakeEditor) ClearNamespace(doc DocumentID, ns NamespaceID, start, end int) {
	byNS, ok := e.marks[doc]
	if !ok {
		return
	}
	lines := byNS[ns]
	for line := range lines {
		if line >= start && (end < 0 || line < end) {
			delete(lines, line)
		}
	}
}

func (e *fakeEditor) AddAnnotation(doc DocumentID, ns NamespaceID, line int, chunks []Chunk) {
	byNS, ok := e.marks[doc]
	if !ok {
		return
	}
	if byNS[ns] == nil {
		byNS[ns] = make(map[int][][]Chunk)
	}
	byNS[ns][line] = append(byNS[ns][line], append([]Chunk(nil), chunks...))
}

func (e *fakeEditor) Select(_ string, items []string) int {
	e.prompts = append(e.prompts, append([]string(nil), items...))
	return e.choice
}

func (e *fakeEditor) Notify(_ Level, msg string) {
	e.notes = append(e.notes, msg)
}

// texts returns every annotation on line in ns, each joined into one string.
func (e *fakeEditor) texts(doc DocumentID, ns NamespaceID, line int) []string {
	var out []string
	for _, chunks := range e.marks[doc][ns][line] {
		out = append(out, JoinChunks(chunks))
	}
	return out
}

func (e *fakeEditor) allTexts(doc DocumentID) string {
	var sb strings.Builder
	for _, lines := range e.marks[doc] {
		for _, marks := range lines {
			for _, chunks := range marks {
				sb.WriteString(JoinChunks(chunks))
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func (e *fakeEditor) edit(doc DocumentID, first, lastOld, lastNew int) {
	for _, obs := range e.observers[doc] {
		obs.OnLines(doc, first, lastOld, lastNew)
	}
}

func (e *fakeEditor) destroy(doc DocumentID) {
	observers := e.observers[doc]
	delete(e.observers, doc)
	delete(e.lines, doc)
	delete(e.marks, doc)
	for _, obs := range observers {
		obs.OnDetach(doc)
	}
}

type pendingCall struct {
	backend BackendID
	method  string
	params  any
	cb      func(error, json.RawMessage)
}

type fakeTransport struct {
	backends map[BackendID]*fakeBackend
	attached map[DocumentID][]BackendID
	queue    []*pendingCall
}

type fakeBackend struct {
	id BackendID
	t  *fakeTransport
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		backends: make(map[BackendID]*fakeBackend),
		attached: make(map[DocumentID][]BackendID),
	}
}

func (t *fakeTransport) add(doc DocumentID, ids ...BackendID) {
	for _, id := range ids {
		if _, ok := t.backends[id]; !ok {
			t.backends[id] = &fakeBackend{id: id, t: t}
		}
		t.attached[doc] = append(t.attached[doc], id)
	}
}

func (t *fakeTransport) Backend(id BackendID) (Backend, bool) {
	b, ok := t.backends[id]
	if !ok {
		return nil, false
	}
	return b, true
}

func (t *fakeTransport) RequestAll(doc DocumentID, method string, handler ResponseHandler) int {
	ids := t.attached[doc]
	for _, id := range ids {
		t.queue = append(t.queue, &pendingCall{
			backend: id,
			method:  method,
			params:  doc,
			cb: func(err error, result json.RawMessage) {
				handler(err, result, id, doc)
			},
		})
	}
	return len(ids)
}

func (b *fakeBackend) ID() BackendID { return b.id }

func (b *fakeBackend) Request(method string, params any, cb func(error, json.RawMessage)) {
	b.t.queue = append(b.t.queue, &pendingCall{backend: b.id, method: method, params: params, cb: cb})
}

func (t *fakeTransport) count(method string) int {
	n := 0
	for _, p := range t.queue {
		if p.method == method {
			n++
		}
	}
	return n
}

// take removes and returns the pending calls for method in issue order.
func (t *fakeTransport) take(method string) []*pendingCall {
	var out, rest []*pendingCall
	for _, p := range t.queue {
		if p.method == method {
			out = append(out, p)
		} else {
			rest = append(rest, p)
		}
	}
	t.queue = rest
	return out
}

func (p *pendingCall) reply(t *testing.T, v any) {
	t.Helper()
	p.cb(nil, mustJSON(t, v))
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func lensAt(line int, title string) Lens {
	l := Lens{Range: Range{Start: Position{Line: line}, End: Position{Line: line, Character: 1}}}
	if title != "" {
		l.Command = &Command{Title: title, Command: "cmd." + strings.ToLower(strings.ReplaceAll(title, " ", "."))}
	}
	return l
}

func newTestSession(t *testing.T) (*Session, *fakeEditor, *fakeTransport) {
	t.Helper()
	ed := newFakeEditor()
	tr := newFakeTransport()
	return NewSession(ed, tr), ed, tr
}
