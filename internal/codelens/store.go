package codelens

import "lensctl/internal/trace"

type backendLenses struct {
	lenses     []Lens
	generation uint64
}

type documentLenses struct {
	order    []BackendID
	backends map[BackendID]*backendLenses
}

// Store owns the canonical lens records: document → backend → lenses.
type Store struct {
	editor   Editor
	ns       *Namespaces
	tracer   trace.Tracer
	docs     map[DocumentID]*documentLenses
	attached map[DocumentID]struct{}
	nextGen  uint64
	onDetach func(DocumentID)
}

func newStore(editor Editor, ns *Namespaces, tracer trace.Tracer) *Store {
	return &Store{
		editor:   editor,
		ns:       ns,
		tracer:   tracer,
		docs:     make(map[DocumentID]*documentLenses),
		attached: make(map[DocumentID]struct{}),
	}
}

// Save replaces backend's lenses for doc. The first save for a document
// attaches the invalidation observer; saving to a document the editor no
// longer knows is dropped and reported as false.
func (s *Store) Save(doc DocumentID, backend BackendID, lenses []Lens) bool {
	entry, ok := s.docs[doc]
	if !ok {
		if _, attached := s.attached[doc]; !attached {
			if !s.editor.Attach(doc, s.observer()) {
				trace.Point(s.tracer, trace.ScopeLens, "store.save.dead", doc.String())
				return false
			}
			s.attached[doc] = struct{}{}
		}
		entry = &documentLenses{backends: make(map[BackendID]*backendLenses)}
		s.docs[doc] = entry
	}
	bl, ok := entry.backends[backend]
	if !ok {
		bl = &backendLenses{}
		entry.backends[backend] = bl
		entry.order = append(entry.order, backend)
	}
	s.nextGen++
	bl.generation = s.nextGen
	bl.lenses = cloneLenses(lenses)
	return true
}

// Get returns every backend's lenses for doc, backends in the order they
// first reported. Unknown documents yield an empty slice.
func (s *Store) Get(doc DocumentID) []Lens {
	entry, ok := s.docs[doc]
	if !ok {
		return []Lens{}
	}
	out := make([]Lens, 0)
	for _, id := range entry.order {
		out = append(out, cloneLenses(entry.backends[id].lenses)...)
	}
	return out
}

// Candidates returns (backend, lens) pairs for doc in store order.
func (s *Store) Candidates(doc DocumentID) []Candidate {
	entry, ok := s.docs[doc]
	if !ok {
		return nil
	}
	var out []Candidate
	for _, id := range entry.order {
		for _, l := range entry.backends[id].lenses {
			out = append(out, Candidate{Backend: id, Lens: l.clone()})
		}
	}
	return out
}

// Lenses returns one backend's lenses for doc.
func (s *Store) Lenses(doc DocumentID, backend BackendID) []Lens {
	entry, ok := s.docs[doc]
	if !ok {
		return nil
	}
	bl, ok := entry.backends[backend]
	if !ok {
		return nil
	}
	return cloneLenses(bl.lenses)
}

// Backends returns the backends that reported lenses for doc.
func (s *Store) Backends(doc DocumentID) []BackendID {
	entry, ok := s.docs[doc]
	if !ok {
		return nil
	}
	return append([]BackendID(nil), entry.order...)
}

// Generation returns the generation of backend's current list for doc, or
// zero when there is none.
func (s *Store) Generation(doc DocumentID, backend BackendID) uint64 {
	entry, ok := s.docs[doc]
	if !ok {
		return 0
	}
	bl, ok := entry.backends[backend]
	if !ok {
		return 0
	}
	return bl.generation
}

// Has reports whether doc has an entry.
func (s *Store) Has(doc DocumentID) bool {
	_, ok := s.docs[doc]
	return ok
}

// Apply writes a resolved command into the stored lens. Patches for torn
// down documents, replaced lists or already resolved lenses are dropped.
func (s *Store) Apply(p Patch) (Lens, bool) {
	entry, ok := s.docs[p.Document]
	if !ok {
		return Lens{}, false
	}
	bl, ok := entry.backends[p.Backend]
	if !ok || bl.generation != p.Generation {
		return Lens{}, false
	}
	if p.Index < 0 || p.Index >= len(bl.lenses) {
		return Lens{}, false
	}
	target := &bl.lenses[p.Index]
	if target.Command != nil {
		return Lens{}, false
	}
	cmd := p.Command
	target.Command = &cmd
	return target.clone(), true
}

// Forget drops doc's entry. The editor observer stays attached and is a
// no-op until the next save.
func (s *Store) Forget(doc DocumentID) {
	delete(s.docs, doc)
}

// Documents returns every document with an entry.
func (s *Store) Documents() []DocumentID {
	out := make([]DocumentID, 0, len(s.docs))
	for doc := range s.docs {
		out = append(out, doc)
	}
	return out
}

func (s *Store) observer() Observer {
	return Observer{
		OnLines:  s.invalidate,
		OnDetach: s.detach,
	}
}

// invalidate clears every backend channel over the edited lines. The range
// covers both the old and the new extent so multi-line deletions and
// insertions leave no stale annotation behind.
func (s *Store) invalidate(doc DocumentID, first, lastOld, lastNew int) {
	entry, ok := s.docs[doc]
	if !ok {
		return
	}
	end := max(lastOld, lastNew)
	if end <= first {
		end = first + 1
	}
	for _, id := range entry.order {
		ns, ok := s.ns.Lookup(id)
		if !ok {
			continue
		}
		s.editor.ClearNamespace(doc, ns, first, end)
	}
}

func (s *Store) detach(doc DocumentID) {
	delete(s.docs, doc)
	delete(s.attached, doc)
	trace.Point(s.tracer, trace.ScopeLens, "store.detach", doc.String())
	if s.onDetach != nil {
		s.onDetach(doc)
	}
}
