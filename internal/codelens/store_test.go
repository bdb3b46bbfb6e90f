package codelens

import "testing"

func TestGetUnknownDocumentIsEmpty(t *testing.T) {
	s, _, _ := newTestSession(t)
	got := s.Get(DocumentID(42))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSaveReplacesBackendList(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 10)
	store := s.Store()

	store.Save(1, 7, []Lens{lensAt(0, "a"), lensAt(1, "b")})
	store.Save(1, 7, []Lens{lensAt(2, "c")})

	got := store.Lenses(1, 7)
	if len(got) != 1 || got[0].Command.Title != "c" {
		t.Fatalf("expected only the latest list, got %+v", got)
	}
	if all := store.Get(1); len(all) != 1 {
		t.Fatalf("expected 1 lens overall, got %d", len(all))
	}
}

func TestGetKeepsBackendOrder(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 10)
	store := s.Store()

	store.Save(1, 9, []Lens{lensAt(3, "nine-a"), lensAt(1, "nine-b")})
	store.Save(1, 2, []Lens{lensAt(0, "two")})
	store.Save(1, 9, []Lens{lensAt(4, "nine-c"), lensAt(2, "nine-d")})

	got := store.Get(1)
	want := []string{"nine-c", "nine-d", "two"}
	if len(got) != len(want) {
		t.Fatalf("expected %d lenses, got %d", len(want), len(got))
	}
	for i, title := range want {
		if got[i].Command.Title != title {
			t.Fatalf("lens %d: expected %q, got %q", i, title, got[i].Command.Title)
		}
	}
}

func TestGetReturnsCopies(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 10)
	s.Store().Save(1, 1, []Lens{lensAt(0, "orig")})

	got := s.Get(1)
	got[0].Command.Title = "mutated"

	if title := s.Get(1)[0].Command.Title; title != "orig" {
		t.Fatalf("store changed through snapshot: %q", title)
	}
}

func TestSaveOnDeadDocumentIsDropped(t *testing.T) {
	s, _, _ := newTestSession(t)
	if s.Store().Save(5, 1, []Lens{lensAt(0, "x")}) {
		t.Fatal("expected save to an unknown document to fail")
	}
	if s.Store().Has(5) {
		t.Fatal("expected no entry for unknown document")
	}
}

func TestDetachRemovesEntry(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 10)
	s.Store().Save(1, 1, []Lens{lensAt(0, "x")})

	ed.destroy(1)

	if s.Store().Has(1) {
		t.Fatal("expected entry to be removed on detach")
	}
	if got := s.Get(1); len(got) != 0 {
		t.Fatalf("expected empty lenses after detach, got %d", len(got))
	}
}

func TestObserverAttachedOnce(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 10)
	s.Store().Save(1, 1, nil)
	s.Store().Save(1, 2, nil)
	s.Store().Save(1, 1, nil)
	if n := len(ed.observers[1]); n != 1 {
		t.Fatalf("expected 1 observer, got %d", n)
	}
}

func TestMultiLineEditClearsEveryAffectedLine(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 20)
	lenses := []Lens{lensAt(2, "two"), lensAt(3, "three"), lensAt(4, "four"), lensAt(5, "five"), lensAt(6, "six")}
	s.Store().Save(1, 1, lenses)
	s.Store().Save(1, 2, []Lens{lensAt(4, "other")})
	s.Renderer().Display(1, 1, s.Store().Lenses(1, 1))
	s.Renderer().Display(1, 2, s.Store().Lenses(1, 2))
	ns1 := s.Namespaces().For(1)
	ns2 := s.Namespaces().For(2)

	// Lines 3..5 replaced by a single line: old end 6, new end 4.
	ed.edit(1, 3, 6, 4)

	for _, line := range []int{3, 4, 5} {
		if got := ed.texts(1, ns1, line); len(got) != 0 {
			t.Fatalf("line %d: expected cleared, got %v", line, got)
		}
	}
	if got := ed.texts(1, ns2, 4); len(got) != 0 {
		t.Fatalf("expected second backend cleared on line 4, got %v", got)
	}
	for _, line := range []int{2, 6} {
		if got := ed.texts(1, ns1, line); len(got) != 1 {
			t.Fatalf("line %d: expected untouched annotation, got %v", line, got)
		}
	}
}

func TestInsertionClearsNewExtent(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 20)
	s.Store().Save(1, 1, []Lens{lensAt(4, "a"), lensAt(5, "b"), lensAt(7, "c")})
	s.Renderer().Display(1, 1, s.Store().Lenses(1, 1))
	ns := s.Namespaces().For(1)

	// Two lines inserted at line 4.
	ed.edit(1, 4, 4, 6)

	if got := ed.texts(1, ns, 4); len(got) != 0 {
		t.Fatalf("expected line 4 cleared, got %v", got)
	}
	if got := ed.texts(1, ns, 5); len(got) != 0 {
		t.Fatalf("expected line 5 cleared, got %v", got)
	}
	if got := ed.texts(1, ns, 7); len(got) != 1 {
		t.Fatalf("expected line 7 kept, got %v", got)
	}
}

func TestStalePatchIsDropped(t *testing.T) {
	s, ed, _ := newTestSession(t)
	ed.open(1, 10)
	store := s.Store()
	store.Save(1, 1, []Lens{lensAt(0, "")})
	gen := store.Generation(1, 1)
	store.Save(1, 1, []Lens{lensAt(0, "")})

	if _, ok := store.Apply(Patch{Document: 1, Backend: 1, Generation: gen, Index: 0, Command: Command{Title: "late"}}); ok {
		t.Fatal("expected patch against replaced list to be dropped")
	}
	if store.Lenses(1, 1)[0].Resolved() {
		t.Fatal("expected lens to stay unresolved")
	}

	fresh := store.Generation(1, 1)
	got, ok := store.Apply(Patch{Document: 1, Backend: 1, Generation: fresh, Index: 0, Command: Command{Title: "ok"}})
	if !ok || got.Command.Title != "ok" {
		t.Fatalf("expected current patch applied, got %+v ok=%v", got, ok)
	}
	if _, ok := store.Apply(Patch{Document: 1, Backend: 1, Generation: fresh, Index: 0, Command: Command{Title: "twice"}}); ok {
		t.Fatal("expected second patch to the same lens to be dropped")
	}
}
