package codelens

import (
	"testing"

	"lensctl/internal/trace"
)

func TestSessionCloseClearsEverything(t *testing.T) {
	s, ed, tr := newTestSession(t)
	ed.open(1, 10)
	tr.add(1, 1, 2)
	s.Refresh(1)
	for _, p := range tr.take(MethodCodeLens) {
		p.reply(t, []Lens{lensAt(3, "lens")})
	}
	s.Refresh(1)

	s.Close()

	if out := ed.allTexts(1); out != "" {
		t.Fatalf("expected no annotations after close, got:\n%s", out)
	}
	if s.Store().Has(1) {
		t.Fatal("expected store emptied")
	}
	if s.InFlight(1) {
		t.Fatal("expected flags dropped")
	}
	if s.Refresh(1) {
		t.Fatal("expected refresh on a closed session to be refused")
	}
	s.Close()
}

func TestSessionTracesCycles(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDetail)
	ed := newFakeEditor()
	tr := newFakeTransport()
	s := NewSession(ed, tr, WithTracer(ring))
	ed.open(1, 4)
	tr.add(1, 1)

	s.Refresh(1)
	tr.take(MethodCodeLens)[0].reply(t, []Lens{lensAt(0, "x")})

	var sawRefresh, sawBackend bool
	for _, ev := range ring.Snapshot() {
		switch ev.Scope {
		case trace.ScopeRefresh:
			sawRefresh = true
		case trace.ScopeBackend:
			sawBackend = true
		}
	}
	if !sawRefresh || !sawBackend {
		t.Fatalf("expected refresh and backend events, got %+v", ring.Snapshot())
	}
	if s.ID() == "" {
		t.Fatal("expected session id")
	}
}
