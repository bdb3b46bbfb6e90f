package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"lensctl/internal/codelens"
	"lensctl/internal/editor"
)

func TestPickerKeys(t *testing.T) {
	m := newPickerModel("Code lenses:", []string{"Run test", "Debug test"})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.chosen != 2 || cmd == nil {
		t.Fatalf("expected choice 2 and quit, got %d", m.chosen)
	}

	m = newPickerModel("Code lenses:", []string{"a", "b"})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'9'}})
	if m.chosen != 0 {
		t.Fatalf("out-of-range digit must not choose, got %d", m.chosen)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	if m.chosen != 1 {
		t.Fatalf("expected choice 1, got %d", m.chosen)
	}

	m = newPickerModel("Code lenses:", []string{"a"})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.chosen != 0 {
		t.Fatalf("expected cancel, got %d", m.chosen)
	}
	if !strings.Contains(m.View(), "1: a") {
		t.Fatalf("unexpected view:\n%s", m.View())
	}
}

func TestPromptChoice(t *testing.T) {
	var out strings.Builder
	if got := PromptChoice("Code lenses:", []string{"a", "b"}, strings.NewReader("2\n"), &out); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if !strings.Contains(out.String(), "2: b") {
		t.Fatalf("unexpected prompt:\n%s", out.String())
	}
	if got := PromptChoice("x", []string{"a"}, strings.NewReader("nope"), &out); got != 0 {
		t.Fatalf("expected cancel, got %d", got)
	}
}

func TestProgressModelTracksBackends(t *testing.T) {
	events := make(chan codelens.Event)
	m := NewProgressModel("main.go", []Backend{{ID: 1, Name: "gopls"}, {ID: 2, Name: "other"}}, events).(*progressModel)

	m.Update(eventMsg{Stage: codelens.StageRefresh, Status: codelens.StatusWorking})
	m.Update(eventMsg{Backend: 1, Stage: codelens.StageBackend, Status: codelens.StatusWorking})
	m.Update(eventMsg{Backend: 1, Stage: codelens.StageResolve, Status: codelens.StatusDone})
	m.Update(eventMsg{Backend: 2, Stage: codelens.StageBackend, Status: codelens.StatusError})

	view := m.View()
	for _, want := range []string{"main.go (requesting)", "resolving gopls (1 resolved)", "error other"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}

	m.Update(doneMsg{})
	if !strings.Contains(m.View(), "done: ") {
		t.Fatalf("expected done header:\n%s", m.View())
	}
}

func TestRenderDocument(t *testing.T) {
	view := DocumentView{
		Lines: []string{"package main", "", "func TestX(t *testing.T) {}"},
		Annotations: []editor.Annotation{{
			Line:      2,
			Namespace: "codelens:backend:1",
			Chunks: []codelens.Chunk{
				{Text: "run test", Style: "LspCodeLens"},
				{Text: " | ", Style: "LspCodeLensSeparator"},
				{Text: "debug test", Style: "LspCodeLens"},
			},
		}},
	}
	out := RenderDocument(view, RenderOptions{})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasSuffix(lines[2], "func TestX(t *testing.T) {}  run test | debug test") {
		t.Fatalf("unexpected annotated line %q", lines[2])
	}

	only := RenderDocument(view, RenderOptions{OnlyAnnotated: true})
	if strings.Count(only, "\n") != 1 || !strings.HasPrefix(only, "3 | ") {
		t.Fatalf("unexpected annotated-only output %q", only)
	}
}
