package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"lensctl/internal/codelens"
	"lensctl/internal/editor"
)

// DocumentView is a document and the annotations rendered on it.
type DocumentView struct {
	Path        string
	Lines       []string
	Annotations []editor.Annotation
}

// RenderOptions controls RenderDocument.
type RenderOptions struct {
	// Width caps each output line in cells. Zero means unlimited.
	Width int
	// OnlyAnnotated prints just the lines that carry lenses.
	OnlyAnnotated bool
	// Styles maps highlight groups to styles. Missing groups fall back to
	// DefaultStyles.
	Styles map[string]lipgloss.Style
}

// DefaultStyles returns the styles for the stock highlight groups.
func DefaultStyles() map[string]lipgloss.Style {
	return map[string]lipgloss.Style{
		"LspCodeLens":          lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		"LspCodeLensSeparator": lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
	}
}

// RenderDocument prints the document with a line-number gutter and each
// line's annotations after the text, one namespace after another.
func RenderDocument(doc DocumentView, opts RenderOptions) string {
	styles := DefaultStyles()
	for k, v := range opts.Styles {
		styles[k] = v
	}
	gutter := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	byLine := make(map[int][]editor.Annotation)
	for _, a := range doc.Annotations {
		byLine[a.Line] = append(byLine[a.Line], a)
	}

	digits := len(fmt.Sprint(len(doc.Lines)))
	var b strings.Builder
	if doc.Path != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(doc.Path))
		b.WriteString("\n")
	}
	for i, line := range doc.Lines {
		annotations := byLine[i]
		if opts.OnlyAnnotated && len(annotations) == 0 {
			continue
		}
		prefix := fmt.Sprintf("%*d | ", digits, i+1)
		text := line
		if opts.Width > 0 {
			text = truncate(text, opts.Width-runewidth.StringWidth(prefix))
		}
		b.WriteString(gutter.Render(prefix))
		b.WriteString(text)
		for _, a := range annotations {
			b.WriteString("  ")
			b.WriteString(renderChunks(a.Chunks, styles))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderChunks(chunks []codelens.Chunk, styles map[string]lipgloss.Style) string {
	var b strings.Builder
	for _, c := range chunks {
		if style, ok := styles[c.Style]; ok {
			b.WriteString(style.Render(c.Text))
			continue
		}
		b.WriteString(c.Text)
	}
	return b.String()
}
