package codelens

import (
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// Renderer projects lenses onto per-line annotations, one channel per backend.
type Renderer struct {
	editor Editor
	ns     *Namespaces
	style  RenderStyle
}

// RenderStyle controls how lens text is drawn.
type RenderStyle struct {
	Placeholder    string
	Separator      string
	Highlight      string
	SeparatorStyle string
	// MaxWidth truncates each title to this many cells. Zero disables it.
	MaxWidth int
}

// DefaultRenderStyle returns the stock placeholder, separator and highlight groups.
func DefaultRenderStyle() RenderStyle {
	return RenderStyle{
		Placeholder:    "Unresolved lens ...",
		Separator:      " | ",
		Highlight:      "LspCodeLens",
		SeparatorStyle: "LspCodeLensSeparator",
	}
}

func newRenderer(editor Editor, ns *Namespaces, style RenderStyle) *Renderer {
	return &Renderer{editor: editor, ns: ns, style: style}
}

// Display replaces backend's annotations on doc with lenses, line by line.
// It never touches another backend's channel.
func (r *Renderer) Display(doc DocumentID, backend BackendID, lenses []Lens) {
	if len(lenses) == 0 {
		return
	}
	ns := r.ns.For(backend)
	byLine := make(map[int][]Lens)
	for _, l := range lenses {
		byLine[l.Line()] = append(byLine[l.Line()], l)
	}
	last := r.editor.LineCount(doc)
	for line := 0; line <= last; line++ {
		r.editor.ClearNamespace(doc, ns, line, line+1)
		if onLine, ok := byLine[line]; ok {
			r.editor.AddAnnotation(doc, ns, line, r.chunks(onLine))
		}
	}
}

// Overlay adds a single lens on top of whatever its line already shows.
func (r *Renderer) Overlay(doc DocumentID, backend BackendID, lens Lens) {
	ns := r.ns.For(backend)
	r.editor.AddAnnotation(doc, ns, lens.Line(), r.chunks([]Lens{lens}))
}

// Clear removes backend's annotation on a single line.
func (r *Renderer) Clear(doc DocumentID, backend BackendID, line int) {
	ns := r.ns.For(backend)
	r.editor.ClearNamespace(doc, ns, line, line+1)
}

// Text returns the string a lens is drawn with.
func (r *Renderer) Text(l Lens) string {
	if l.Command == nil {
		return r.style.Placeholder
	}
	title := norm.NFC.String(l.Command.Title)
	if r.style.MaxWidth > 0 && runewidth.StringWidth(title) > r.style.MaxWidth {
		title = runewidth.Truncate(title, r.style.MaxWidth, "...")
	}
	return title
}

func (r *Renderer) chunks(lenses []Lens) []Chunk {
	chunks := make([]Chunk, 0, 2*len(lenses)-1)
	for i, l := range lenses {
		if i > 0 {
			chunks = append(chunks, Chunk{Text: r.style.Separator, Style: r.style.SeparatorStyle})
		}
		chunks = append(chunks, Chunk{Text: r.Text(l), Style: r.style.Highlight})
	}
	return chunks
}

// JoinChunks concatenates chunk texts.
func JoinChunks(chunks []Chunk) string {
	n := 0
	for _, c := range chunks {
		n += len(c.Text)
	}
	buf := make([]byte, 0, n)
	for _, c := range chunks {
		buf = append(buf, c.Text...)
	}
	return string(buf)
}
