package codelens

import (
	"encoding/json"
	"strconv"
)

// DocumentID identifies a live document in the editor.
type DocumentID uint64

// NoDocument stands for "the currently active document".
const NoDocument DocumentID = 0

func (d DocumentID) String() string {
	return "doc:" + strconv.FormatUint(uint64(d), 10)
}

// BackendID identifies one analysis backend (a language server instance).
type BackendID uint64

func (b BackendID) String() string {
	return "backend:" + strconv.FormatUint(uint64(b), 10)
}

// NamespaceID identifies a rendering channel in the editor.
type NamespaceID int

// Position is a zero-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Command is what a lens runs when invoked.
type Command struct {
	Title     string            `json:"title"`
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// Lens is a backend annotation bound to a line range.
// A lens without a command is unresolved.
type Lens struct {
	Range   Range           `json:"range"`
	Command *Command        `json:"command,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Resolved reports whether the lens carries a command.
func (l Lens) Resolved() bool {
	return l.Command != nil
}

// Line returns the zero-based line the lens is placed on.
func (l Lens) Line() int {
	return l.Range.Start.Line
}

func (l Lens) clone() Lens {
	out := l
	if l.Command != nil {
		cmd := *l.Command
		if l.Command.Arguments != nil {
			cmd.Arguments = append([]json.RawMessage(nil), l.Command.Arguments...)
		}
		out.Command = &cmd
	}
	return out
}

func cloneLenses(lenses []Lens) []Lens {
	out := make([]Lens, len(lenses))
	for i, l := range lenses {
		out[i] = l.clone()
	}
	return out
}

// Patch carries a resolved command back to the store.
// Generation pins the backend list the resolution was issued against.
type Patch struct {
	Document   DocumentID
	Backend    BackendID
	Generation uint64
	Index      int
	Command    Command
}

// Candidate pairs a stored lens with the backend that produced it.
type Candidate struct {
	Backend BackendID
	Lens    Lens
}

func decodeLenses(raw json.RawMessage) ([]Lens, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var lenses []Lens
	if err := json.Unmarshal(raw, &lenses); err != nil {
		return nil, err
	}
	return lenses, nil
}

func decodeLens(raw json.RawMessage) (*Lens, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var lens Lens
	if err := json.Unmarshal(raw, &lens); err != nil {
		return nil, err
	}
	return &lens, nil
}
