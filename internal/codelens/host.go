package codelens

import "encoding/json"

// LSP method names the core sends.
const (
	MethodCodeLens       = "textDocument/codeLens"
	MethodResolve        = "codeLens/resolve"
	MethodExecuteCommand = "workspace/executeCommand"
)

// Level classifies a user-visible message.
type Level uint8

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Chunk is one styled segment of an inline annotation.
type Chunk struct {
	Text  string
	Style string
}

// Observer receives document mutation notifications.
// OnLines gets the first changed line, the old exclusive end and the new
// exclusive end, all zero-based.
type Observer struct {
	OnLines  func(doc DocumentID, first, lastOld, lastNew int)
	OnDetach func(doc DocumentID)
}

// Editor is the document/editor collaborator.
type Editor interface {
	CurrentDocument() DocumentID
	// CursorLine returns the one-based cursor line of the current document.
	CursorLine() int
	LineCount(doc DocumentID) int
	// Attach registers obs for doc and reports whether doc is live.
	Attach(doc DocumentID, obs Observer) bool
	CreateNamespace(name string) NamespaceID
	// ClearNamespace removes annotations on lines [start, end). A negative
	// end means "to the end of the document".
	ClearNamespace(doc DocumentID, ns NamespaceID, start, end int)
	// AddAnnotation places an additional annotation on line without
	// removing the ones already there.
	AddAnnotation(doc DocumentID, ns NamespaceID, line int, chunks []Chunk)
	// Select shows items and returns the 1-based choice. Anything outside
	// [1, len(items)] means cancelled.
	Select(prompt string, items []string) int
	Notify(level Level, msg string)
}

// ResponseHandler receives one backend's answer to a document-wide request.
type ResponseHandler func(err error, result json.RawMessage, backend BackendID, doc DocumentID)

// Backend is a live handle to one analysis backend.
type Backend interface {
	ID() BackendID
	// Request sends method to this backend only. cb runs on the session's
	// event loop.
	Request(method string, params any, cb func(err error, result json.RawMessage))
}

// Transport routes requests to backends.
type Transport interface {
	Backend(id BackendID) (Backend, bool)
	// RequestAll sends a document-scoped request to every backend attached
	// to doc and returns how many backends it was sent to. handler runs
	// once per backend on the session's event loop.
	RequestAll(doc DocumentID, method string, handler ResponseHandler) int
}
