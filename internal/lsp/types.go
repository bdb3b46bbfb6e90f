package lsp

import "encoding/json"

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

func (m *rpcMessage) isRequest() bool  { return m.Method != "" && len(m.ID) > 0 }
func (m *rpcMessage) isResponse() bool { return m.Method == "" && len(m.ID) > 0 }

// JSON-RPC error codes used by the client.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type initializeParams struct {
	ProcessID        int                `json:"processId"`
	ClientInfo       clientInfo         `json:"clientInfo"`
	RootURI          string             `json:"rootUri,omitempty"`
	WorkspaceFolders []workspaceFolder  `json:"workspaceFolders,omitempty"`
	Capabilities     clientCapabilities `json:"capabilities"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type workspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type clientCapabilities struct {
	TextDocument textDocumentClientCapabilities `json:"textDocument"`
	Workspace    workspaceClientCapabilities    `json:"workspace"`
}

type textDocumentClientCapabilities struct {
	CodeLens dynamicRegistration `json:"codeLens"`
}

type dynamicRegistration struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

type workspaceClientCapabilities struct {
	CodeLens         refreshSupport      `json:"codeLens"`
	ExecuteCommand   dynamicRegistration `json:"executeCommand"`
	Configuration    bool                `json:"configuration"`
	WorkspaceFolders bool                `json:"workspaceFolders"`
}

type refreshSupport struct {
	RefreshSupport bool `json:"refreshSupport"`
}

type textDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int32  `json:"version"`
	Text       string `json:"text"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type versionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int32  `json:"version"`
}

type textDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type didOpenTextDocumentParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type didChangeTextDocumentParams struct {
	TextDocument   versionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []textDocumentContentChangeEvent `json:"contentChanges"`
}

type didCloseTextDocumentParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type codeLensParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type codeLensOptions struct {
	ResolveProvider bool `json:"resolveProvider,omitempty"`
}

// ServerCapabilities is the part of the server's capabilities the client
// looks at.
type ServerCapabilities struct {
	CodeLensProvider       *codeLensOptions `json:"codeLensProvider,omitempty"`
	ExecuteCommandProvider *struct {
		Commands []string `json:"commands"`
	} `json:"executeCommandProvider,omitempty"`
}

type initializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *clientInfo        `json:"serverInfo,omitempty"`
}

type configurationParams struct {
	Items []json.RawMessage `json:"items"`
}

type logMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}
