package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"lensctl/internal/codelens"
	"lensctl/internal/trace"
	"lensctl/internal/version"
)

var (
	// ErrClosed is delivered to requests still pending when the connection
	// to the server goes away.
	ErrClosed = errors.New("lsp: connection closed")
)

// ResponseError is a JSON-RPC error returned by the server.
type ResponseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("lsp: %s (code %d)", e.Message, e.Code)
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Post schedules a callback on the session's event loop. Without it
	// callbacks run on the reader goroutine.
	Post func(func())
	// OnRefresh is called (through Post) when the server asks the client
	// to refresh its code lenses.
	OnRefresh func(backend codelens.BackendID)
	Tracer    trace.Tracer
	// Log receives protocol noise such as window/logMessage.
	Log io.Writer
}

type pendingRequest struct {
	method string
	cb     func(err error, result json.RawMessage)
	direct bool
	span   *trace.Span
}

// Client speaks JSON-RPC over a pair of streams to one language server.
// It implements codelens.Backend.
type Client struct {
	id     codelens.BackendID
	name   string
	in     *bufio.Reader
	out    *bufio.Writer
	closer io.Closer
	opts   ClientOptions
	sendMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pendingRequest
	closed  bool
	caps    ServerCapabilities
	done    chan struct{}
	readErr error
}

// NewClient wraps r and w and starts reading server messages.
// closer, when non-nil, is closed by Close.
func NewClient(id codelens.BackendID, name string, r io.Reader, w io.Writer, closer io.Closer, opts ClientOptions) *Client {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	c := &Client{
		id:      id,
		name:    name,
		in:      bufio.NewReader(r),
		out:     bufio.NewWriter(w),
		closer:  closer,
		opts:    opts,
		nextID:  1,
		pending: make(map[int64]*pendingRequest),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// ID returns the backend id.
func (c *Client) ID() codelens.BackendID { return c.id }

// Name returns the configured server name.
func (c *Client) Name() string { return c.name }

// Capabilities returns what the server announced in initialize.
func (c *Client) Capabilities() ServerCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// SupportsCodeLens reports whether the server announced a code lens provider.
func (c *Client) SupportsCodeLens() bool {
	return c.Capabilities().CodeLensProvider != nil
}

// Done is closed once the read loop has stopped.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the read loop stopped, nil on a clean EOF.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Request sends method and delivers the answer to cb on the event loop.
func (c *Client) Request(method string, params any, cb func(err error, result json.RawMessage)) {
	c.request(method, params, cb, false)
}

// Call sends method and waits for the answer. It must not be called from
// the event loop.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	type reply struct {
		err error
		raw json.RawMessage
	}
	ch := make(chan reply, 1)
	c.request(method, params, func(err error, raw json.RawMessage) {
		ch <- reply{err: err, raw: raw}
	}, true)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		if result == nil || len(r.raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(r.raw, result); err != nil {
			return fmt.Errorf("%s: decode %s result: %w", c.name, method, err)
		}
		return nil
	}
}

func (c *Client) request(method string, params any, cb func(error, json.RawMessage), direct bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.deliver(cb, direct, fmt.Errorf("%s %s: %w", c.name, method, ErrClosed), nil)
		return
	}
	id := c.nextID
	c.nextID++
	c.pending[id] = &pendingRequest{
		method: method,
		cb:     cb,
		direct: direct,
		span:   trace.Begin(c.opts.Tracer, trace.ScopeBackend, "rpc:"+method, 0).WithExtra("server", c.name),
	}
	c.mu.Unlock()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}
	if err := c.send(msg); err != nil {
		if p := c.take(id); p != nil {
			p.span.End("send failed")
			c.deliver(p.cb, p.direct, fmt.Errorf("%s %s: %w", c.name, method, err), nil)
		}
	}
}

// Notify sends a notification.
func (c *Client) Notify(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}
	return c.send(msg)
}

// Initialize performs the initialize handshake rooted at root.
func (c *Client) Initialize(ctx context.Context, root string) error {
	params := initializeParams{
		ProcessID:  os.Getpid(),
		ClientInfo: clientInfo{Name: "lensctl", Version: version.Version},
		Capabilities: clientCapabilities{
			Workspace: workspaceClientCapabilities{
				CodeLens:      refreshSupport{RefreshSupport: true},
				Configuration: true,
			},
		},
	}
	if root != "" {
		uri := PathToURI(root)
		params.RootURI = uri
		params.WorkspaceFolders = []workspaceFolder{{URI: uri, Name: root}}
	}
	var result initializeResult
	if err := c.Call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("%s: initialize: %w", c.name, err)
	}
	c.mu.Lock()
	c.caps = result.Capabilities
	c.mu.Unlock()
	return c.Notify("initialized", struct{}{})
}

// DidOpen announces a newly opened document.
func (c *Client) DidOpen(uri, languageID string, version int32, text string) error {
	return c.Notify("textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: uri, LanguageID: languageID, Version: version, Text: text},
	})
}

// DidChange sends the full new text of a document.
func (c *Client) DidChange(uri string, version int32, text string) error {
	return c.Notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []textDocumentContentChangeEvent{{Text: text}},
	})
}

// DidClose announces a closed document.
func (c *Client) DidClose(uri string) error {
	return c.Notify("textDocument/didClose", didCloseTextDocumentParams{
		TextDocument: textDocumentIdentifier{URI: uri},
	})
}

// Shutdown sends shutdown and exit, then closes the connection.
func (c *Client) Shutdown(ctx context.Context) error {
	err := c.Call(ctx, "shutdown", nil, nil)
	if err == nil {
		err = c.Notify("exit", nil)
	}
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close drops the connection and fails every pending request.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	var err error
	if c.closer != nil {
		err = c.closer.Close()
	}
	c.failPending()
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		payload, err := readMessage(c.in)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
				trace.Error(c.opts.Tracer, trace.ScopeSession, "rpc.read", err)
			}
			c.mu.Lock()
			c.closed = true
			c.mu.Unlock()
			c.failPending()
			return
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logf("failed to parse message: %v", err)
			continue
		}
		switch {
		case msg.isResponse():
			c.handleResponse(&msg)
		case msg.isRequest():
			c.handleServerRequest(&msg)
		case msg.Method != "":
			c.handleNotification(&msg)
		}
	}
}

func (c *Client) handleResponse(msg *rpcMessage) {
	id, err := strconv.ParseInt(string(msg.ID), 10, 64)
	if err != nil {
		c.logf("response with foreign id %s", msg.ID)
		return
	}
	p := c.take(id)
	if p == nil {
		c.logf("response to unknown request %d", id)
		return
	}
	if msg.Error != nil {
		p.span.End(msg.Error.Message)
		c.deliver(p.cb, p.direct, msg.Error, nil)
		return
	}
	p.span.End("")
	c.deliver(p.cb, p.direct, nil, msg.Result)
}

func (c *Client) handleServerRequest(msg *rpcMessage) {
	switch msg.Method {
	case "workspace/codeLens/refresh":
		trace.Point(c.opts.Tracer, trace.ScopeBackend, "rpc:"+msg.Method, c.name)
		if c.opts.OnRefresh != nil {
			c.post(func() { c.opts.OnRefresh(c.id) })
		}
		c.reply(msg.ID, nil)
	case "workspace/configuration":
		var params configurationParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.replyError(msg.ID, codeInvalidParams, "invalid params")
			return
		}
		c.reply(msg.ID, make([]any, len(params.Items)))
	case "client/registerCapability", "client/unregisterCapability", "window/workDoneProgress/create":
		c.reply(msg.ID, nil)
	default:
		c.replyError(msg.ID, codeMethodNotFound, "method not found")
	}
}

func (c *Client) handleNotification(msg *rpcMessage) {
	switch msg.Method {
	case "window/logMessage", "window/showMessage":
		var params logMessageParams
		if err := json.Unmarshal(msg.Params, &params); err == nil {
			c.logf("%s", params.Message)
		}
	case "textDocument/publishDiagnostics":
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(msg.Params, &params); err == nil {
			trace.Point(c.opts.Tracer, trace.ScopeBackend, "rpc:"+msg.Method, uriToPath(params.URI))
		}
	}
}

func (c *Client) reply(id json.RawMessage, result any) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	if err := c.send(msg); err != nil {
		c.logf("failed to reply: %v", err)
	}
}

func (c *Client) replyError(id json.RawMessage, code int, message string) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   ResponseError{Code: code, Message: message},
	}
	if err := c.send(msg); err != nil {
		c.logf("failed to reply: %v", err)
	}
}

func (c *Client) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := writeMessage(c.out, payload); err != nil {
		return err
	}
	return c.out.Flush()
}

func (c *Client) take(id int64) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	return p
}

func (c *Client) failPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]*pendingRequest)
	c.mu.Unlock()
	for _, p := range pending {
		p.span.End("closed")
		c.deliver(p.cb, p.direct, fmt.Errorf("%s %s: %w", c.name, p.method, ErrClosed), nil)
	}
}

func (c *Client) deliver(cb func(error, json.RawMessage), direct bool, err error, result json.RawMessage) {
	if direct {
		cb(err, result)
		return
	}
	c.post(func() { cb(err, result) })
}

func (c *Client) post(fn func()) {
	if c.opts.Post != nil {
		c.opts.Post(fn)
		return
	}
	fn()
}

func (c *Client) logf(format string, args ...any) {
	if c.opts.Log == nil {
		return
	}
	fmt.Fprintf(c.opts.Log, "lsp[%s]: "+format+"\n", append([]any{c.name}, args...)...)
}
