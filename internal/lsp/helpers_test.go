package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"lensctl/internal/codelens"
)

var errNoReply = errors.New("no reply")

type handlerFunc func(params json.RawMessage) (any, error)

// fakeServer is the server end of an in-memory connection.
type fakeServer struct {
	t        *testing.T
	in       *bufio.Reader
	out      io.Writer
	sendMu   sync.Mutex
	mu       sync.Mutex
	handlers map[string]handlerFunc
	notes    chan rpcMessage
	replies  chan rpcMessage
}

type pipeCloser []io.Closer

func (p pipeCloser) Close() error {
	for _, c := range p {
		_ = c.Close()
	}
	return nil
}

func newPair(t *testing.T, id codelens.BackendID, opts ClientOptions) (*Client, *fakeServer) {
	t.Helper()
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()
	srv := &fakeServer{
		t:        t,
		in:       bufio.NewReader(c2sR),
		out:      s2cW,
		handlers: make(map[string]handlerFunc),
		notes:    make(chan rpcMessage, 64),
		replies:  make(chan rpcMessage, 8),
	}
	srv.handle("initialize", func(json.RawMessage) (any, error) {
		return map[string]any{"capabilities": map[string]any{
			"codeLensProvider": map[string]any{"resolveProvider": true},
		}}, nil
	})
	srv.handle("shutdown", func(json.RawMessage) (any, error) { return nil, nil })
	go srv.serve()

	client := NewClient(id, "fake", s2cR, c2sW, pipeCloser{c2sW, s2cR}, opts)
	t.Cleanup(func() {
		_ = client.Close()
		_ = s2cW.Close()
		_ = c2sR.Close()
	})
	return client, srv
}

func (s *fakeServer) handle(method string, fn handlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

func (s *fakeServer) serve() {
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			return
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.t.Errorf("server: bad payload %s", payload)
			return
		}
		switch {
		case msg.isRequest():
			s.mu.Lock()
			fn, ok := s.handlers[msg.Method]
			s.mu.Unlock()
			if !ok {
				s.send(map[string]any{"jsonrpc": "2.0", "id": msg.ID, "error": ResponseError{Code: codeMethodNotFound, Message: "method not found"}})
				continue
			}
			result, err := fn(msg.Params)
			var rerr *ResponseError
			switch {
			case errors.Is(err, errNoReply):
			case errors.As(err, &rerr):
				s.send(map[string]any{"jsonrpc": "2.0", "id": msg.ID, "error": rerr})
			default:
				s.send(map[string]any{"jsonrpc": "2.0", "id": msg.ID, "result": result})
			}
		case msg.isResponse():
			s.replies <- msg
		default:
			s.notes <- msg
		}
	}
}

// request sends a server-to-client request.
func (s *fakeServer) request(id, method string, params any) {
	s.send(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})
}

func (s *fakeServer) notify(method string, params any) {
	s.send(map[string]any{"jsonrpc": "2.0", "method": method, "params": params})
}

func (s *fakeServer) send(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.t.Errorf("server: marshal: %v", err)
		return
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	_ = writeMessage(s.out, payload)
}

func (s *fakeServer) expectNote(t *testing.T, method string) rpcMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-s.notes:
			if msg.Method == method {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", method)
			return rpcMessage{}
		}
	}
}

func (s *fakeServer) expectReply(t *testing.T) rpcMessage {
	t.Helper()
	select {
	case msg := <-s.replies:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reply")
		return rpcMessage{}
	}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}
