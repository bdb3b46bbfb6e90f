package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"lensctl/internal/codelens"
)

type rpcResult struct {
	err error
	raw json.RawMessage
}

func TestClientInitialize(t *testing.T) {
	client, srv := newPair(t, 1, ClientOptions{})
	var rootURI string
	srv.handle("initialize", func(params json.RawMessage) (any, error) {
		var p initializeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		rootURI = p.RootURI
		return map[string]any{"capabilities": map[string]any{"codeLensProvider": map[string]any{}}}, nil
	})

	dir := t.TempDir()
	if err := client.Initialize(context.Background(), dir); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	srv.expectNote(t, "initialized")
	if rootURI != PathToURI(dir) {
		t.Fatalf("expected root %q, got %q", PathToURI(dir), rootURI)
	}
	if !client.SupportsCodeLens() {
		t.Fatal("expected code lens support")
	}
	if client.Capabilities().CodeLensProvider.ResolveProvider {
		t.Fatal("expected no resolve provider")
	}
}

func TestClientRequestGoesThroughPost(t *testing.T) {
	posted := make(chan func(), 4)
	client, srv := newPair(t, 1, ClientOptions{Post: func(fn func()) { posted <- fn }})
	srv.handle(codelens.MethodCodeLens, func(json.RawMessage) (any, error) {
		return []codelens.Lens{{Command: &codelens.Command{Title: "Run"}}}, nil
	})

	results := make(chan rpcResult, 1)
	client.Request(codelens.MethodCodeLens, codeLensParams{}, func(err error, raw json.RawMessage) {
		results <- rpcResult{err, raw}
	})

	fn := waitFor(t, posted)
	select {
	case <-results:
		t.Fatal("callback ran before the loop executed it")
	default:
	}
	fn()
	got := waitFor(t, results)
	if got.err != nil || !strings.Contains(string(got.raw), `"Run"`) {
		t.Fatalf("unexpected result %s (%v)", got.raw, got.err)
	}
}

func TestClientResponseError(t *testing.T) {
	client, srv := newPair(t, 1, ClientOptions{})
	srv.handle(codelens.MethodResolve, func(json.RawMessage) (any, error) {
		return nil, &ResponseError{Code: -32603, Message: "internal"}
	})

	results := make(chan rpcResult, 1)
	client.Request(codelens.MethodResolve, codelens.Lens{}, func(err error, raw json.RawMessage) {
		results <- rpcResult{err, raw}
	})
	got := waitFor(t, results)
	var rerr *ResponseError
	if !errors.As(got.err, &rerr) || rerr.Code != -32603 {
		t.Fatalf("expected ResponseError, got %v", got.err)
	}
}

func TestClientAnswersRefreshRequest(t *testing.T) {
	refreshed := make(chan codelens.BackendID, 1)
	_, srv := newPair(t, 7, ClientOptions{OnRefresh: func(id codelens.BackendID) { refreshed <- id }})

	srv.request("r1", "workspace/codeLens/refresh", nil)
	if id := waitFor(t, refreshed); id != 7 {
		t.Fatalf("expected backend 7, got %d", id)
	}
	reply := srv.expectReply(t)
	if string(reply.ID) != `"r1"` || reply.Error != nil {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestClientAnswersConfigurationAndUnknownRequests(t *testing.T) {
	_, srv := newPair(t, 1, ClientOptions{})

	srv.request("c1", "workspace/configuration", map[string]any{"items": []any{map[string]any{}, map[string]any{}}})
	reply := srv.expectReply(t)
	if string(reply.Result) != "[null,null]" {
		t.Fatalf("unexpected configuration reply: %s", reply.Result)
	}

	srv.request("u1", "workspace/applyEdit", nil)
	reply = srv.expectReply(t)
	if reply.Error == nil || reply.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", reply)
	}
}

func TestClientCloseFailsPending(t *testing.T) {
	client, srv := newPair(t, 1, ClientOptions{})
	started := make(chan struct{})
	srv.handle(codelens.MethodExecuteCommand, func(json.RawMessage) (any, error) {
		close(started)
		return nil, errNoReply
	})

	results := make(chan rpcResult, 1)
	client.Request(codelens.MethodExecuteCommand, nil, func(err error, raw json.RawMessage) {
		results <- rpcResult{err, raw}
	})
	waitFor(t, started)
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := waitFor(t, results); !errors.Is(got.err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", got.err)
	}

	client.Request(codelens.MethodCodeLens, nil, func(err error, raw json.RawMessage) {
		results <- rpcResult{err, raw}
	})
	if got := waitFor(t, results); !errors.Is(got.err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", got.err)
	}
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}
}

func TestClientShutdown(t *testing.T) {
	client, srv := newPair(t, 1, ClientOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	srv.expectNote(t, "exit")
}
