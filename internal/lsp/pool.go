package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"lensctl/internal/codelens"
	"lensctl/internal/trace"
)

// ServerSpec describes how to launch one language server and which files
// it serves.
type ServerSpec struct {
	Name        string
	Command     string
	Args        []string
	Extensions  []string
	RootMarkers []string
	LanguageID  string
}

// Matches reports whether path has one of the server's extensions.
func (s ServerSpec) Matches(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, want := range s.Extensions {
		if strings.EqualFold(strings.TrimPrefix(want, "."), ext) {
			return true
		}
	}
	return false
}

func (s ServerSpec) languageID(path string) string {
	if s.LanguageID != "" {
		return s.LanguageID
	}
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// Documents gives the pool read access to open documents.
type Documents interface {
	Path(doc codelens.DocumentID) string
	Text(doc codelens.DocumentID) string
}

type poolServer struct {
	spec   ServerSpec
	client *Client
}

// Pool owns the running language servers and attaches them to documents
// by file extension. It implements codelens.Transport.
type Pool struct {
	docs Documents
	opts ClientOptions

	mu       sync.Mutex
	nextID   codelens.BackendID
	servers  []*poolServer
	byID     map[codelens.BackendID]*poolServer
	attached map[codelens.DocumentID][]codelens.BackendID
	versions map[codelens.DocumentID]uint64
}

// NewPool returns an empty pool. opts is applied to every client it starts.
func NewPool(docs Documents, opts ClientOptions) *Pool {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Pool{
		docs:     docs,
		opts:     opts,
		byID:     make(map[codelens.BackendID]*poolServer),
		attached: make(map[codelens.DocumentID][]codelens.BackendID),
		versions: make(map[codelens.DocumentID]uint64),
	}
}

// Start launches and initializes specs in parallel. Each server's workspace
// folder is found by walking up from start (a file or directory) to the
// nearest of its root markers. Start-up is partial on purpose: servers that
// came up are registered even when others failed, and the joined error
// reports every failure.
func (p *Pool) Start(ctx context.Context, start string, specs []ServerSpec) error {
	clients := make([]*Client, len(specs))
	errs := make([]error, len(specs))
	ids := p.reserve(len(specs))

	var g errgroup.Group
	for i, spec := range specs {
		g.Go(func() error {
			span := trace.Begin(p.opts.Tracer, trace.ScopeSession, "server.start", 0).WithExtra("server", spec.Name)
			c, err := p.launch(ctx, ids[i], spec, DetectRoot(start, spec.RootMarkers))
			if err != nil {
				span.End("failed")
				errs[i] = err
				return err
			}
			span.End("")
			clients[i] = c
			return nil
		})
	}
	err := g.Wait()

	for i, c := range clients {
		if c != nil {
			p.register(specs[i], c)
		}
	}
	if err != nil {
		// Wait keeps only the first failure.
		return errors.Join(errs...)
	}
	return nil
}

func (p *Pool) reserve(n int) []codelens.BackendID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]codelens.BackendID, n)
	for i := range ids {
		p.nextID++
		ids[i] = p.nextID
	}
	return ids
}

func (p *Pool) launch(ctx context.Context, id codelens.BackendID, spec ServerSpec, root string) (*Client, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = root
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: stdin: %w", spec.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s: stdout: %w", spec.Name, err)
	}
	if p.opts.Log != nil {
		cmd.Stderr = p.opts.Log
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: start %s: %w", spec.Name, spec.Command, err)
	}
	c := NewClient(id, spec.Name, stdout, stdin, &processCloser{stdin: stdin, cmd: cmd}, p.opts)
	if err := c.Initialize(ctx, root); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Add registers an already connected and initialized client.
func (p *Pool) Add(spec ServerSpec, c *Client) {
	p.mu.Lock()
	if c.ID() > p.nextID {
		p.nextID = c.ID()
	}
	p.mu.Unlock()
	p.register(spec, c)
}

func (p *Pool) register(spec ServerSpec, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	srv := &poolServer{spec: spec, client: c}
	p.servers = append(p.servers, srv)
	p.byID[c.ID()] = srv
}

// Clients returns the registered clients in start order.
func (p *Pool) Clients() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Client, 0, len(p.servers))
	for _, srv := range p.servers {
		out = append(out, srv.client)
	}
	return out
}

// Open sends didOpen for doc to every matching server that provides code
// lenses and returns how many servers it was attached to.
func (p *Pool) Open(doc codelens.DocumentID) (int, error) {
	path := p.docs.Path(doc)
	if path == "" {
		return 0, fmt.Errorf("%w: %s", codelens.ErrNoDocument, doc)
	}
	version, err := p.bump(doc)
	if err != nil {
		return 0, err
	}
	uri := PathToURI(path)
	text := p.docs.Text(doc)

	p.mu.Lock()
	var targets []*poolServer
	for _, srv := range p.servers {
		if srv.spec.Matches(path) && srv.client.SupportsCodeLens() && !slices.Contains(p.attached[doc], srv.client.ID()) {
			targets = append(targets, srv)
		}
	}
	p.mu.Unlock()

	var errs []error
	for _, srv := range targets {
		if err := srv.client.DidOpen(uri, srv.spec.languageID(path), version, text); err != nil {
			errs = append(errs, err)
			continue
		}
		p.mu.Lock()
		p.attached[doc] = append(p.attached[doc], srv.client.ID())
		p.mu.Unlock()
	}
	return len(p.Attached(doc)), errors.Join(errs...)
}

// Change sends the full text of doc to every attached server.
func (p *Pool) Change(doc codelens.DocumentID) error {
	version, err := p.bump(doc)
	if err != nil {
		return err
	}
	uri := PathToURI(p.docs.Path(doc))
	text := p.docs.Text(doc)
	var errs []error
	for _, c := range p.clientsFor(doc) {
		errs = append(errs, c.DidChange(uri, version, text))
	}
	return errors.Join(errs...)
}

// CloseDocument sends didClose and detaches doc from every server.
func (p *Pool) CloseDocument(doc codelens.DocumentID) error {
	uri := PathToURI(p.docs.Path(doc))
	clients := p.clientsFor(doc)
	p.mu.Lock()
	delete(p.attached, doc)
	delete(p.versions, doc)
	p.mu.Unlock()
	var errs []error
	for _, c := range clients {
		errs = append(errs, c.DidClose(uri))
	}
	return errors.Join(errs...)
}

func (p *Pool) bump(doc codelens.DocumentID) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions[doc]++
	v, err := safecast.Conv[int32](p.versions[doc])
	if err != nil {
		return 0, fmt.Errorf("%s: document version overflow: %w", doc, err)
	}
	return v, nil
}

// Attached returns the backends doc is attached to.
func (p *Pool) Attached(doc codelens.DocumentID) []codelens.BackendID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.attached[doc])
}

// DocumentsFor returns every document attached to backend.
func (p *Pool) DocumentsFor(backend codelens.BackendID) []codelens.DocumentID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []codelens.DocumentID
	for doc, ids := range p.attached {
		if slices.Contains(ids, backend) {
			out = append(out, doc)
		}
	}
	slices.Sort(out)
	return out
}

func (p *Pool) clientsFor(doc codelens.DocumentID) []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Client
	for _, id := range p.attached[doc] {
		if srv, ok := p.byID[id]; ok {
			out = append(out, srv.client)
		}
	}
	return out
}

func (p *Pool) Backend(id codelens.BackendID) (codelens.Backend, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	srv, ok := p.byID[id]
	if !ok {
		return nil, false
	}
	return srv.client, true
}

func (p *Pool) RequestAll(doc codelens.DocumentID, method string, handler codelens.ResponseHandler) int {
	clients := p.clientsFor(doc)
	params := codeLensParams{TextDocument: textDocumentIdentifier{URI: PathToURI(p.docs.Path(doc))}}
	for _, c := range clients {
		id := c.ID()
		c.Request(method, params, func(err error, result json.RawMessage) {
			handler(err, result, id, doc)
		})
	}
	return len(clients)
}

// Remove drops backend from the pool and closes its connection. Lenses
// that still reference it fail with codelens.ErrBackendGone on use.
func (p *Pool) Remove(backend codelens.BackendID) error {
	p.mu.Lock()
	srv, ok := p.byID[backend]
	if ok {
		delete(p.byID, backend)
		p.servers = slices.DeleteFunc(p.servers, func(s *poolServer) bool { return s == srv })
		for doc, ids := range p.attached {
			p.attached[doc] = slices.DeleteFunc(ids, func(id codelens.BackendID) bool { return id == backend })
		}
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return srv.client.Close()
}

// Shutdown shuts every server down in parallel.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	servers := p.servers
	p.servers = nil
	p.byID = make(map[codelens.BackendID]*poolServer)
	p.attached = make(map[codelens.DocumentID][]codelens.BackendID)
	p.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.client.Shutdown(ctx); err != nil {
				return fmt.Errorf("%s: shutdown: %w", srv.spec.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

type processCloser struct {
	stdin io.Closer
	cmd   *exec.Cmd
}

func (pc *processCloser) Close() error {
	_ = pc.stdin.Close()
	done := make(chan error, 1)
	go func() { done <- pc.cmd.Wait() }()
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	case <-time.After(2 * time.Second):
		_ = pc.cmd.Process.Kill()
		<-done
		return nil
	}
}
