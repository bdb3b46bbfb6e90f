package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"lensctl/internal/asyncrt"
	"lensctl/internal/codelens"
	"lensctl/internal/config"
	"lensctl/internal/editor"
	"lensctl/internal/lsp"
	"lensctl/internal/observ"
	"lensctl/internal/trace"
	"lensctl/internal/ui"
)

const (
	defaultSettleTimeout = 10 * time.Second
	shutdownTimeout      = 3 * time.Second
)

var errTimeout = errors.New("timed out waiting for language servers")

// workspaceOptions collects what the subcommands share.
type workspaceOptions struct {
	configPath string
	timeout    time.Duration
	quiet      bool
	tui        bool
	tracer     trace.Tracer
	heartbeat  *trace.Heartbeat
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

// workspace wires the editor, the server pool and the lens session to one
// event loop. Session state is only touched through ws.do.
type workspace struct {
	opts    workspaceOptions
	cfg     config.Config
	timer   *observ.Timer
	loop    *asyncrt.Loop
	editor  *editor.Editor
	pool    *lsp.Pool
	session *codelens.Session

	cancel  context.CancelFunc
	loopErr chan error

	// Loop-only state.
	settled   chan codelens.DocumentID
	executed  chan codelens.Event
	executing int
	progress  chan codelens.Event
}

func newWorkspace(ctx context.Context, cfg config.Config, opts workspaceOptions) (*workspace, error) {
	if opts.timeout <= 0 {
		opts.timeout = defaultSettleTimeout
	}
	if opts.tracer == nil {
		opts.tracer = trace.Nop
	}

	ws := &workspace{
		opts:     opts,
		cfg:      cfg,
		timer:    observ.NewTimer(),
		loop:     asyncrt.NewLoop(asyncrt.Config{}),
		loopErr:  make(chan error, 1),
		settled:  make(chan codelens.DocumentID, 16),
		executed: make(chan codelens.Event, 4),
	}
	ws.editor = editor.New(ws.choose, ws.notify)

	var logOut io.Writer
	if !opts.quiet {
		logOut = opts.stderr
	}
	ws.pool = lsp.NewPool(ws.editor, lsp.ClientOptions{
		Post:      func(fn func()) { ws.loop.Post(fn) },
		OnRefresh: ws.onServerRefresh,
		Tracer:    opts.tracer,
		Log:       logOut,
	})

	// The loop outlives a cancelled command so close can still shut down.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ws.cancel = cancel
	go func() { ws.loopErr <- ws.loop.Run(loopCtx) }()

	err := ws.do(ctx, func() {
		ws.session = codelens.NewSession(ws.editor, ws.pool,
			codelens.WithRenderStyle(cfg.RenderStyle()),
			codelens.WithTracer(opts.tracer),
			codelens.WithProgress(codelens.FuncSink(ws.onEvent)),
			codelens.WithCommandResultHandler(ws.onCommandResult),
		)
	})
	if err != nil {
		ws.stop()
		return nil, err
	}
	return ws, nil
}

// start launches the servers whose extensions match file.
func (ws *workspace) start(ctx context.Context, file string) error {
	var specs []lsp.ServerSpec
	for _, spec := range ws.cfg.ServerSpecs() {
		if spec.Matches(file) {
			specs = append(specs, spec)
		}
	}
	if len(specs) == 0 {
		return fmt.Errorf("no language server configured for %s", filepath.Base(file))
	}
	return ws.timer.Measure("start servers", func() error {
		startCtx, cancel := context.WithTimeout(ctx, ws.opts.timeout)
		defer cancel()
		err := ws.pool.Start(startCtx, file, specs)
		if err != nil && len(ws.pool.Clients()) > 0 {
			ws.notify(codelens.LevelWarn, err.Error())
			return nil
		}
		return err
	})
}

// open reads file from disk and attaches it to the servers.
func (ws *workspace) open(ctx context.Context, file string) (codelens.DocumentID, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return codelens.NoDocument, err
	}
	var doc codelens.DocumentID
	if err := ws.do(ctx, func() {
		doc = ws.editor.Open(file, string(data))
		ws.editor.SetCurrent(doc, 1)
	}); err != nil {
		return codelens.NoDocument, err
	}
	n, err := ws.pool.Open(doc)
	if err != nil {
		return doc, err
	}
	if n == 0 {
		return doc, fmt.Errorf("no running server provides code lenses for %s", filepath.Base(file))
	}
	return doc, nil
}

// reload replaces doc's text with the file contents and notifies the servers.
func (ws *workspace) reload(ctx context.Context, doc codelens.DocumentID, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := ws.do(ctx, func() { ws.editor.SetText(doc, string(data)) }); err != nil {
		return err
	}
	return ws.pool.Change(doc)
}

// refresh starts a refresh cycle for doc and waits until it settles.
func (ws *workspace) refresh(ctx context.Context, doc codelens.DocumentID) error {
	return ws.timer.Measure("refresh", func() error {
		var started, busy bool
		if err := ws.do(ctx, func() {
			ws.drainSettled()
			started = ws.session.Refresh(doc)
			busy = ws.session.InFlight(doc)
		}); err != nil {
			return err
		}
		if !started && !busy {
			return fmt.Errorf("%w: %s", codelens.ErrNoDocument, doc)
		}
		return ws.waitSettled(ctx, doc)
	})
}

func (ws *workspace) waitSettled(ctx context.Context, doc codelens.DocumentID) error {
	timer := time.NewTimer(ws.opts.timeout)
	defer timer.Stop()
	for {
		select {
		case got := <-ws.settled:
			if got == doc {
				return nil
			}
		case <-timer.C:
			return errTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// execute runs the lens on the one-based line of doc and waits for the
// command to finish.
func (ws *workspace) execute(ctx context.Context, doc codelens.DocumentID, line int) error {
	return ws.timer.Measure("execute", func() error {
		var (
			runErr    error
			executing int
		)
		if err := ws.do(ctx, func() {
			ws.executing = 0
			ws.editor.SetCurrent(doc, line)
			runErr = ws.session.Run(doc, line)
			executing = ws.executing
		}); err != nil {
			return err
		}
		if runErr != nil || executing == 0 {
			return runErr
		}
		timer := time.NewTimer(ws.opts.timeout)
		defer timer.Stop()
		select {
		case ev := <-ws.executed:
			return ev.Err
		case <-timer.C:
			return errTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// view snapshots doc for rendering.
func (ws *workspace) view(doc codelens.DocumentID, onlyAnnotated bool) string {
	dv := ui.DocumentView{
		Path:        ws.editor.Path(doc),
		Lines:       ws.editor.Lines(doc),
		Annotations: ws.editor.Annotations(doc),
	}
	return ui.RenderDocument(dv, ui.RenderOptions{OnlyAnnotated: onlyAnnotated})
}

// backends lists the servers attached to doc for the progress view.
func (ws *workspace) backends(doc codelens.DocumentID) []ui.Backend {
	attached := ws.pool.Attached(doc)
	out := make([]ui.Backend, 0, len(attached))
	for _, c := range ws.pool.Clients() {
		for _, id := range attached {
			if c.ID() == id {
				out = append(out, ui.Backend{ID: id, Name: c.Name()})
			}
		}
	}
	return out
}

// close shuts the session and servers down and stops the loop.
func (ws *workspace) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = ws.do(ctx, func() {
		if ws.session != nil {
			ws.session.Close()
		}
		ws.stopProgress()
	})
	err := ws.timer.Measure("shutdown", func() error { return ws.pool.Shutdown(ctx) })
	ws.stop()
	return err
}

func (ws *workspace) stop() {
	ws.cancel()
	ws.loop.Stop()
	<-ws.loopErr
}

func (ws *workspace) do(ctx context.Context, fn func()) error {
	return ws.loop.Do(ctx, fn)
}

// startProgress returns a channel of session events for the progress view.
// It must be called on the loop.
func (ws *workspace) startProgress() <-chan codelens.Event {
	ws.progress = make(chan codelens.Event, 256)
	return ws.progress
}

func (ws *workspace) stopProgress() {
	if ws.progress != nil {
		close(ws.progress)
		ws.progress = nil
	}
}

func (ws *workspace) drainSettled() {
	for {
		select {
		case <-ws.settled:
		default:
			return
		}
	}
}

func (ws *workspace) onEvent(ev codelens.Event) {
	ws.opts.heartbeat.Note(heartbeatStatus(ev))
	switch {
	case ev.Stage == codelens.StageRefresh && ev.Status == codelens.StatusDone:
		select {
		case ws.settled <- ev.Document:
		default:
		}
	case ev.Stage == codelens.StageExecute && ev.Status == codelens.StatusWorking:
		ws.executing++
	case ev.Stage == codelens.StageExecute:
		select {
		case ws.executed <- ev:
		default:
		}
	}
	if ws.progress != nil {
		select {
		case ws.progress <- ev:
		default:
		}
	}
}

// onServerRefresh runs on the loop when a server asks for new lenses.
func (ws *workspace) onServerRefresh(backend codelens.BackendID) {
	if ws.session == nil {
		return
	}
	for _, doc := range ws.pool.DocumentsFor(backend) {
		ws.session.Refresh(doc)
	}
}

func (ws *workspace) onCommandResult(err error, result json.RawMessage, backend codelens.BackendID, doc codelens.DocumentID) {
	if err != nil || len(result) == 0 || string(result) == "null" {
		return
	}
	fmt.Fprintf(ws.opts.stdout, "%s\n", result)
}

func (ws *workspace) choose(prompt string, items []string) int {
	if ws.opts.tui {
		n, err := ui.Pick(prompt, items, ws.opts.stdin, ws.opts.stderr)
		if err != nil {
			ws.notify(codelens.LevelError, err.Error())
			return 0
		}
		return n
	}
	return ui.PromptChoice(prompt, items, ws.opts.stdin, ws.opts.stderr)
}

func (ws *workspace) notify(level codelens.Level, msg string) {
	if ws.opts.quiet && level == codelens.LevelInfo {
		return
	}
	var c *color.Color
	switch level {
	case codelens.LevelError:
		c = color.New(color.FgRed, color.Bold)
	case codelens.LevelWarn:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgCyan)
	}
	fmt.Fprintln(ws.opts.stderr, c.Sprint(levelName(level)+":"), msg)
}

func heartbeatStatus(ev codelens.Event) string {
	switch {
	case ev.Stage == codelens.StageRefresh && ev.Status != codelens.StatusWorking:
		return "idle"
	case ev.Backend != 0:
		return fmt.Sprintf("%s %s on %s: %s", ev.Stage, ev.Document, ev.Backend, ev.Status)
	default:
		return fmt.Sprintf("%s %s: %s", ev.Stage, ev.Document, ev.Status)
	}
}

func levelName(level codelens.Level) string {
	switch level {
	case codelens.LevelError:
		return "error"
	case codelens.LevelWarn:
		return "warning"
	default:
		return "info"
	}
}
