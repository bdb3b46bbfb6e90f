package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lensctl/internal/config"
	"lensctl/internal/trace"
)

// commandOptions reads the persistent flags shared by every subcommand.
func commandOptions(cmd *cobra.Command) (workspaceOptions, error) {
	flags := cmd.Root().PersistentFlags()
	var opts workspaceOptions
	var err error
	if opts.configPath, err = flags.GetString("config"); err != nil {
		return opts, err
	}
	if opts.quiet, err = flags.GetBool("quiet"); err != nil {
		return opts, err
	}
	if opts.timeout, err = flags.GetDuration("timeout"); err != nil {
		return opts, err
	}
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return opts, err
	}
	if _, err := applyColor(colorFlag); err != nil {
		return opts, err
	}
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return opts, err
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return opts, err
	}
	opts.tui = shouldUseTUI(mode)
	opts.stdin = cmd.InOrStdin()
	opts.stdout = cmd.OutOrStdout()
	opts.stderr = cmd.ErrOrStderr()
	return opts, nil
}

// openFor loads the config for file, sets tracing up and builds a
// workspace whose matching servers are running.
func openFor(cmd *cobra.Command, file string) (*workspace, func(), error) {
	opts, err := commandOptions(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(opts.configPath, file)
	if err != nil {
		return nil, nil, err
	}
	heartbeat, cleanupTrace, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return nil, nil, err
	}
	opts.tracer = trace.FromContext(cmd.Context())
	opts.heartbeat = heartbeat

	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	cmd.SetContext(ctx)
	cleanup := func() {
		stopSignals()
		cleanupTrace()
	}

	ws, err := newWorkspace(ctx, cfg, opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanup = func() {
		if err := ws.close(); err != nil && !opts.quiet {
			fmt.Fprintf(opts.stderr, "shutdown: %v\n", err)
		}
		if timings, _ := cmd.Root().PersistentFlags().GetBool("timings"); timings {
			fmt.Fprint(opts.stderr, ws.timer.Summary())
		}
		stopSignals()
		cleanupTrace()
	}
	if err := ws.start(ctx, file); err != nil {
		cleanup()
		return nil, nil, err
	}
	return ws, cleanup, nil
}

// absFile resolves a command-line path and checks that it is a file.
func absFile(arg string) (string, error) {
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", arg)
	}
	return path, nil
}

// parseTarget splits FILE:LINE. The line is one-based.
func parseTarget(arg string) (string, int, error) {
	idx := strings.LastIndex(arg, ":")
	if idx <= 0 || idx == len(arg)-1 {
		return "", 0, fmt.Errorf("expected FILE:LINE, got %q", arg)
	}
	line, err := strconv.Atoi(arg[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid line in %q: %w", arg, err)
	}
	if line < 1 {
		return "", 0, fmt.Errorf("line must be at least 1, got %d", line)
	}
	return arg[:idx], line, nil
}
