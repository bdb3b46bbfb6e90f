package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"lensctl/internal/codelens"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Reprint FILE's code lenses every time it is saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := absFile(args[0])
		if err != nil {
			return err
		}
		ws, cleanup, err := openFor(cmd, file)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		doc, err := ws.open(ctx, file)
		if err != nil {
			return err
		}
		if err := ws.refresh(ctx, doc); err != nil {
			return err
		}
		printWatchView(ws, doc)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer watcher.Close()
		// Editors often save by renaming over the file, so watch the directory.
		if err := watcher.Add(filepath.Dir(file)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", filepath.Dir(file), err)
		}
		err = watchLoop(ctx, ws, doc, file, watcher)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().BoolVar(&showOnlyAnnotated, "only-lenses", false, "print only lines that carry code lenses")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 150*time.Millisecond, "quiet period before reloading after a change")
}

func watchLoop(ctx context.Context, ws *workspace, doc codelens.DocumentID, file string, watcher *fsnotify.Watcher) error {
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isSaveOf(ev, file) {
				debounce.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ws.notify(codelens.LevelWarn, fmt.Sprintf("watch: %v", err))
		case <-debounce.C:
			if err := ws.reload(ctx, doc, file); err != nil {
				ws.notify(codelens.LevelError, err.Error())
				continue
			}
			if err := ws.refresh(ctx, doc); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				ws.notify(codelens.LevelError, err.Error())
			}
			printWatchView(ws, doc)
		case got := <-ws.settled:
			// A server asked for a refresh on its own.
			if got == doc {
				printWatchView(ws, doc)
			}
		}
	}
}

// isSaveOf reports whether ev leaves new contents at file.
func isSaveOf(ev fsnotify.Event, file string) bool {
	if filepath.Clean(ev.Name) != file {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func printWatchView(ws *workspace, doc codelens.DocumentID) {
	out := ws.opts.stdout
	if ws.opts.tui {
		fmt.Fprint(out, "\x1b[H\x1b[2J")
	} else {
		fmt.Fprintln(out, "---", time.Now().Format(time.TimeOnly))
	}
	fmt.Fprint(out, ws.view(doc, showOnlyAnnotated))
}
