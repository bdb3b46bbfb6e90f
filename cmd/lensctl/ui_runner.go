package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"lensctl/internal/codelens"
	"lensctl/internal/ui"
)

// runRefreshWithUI refreshes doc while a progress view follows the
// session's events on stderr.
func runRefreshWithUI(ctx context.Context, ws *workspace, doc codelens.DocumentID) error {
	var events <-chan codelens.Event
	if err := ws.do(ctx, func() { events = ws.startProgress() }); err != nil {
		return err
	}

	outcome := make(chan error, 1)
	go func() {
		err := ws.refresh(ctx, doc)
		_ = ws.do(context.Background(), ws.stopProgress)
		outcome <- err
	}()

	model := ui.NewProgressModel(ws.editor.Path(doc), ws.backends(doc), events)
	program := tea.NewProgram(model, tea.WithOutput(ws.opts.stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	err := <-outcome
	if uiErr != nil {
		return uiErr
	}
	return err
}
